package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (path, dir string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
security:
  key_file: %s
  admin_user: admin
logging:
  level: error
storage:
  backend: file
  dir: %s
scheduler:
  reminders_cron: ""
  backup_cron: ""
`, filepath.Join(dir, "inventory.db"), filepath.Join(dir, "secret.key"), filepath.Join(dir, "backups"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "migrate", "export", "backup", "restore", "reminders"} {
		assert.Contains(t, names, want)
	}
}

func TestMigrateSeedExportAndBackup(t *testing.T) {
	cfgPath, dir := writeConfig(t)
	t.Setenv("INVENTORY_ADMIN_PASSWORD", "s3cret-pass")

	out, err := run(t, "migrate", "--seed", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 3 template(s)")

	// seeding twice does not duplicate templates
	out, err = run(t, "migrate", "--seed", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 0 template(s)")

	exportDir := filepath.Join(dir, "exports")
	out, err = run(t, "export", "--id", "1", "--format", "csv", "--out", exportDir, "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(exportDir, "report_1.csv"), strings.TrimSpace(out))

	data, err := os.ReadFile(filepath.Join(exportDir, "report_1.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,name,category,quantity,condition,purchase_date,service_life"))

	out, err = run(t, "backup", "--config", cfgPath)
	require.NoError(t, err)
	location := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(dir, "backups"), filepath.Dir(location))
	assert.FileExists(t, location)

	out, err = run(t, "reminders", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "0 item(s) due for replacement")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	_, err := run(t, "export", "--id", "1", "--format", "docx", "--config", cfgPath)
	assert.Error(t, err)
}

func TestMigrateSeedRequiresPassword(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	t.Setenv("INVENTORY_ADMIN_PASSWORD", "")
	_, err := run(t, "migrate", "--seed", "--config", cfgPath)
	assert.ErrorContains(t, err, "admin password")
}

func TestBackupThenRestore(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	t.Setenv("INVENTORY_ADMIN_PASSWORD", "s3cret-pass")

	_, err := run(t, "migrate", "--seed", "--config", cfgPath)
	require.NoError(t, err)

	out, err := run(t, "backup", "--config", cfgPath)
	require.NoError(t, err)
	location := strings.TrimSpace(out)

	out, err = run(t, "restore", location, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "restored 3 template(s), 0 item(s), 0 booking(s)")

	_, err = run(t, "restore", "--config", cfgPath)
	assert.Error(t, err)

	_, err = run(t, "restore", "backup_missing.bin", "--config", cfgPath)
	assert.ErrorContains(t, err, "failed to fetch backup")
}

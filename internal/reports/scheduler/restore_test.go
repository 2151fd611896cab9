package scheduler

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/bookings"
	"github.com/H6ise/Sports-Inventory-accounting/internal/database"
	"github.com/H6ise/Sports-Inventory-accounting/internal/database/dbtest"
	"github.com/H6ise/Sports-Inventory-accounting/internal/inventory"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports"
	"github.com/H6ise/Sports-Inventory-accounting/pkg/security"
)

type restoreFixture struct {
	templates *reports.SQLRepository
	items     *inventory.GormRepository
	booked    *bookings.GormRepository
	sink      *FileSink
	keys      *security.KeyRing
	restore   *RestoreJob
	templateID  int64
	backup    string
}

func newRestoreFixture(t *testing.T) *restoreFixture {
	t.Helper()
	ctx := context.Background()
	db := dbtest.Open(t)
	gdb, err := database.Gorm(db)
	require.NoError(t, err)

	f := &restoreFixture{
		templates: reports.NewSQLRepository(db),
		items:     inventory.NewGormRepository(gdb),
		booked:    bookings.NewGormRepository(gdb),
		sink:      NewFileSink(t.TempDir(), zap.NewNop()),
		keys:      testKeyRing(t),
	}
	f.restore = NewRestoreJob(f.sink, f.keys, db, zap.NewNop())

	cfg := reports.NewDefaultConfiguration()
	cfg.Name = "Stock"
	f.templateID, err = f.templates.SaveTemplate(ctx, &reports.ReportTemplate{UserID: 1, Config: *cfg, Type: "table"})
	require.NoError(t, err)

	require.NoError(t, f.items.Create(ctx,
		&inventory.Item{Name: "Ball A", Category: "Balls", Quantity: 5, Condition: "Good"},
		&inventory.Item{Name: "Net B", Category: "Equipment", Quantity: 2, Condition: "Worn"},
	))
	day, err := inventory.ParseDate("2024-05-01")
	require.NoError(t, err)
	require.NoError(t, f.booked.Create(ctx, &bookings.Booking{InventoryID: 2, UserID: 1, BookingDate: day, Class: "7A"}))

	location, err := NewBackupJob(f.templates, f.items, f.booked, f.keys, f.sink, zap.NewNop()).Run(ctx)
	require.NoError(t, err)
	f.backup = filepath.Base(location)
	return f
}

func itemNames(t *testing.T, repo *inventory.GormRepository) []string {
	t.Helper()
	items, err := repo.All(context.Background())
	require.NoError(t, err)
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return names
}

func TestRestoreJob_ReplacesDataWithBackup(t *testing.T) {
	f := newRestoreFixture(t)
	ctx := context.Background()

	_, err := f.items.Delete(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, f.items.Create(ctx, &inventory.Item{Name: "Cone", Category: "Equipment", Quantity: 9, Condition: "New"}))
	require.NoError(t, f.templates.DeleteTemplate(ctx, f.templateID, 1))

	snapshot, err := f.restore.Run(ctx, f.backup)
	require.NoError(t, err)
	assert.Len(t, snapshot.Items, 2)

	assert.Equal(t, []string{"Ball A", "Net B"}, itemNames(t, f.items))

	tmpl, err := f.templates.GetTemplate(ctx, f.templateID)
	require.NoError(t, err)
	assert.Equal(t, "Stock", tmpl.Config.Name)

	booked, err := f.booked.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, int64(2), booked[0].InventoryID)
	assert.Equal(t, "2024-05-01", booked[0].BookingDate.String())

	// new rows continue after the restored ids
	cone := &inventory.Item{Name: "Cone", Category: "Equipment", Quantity: 1, Condition: "New"}
	require.NoError(t, f.items.Create(ctx, cone))
	assert.Greater(t, cone.ID, int64(2))
}

func TestRestoreJob_WrongKeyLeavesDataUntouched(t *testing.T) {
	f := newRestoreFixture(t)
	ctx := context.Background()
	require.NoError(t, f.items.Create(ctx, &inventory.Item{Name: "Cone", Category: "Equipment", Quantity: 9, Condition: "New"}))

	otherKeys, err := security.NewKeyRing(bytes.Repeat([]byte{9}, security.KeySize))
	require.NoError(t, err)
	_, err = NewRestoreJob(f.sink, otherKeys, nil, zap.NewNop()).Run(ctx, f.backup)
	assert.ErrorIs(t, err, security.ErrMalformedCiphertext)

	_, err = f.restore.Run(ctx, "backup_missing.bin")
	assert.ErrorContains(t, err, "failed to fetch backup")

	assert.Equal(t, []string{"Ball A", "Net B", "Cone"}, itemNames(t, f.items))
}

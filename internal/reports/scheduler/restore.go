package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/database"
	"github.com/H6ise/Sports-Inventory-accounting/pkg/security"
)

// restoredTables are cleared child-first and keep their snapshot ids
var restoredTables = []string{"bookings", "inventory", "report_templates"}

// RestoreJob replaces templates, inventory and bookings with the content
// of a backup. Report history and the audit log are kept.
type RestoreJob struct {
	source ArtifactSource
	keys   *security.KeyRing
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRestoreJob creates a restore job reading backups from source
func NewRestoreJob(source ArtifactSource, keys *security.KeyRing, db *sqlx.DB, logger *zap.Logger) *RestoreJob {
	return &RestoreJob{source: source, keys: keys, db: db, logger: logger}
}

// Run fetches, opens and applies the backup called name in one transaction
func (j *RestoreJob) Run(ctx context.Context, name string) (*Snapshot, error) {
	sealed, err := j.source.Fetch(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch backup: %w", err)
	}
	snapshot, err := OpenSnapshot(j.keys, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup %s: %w", name, err)
	}

	err = database.WithTx(ctx, j.db, func(tx *sqlx.Tx) error {
		return replaceAll(ctx, tx, snapshot)
	})
	if err != nil {
		return nil, err
	}

	j.logger.Info("Backup restored",
		zap.String("name", name),
		zap.Time("taken_at", snapshot.CreatedAt),
		zap.Int("templates", len(snapshot.Templates)),
		zap.Int("items", len(snapshot.Items)),
		zap.Int("bookings", len(snapshot.Bookings)))
	return snapshot, nil
}

func replaceAll(ctx context.Context, tx *sqlx.Tx, snapshot *Snapshot) error {
	for _, table := range restoredTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	insertTemplate := tx.Rebind(`INSERT INTO report_templates (id, user_id, config, type, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`)
	for _, t := range snapshot.Templates {
		config, err := json.Marshal(t.Config)
		if err != nil {
			return fmt.Errorf("failed to marshal config of template %d: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx, insertTemplate, t.ID, t.UserID, string(config), t.Type, t.CreatedAt, t.UpdatedAt); err != nil {
			return fmt.Errorf("failed to restore template %d: %w", t.ID, err)
		}
	}

	insertItem := tx.Rebind(`INSERT INTO inventory (id, name, category, quantity, condition, purchase_date, service_life, photo) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, i := range snapshot.Items {
		if _, err := tx.ExecContext(ctx, insertItem, i.ID, i.Name, i.Category, i.Quantity, i.Condition, i.PurchaseDate, i.ServiceLife, i.Photo); err != nil {
			return fmt.Errorf("failed to restore item %d: %w", i.ID, err)
		}
	}

	insertBooking := tx.Rebind(`INSERT INTO bookings (id, inventory_id, user_id, booking_date, class, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	for _, b := range snapshot.Bookings {
		if _, err := tx.ExecContext(ctx, insertBooking, b.ID, b.InventoryID, b.UserID, b.BookingDate, b.Class, b.CreatedAt); err != nil {
			return fmt.Errorf("failed to restore booking %d: %w", b.ID, err)
		}
	}

	// explicit ids leave Postgres sequences behind; sqlite tracks them itself
	if tx.DriverName() == "postgres" {
		for _, table := range restoredTables {
			query := fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 1), MAX(id) IS NOT NULL) FROM %[1]s`, table)
			if _, err := tx.ExecContext(ctx, query); err != nil {
				return fmt.Errorf("failed to reset %s sequence: %w", table, err)
			}
		}
	}
	return nil
}

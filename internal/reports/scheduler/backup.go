package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/bookings"
	"github.com/H6ise/Sports-Inventory-accounting/internal/inventory"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports"
	"github.com/H6ise/Sports-Inventory-accounting/pkg/security"
)

// TemplateSource lists every stored template
type TemplateSource interface {
	AllTemplates(ctx context.Context) ([]*reports.ReportTemplate, error)
}

// ItemSource lists the whole catalogue
type ItemSource interface {
	All(ctx context.Context) ([]inventory.Item, error)
}

// BookingSource lists bookings; userID 0 means every user
type BookingSource interface {
	List(ctx context.Context, userID int64) ([]bookings.Booking, error)
}

// Snapshot is the plaintext content of a backup
type Snapshot struct {
	CreatedAt time.Time                 `json:"created_at"`
	Templates []*reports.ReportTemplate `json:"templates"`
	Items     []inventory.Item          `json:"items"`
	Bookings  []bookings.Booking        `json:"bookings"`
}

// BackupName names the backup taken at t
func BackupName(t time.Time) string {
	return "backup_" + t.UTC().Format("20060102T150405Z") + ".bin"
}

// BackupJob seals a snapshot of templates, inventory and bookings and
// delivers it
type BackupJob struct {
	templates TemplateSource
	items     ItemSource
	booked    BookingSource
	keys      *security.KeyRing
	sink      ArtifactSink
	logger    *zap.Logger
	now       func() time.Time
}

// NewBackupJob creates a backup job
func NewBackupJob(templates TemplateSource, items ItemSource, booked BookingSource, keys *security.KeyRing, sink ArtifactSink, logger *zap.Logger) *BackupJob {
	return &BackupJob{
		templates: templates,
		items:     items,
		booked:    booked,
		keys:      keys,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
	}
}

// Run takes one backup and returns where it was delivered
func (b *BackupJob) Run(ctx context.Context) (string, error) {
	templates, err := b.templates.AllTemplates(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load templates: %w", err)
	}
	items, err := b.items.All(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load inventory: %w", err)
	}
	booked, err := b.booked.List(ctx, 0)
	if err != nil {
		return "", fmt.Errorf("failed to load bookings: %w", err)
	}

	taken := b.now().UTC()
	plaintext, err := json.Marshal(Snapshot{CreatedAt: taken, Templates: templates, Items: items, Bookings: booked})
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	sealed, err := b.keys.Seal(plaintext)
	if err != nil {
		return "", fmt.Errorf("failed to seal snapshot: %w", err)
	}

	location, err := b.sink.Deliver(ctx, BackupName(taken), "application/octet-stream", sealed)
	if err != nil {
		return "", fmt.Errorf("failed to deliver backup: %w", err)
	}

	b.logger.Info("Backup completed",
		zap.String("location", location),
		zap.Int("templates", len(templates)),
		zap.Int("items", len(items)),
		zap.Int("bookings", len(booked)))
	return location, nil
}

// OpenSnapshot decrypts and decodes a backup
func OpenSnapshot(keys *security.KeyRing, sealed []byte) (*Snapshot, error) {
	plaintext, err := keys.Open(sealed)
	if err != nil {
		return nil, err
	}
	var snapshot Snapshot
	if err := json.Unmarshal(plaintext, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

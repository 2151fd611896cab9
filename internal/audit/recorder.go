package audit

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Recorder appends user actions to the audit log. Recording is
// fire-and-forget: failures are logged and never returned to the caller.
type Recorder interface {
	Record(ctx context.Context, userID int64, action string)
}

// Entry is a row of the logs table
type Entry struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Action    string    `db:"action" json:"action"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SQLRecorder writes audit entries to the logs table
type SQLRecorder struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLRecorder creates a recorder backed by the shared database
func NewSQLRecorder(db *sqlx.DB, logger *zap.Logger) *SQLRecorder {
	return &SQLRecorder{db: db, logger: logger, now: time.Now}
}

func (r *SQLRecorder) Record(ctx context.Context, userID int64, action string) {
	query := r.db.Rebind(`INSERT INTO logs (user_id, action, created_at) VALUES (?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, userID, action, r.now().UTC()); err != nil {
		r.logger.Warn("Failed to record audit entry",
			zap.Int64("user_id", userID),
			zap.String("action", action),
			zap.Error(err))
	}
}

// Recent returns the latest entries, newest first
func (r *SQLRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	entries := []Entry{}
	query := r.db.Rebind(`SELECT id, user_id, action, created_at FROM logs ORDER BY id DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, err
	}
	return entries, nil
}

// Nop discards every entry
type Nop struct{}

func (Nop) Record(context.Context, int64, string) {}

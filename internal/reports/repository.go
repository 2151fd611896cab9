package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/H6ise/Sports-Inventory-accounting/internal/database"
)

// Repository defines the interface for report data access
type Repository interface {
	// Templates
	GetTemplate(ctx context.Context, id int64) (*ReportTemplate, error)
	ListTemplates(ctx context.Context, userID int64) ([]*ReportTemplate, error)
	AllTemplates(ctx context.Context) ([]*ReportTemplate, error)
	CountTemplates(ctx context.Context) (int, error)
	SaveTemplate(ctx context.Context, tmpl *ReportTemplate) (int64, error)
	DeleteTemplate(ctx context.Context, id, userID int64) error
	ShareTemplate(ctx context.Context, id, fromUserID, toUserID int64) (int64, error)

	// History
	AddHistory(ctx context.Context, entry *HistoryEntry) error
	ListHistory(ctx context.Context, reportID int64) ([]*HistoryEntry, error)
}

// SQLRepository implements Repository over the shared sqlx pool. Statements
// use "?" placeholders rebound for the driver.
type SQLRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLRepository creates a new repository
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db, now: time.Now}
}

const templateColumns = `id, user_id, config, type, created_at, updated_at`

// =====================================================
// Templates
// =====================================================

func (r *SQLRepository) GetTemplate(ctx context.Context, id int64) (*ReportTemplate, error) {
	var tmpl ReportTemplate
	query := r.db.Rebind(`SELECT ` + templateColumns + ` FROM report_templates WHERE id = ?`)
	if err := r.db.GetContext(ctx, &tmpl, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report template: %w", err)
	}
	if err := decodeTemplate(&tmpl); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *SQLRepository) ListTemplates(ctx context.Context, userID int64) ([]*ReportTemplate, error) {
	query := r.db.Rebind(`SELECT ` + templateColumns + ` FROM report_templates WHERE user_id = ? ORDER BY id`)
	return r.selectTemplates(ctx, query, userID)
}

func (r *SQLRepository) AllTemplates(ctx context.Context) ([]*ReportTemplate, error) {
	return r.selectTemplates(ctx, `SELECT `+templateColumns+` FROM report_templates ORDER BY id`)
}

func (r *SQLRepository) selectTemplates(ctx context.Context, query string, args ...interface{}) ([]*ReportTemplate, error) {
	templates := []*ReportTemplate{}
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list report templates: %w", err)
	}
	for _, t := range templates {
		if err := decodeTemplate(t); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

func (r *SQLRepository) CountTemplates(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM report_templates`); err != nil {
		return 0, fmt.Errorf("failed to count report templates: %w", err)
	}
	return n, nil
}

// SaveTemplate inserts a template without id or updates it in place, and
// appends a "saved" history entry in the same transaction.
func (r *SQLRepository) SaveTemplate(ctx context.Context, tmpl *ReportTemplate) (int64, error) {
	configJSON, err := json.Marshal(tmpl.Config)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config: %w", err)
	}
	now := r.now().UTC()

	id := tmpl.ID
	err = database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if id <= 0 {
			query := tx.Rebind(`
				INSERT INTO report_templates (user_id, config, type, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?)
				RETURNING id
			`)
			if err := tx.QueryRowxContext(ctx, query, tmpl.UserID, string(configJSON), tmpl.Type, now, now).Scan(&id); err != nil {
				return fmt.Errorf("failed to insert report template: %w", err)
			}
		} else {
			query := tx.Rebind(`UPDATE report_templates SET config = ?, type = ?, updated_at = ? WHERE id = ?`)
			result, err := tx.ExecContext(ctx, query, string(configJSON), tmpl.Type, now, id)
			if err != nil {
				return fmt.Errorf("failed to update report template: %w", err)
			}
			if rows, _ := result.RowsAffected(); rows == 0 {
				return ErrNotFound
			}
		}
		return insertHistory(ctx, tx, id, tmpl.UserID, ActionSaved, now)
	})
	if err != nil {
		return 0, err
	}

	tmpl.ID = id
	tmpl.RawConfig = string(configJSON)
	tmpl.UpdatedAt = now
	return id, nil
}

func (r *SQLRepository) DeleteTemplate(ctx context.Context, id, userID int64) error {
	now := r.now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM report_templates WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to delete report template: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return ErrNotFound
		}
		return insertHistory(ctx, tx, id, userID, ActionDeleted, now)
	})
}

// ShareTemplate copies a template to another user and returns the new id.
// History is recorded against the source template.
func (r *SQLRepository) ShareTemplate(ctx context.Context, id, fromUserID, toUserID int64) (int64, error) {
	now := r.now().UTC()
	var newID int64
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var src ReportTemplate
		query := tx.Rebind(`SELECT ` + templateColumns + ` FROM report_templates WHERE id = ?`)
		if err := tx.GetContext(ctx, &src, query, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get report template: %w", err)
		}

		insert := tx.Rebind(`
			INSERT INTO report_templates (user_id, config, type, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id
		`)
		if err := tx.QueryRowxContext(ctx, insert, toUserID, src.RawConfig, src.Type, now, now).Scan(&newID); err != nil {
			return fmt.Errorf("failed to copy report template: %w", err)
		}
		return insertHistory(ctx, tx, id, fromUserID, SharedAction(toUserID), now)
	})
	if err != nil {
		return 0, err
	}
	return newID, nil
}

func decodeTemplate(t *ReportTemplate) error {
	if err := json.Unmarshal([]byte(t.RawConfig), &t.Config); err != nil {
		return fmt.Errorf("failed to unmarshal config of template %d: %w", t.ID, err)
	}
	return nil
}

// =====================================================
// History
// =====================================================

func insertHistory(ctx context.Context, tx *sqlx.Tx, reportID, userID int64, action string, at time.Time) error {
	query := tx.Rebind(`INSERT INTO report_history (report_id, user_id, action, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, query, reportID, userID, action, at); err != nil {
		return fmt.Errorf("failed to record report history: %w", err)
	}
	return nil
}

func (r *SQLRepository) AddHistory(ctx context.Context, entry *HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	query := r.db.Rebind(`
		INSERT INTO report_history (report_id, user_id, action, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)
	if err := r.db.QueryRowxContext(ctx, query, entry.ReportID, entry.UserID, entry.Action, entry.CreatedAt).Scan(&entry.ID); err != nil {
		return fmt.Errorf("failed to add report history: %w", err)
	}
	return nil
}

func (r *SQLRepository) ListHistory(ctx context.Context, reportID int64) ([]*HistoryEntry, error) {
	entries := []*HistoryEntry{}
	query := r.db.Rebind(`
		SELECT id, report_id, user_id, action, created_at
		FROM report_history
		WHERE report_id = ?
		ORDER BY id
	`)
	if err := r.db.SelectContext(ctx, &entries, query, reportID); err != nil {
		return nil, fmt.Errorf("failed to list report history: %w", err)
	}
	return entries, nil
}

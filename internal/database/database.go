package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/H6ise/Sports-Inventory-accounting/internal/config"
	"github.com/H6ise/Sports-Inventory-accounting/pkg/security"
)

// Open connects to the configured database. The returned pool is the single
// shared connection for the process; sqlite is limited to one open connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxConnections > 0 {
			db.SetMaxOpenConns(cfg.MaxConnections)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.MaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.MaxLifetime)
		}
	}

	return db, nil
}

// Gorm wraps the shared pool in a gorm session
func Gorm(db *sqlx.DB) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch db.DriverName() {
	case "postgres":
		dialector = postgres.New(postgres.Config{Conn: db.DB})
	case "sqlite":
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", Conn: db.DB})
	default:
		return nil, fmt.Errorf("unsupported driver %q", db.DriverName())
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}
	return gdb, nil
}

// WithTx runs fn in a transaction, committing on success and rolling back otherwise
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// =====================================================
// Schema
// =====================================================

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 0,
		condition TEXT NOT NULL DEFAULT '',
		purchase_date DATE,
		service_life INTEGER NOT NULL DEFAULT 0,
		photo TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id SERIAL PRIMARY KEY,
		inventory_id INTEGER NOT NULL REFERENCES inventory(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL,
		booking_date DATE NOT NULL,
		class TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS logs (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS report_templates (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL,
		config TEXT NOT NULL,
		type TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS report_history (
		id SERIAL PRIMARY KEY,
		report_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_report_templates_user ON report_templates(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_report_history_report ON report_history(report_id)`,
}

// dialect rewrites the Postgres DDL for sqlite
func dialect(driver, stmt string) string {
	if driver != "sqlite" {
		return stmt
	}
	r := strings.NewReplacer(
		"SERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"DATE", "TEXT",
	)
	return r.Replace(stmt)
}

// Migrate creates the schema if it does not exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	return WithTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, dialect(db.DriverName(), stmt)); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}

// SeedAdmin creates the administrator account when it does not exist yet
func SeedAdmin(ctx context.Context, db *sqlx.DB, username, password string, logger *zap.Logger) (int64, error) {
	var id int64
	err := db.GetContext(ctx, &id, db.Rebind(`SELECT id FROM users WHERE username = ?`), username)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up admin user: %w", err)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return 0, err
	}

	query := db.Rebind(`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP) RETURNING id`)
	if err := db.QueryRowxContext(ctx, query, username, hash, "admin").Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to seed admin user: %w", err)
	}

	logger.Info("Seeded admin user", zap.String("username", username), zap.Int64("user_id", id))
	return id, nil
}

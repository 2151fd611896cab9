package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/H6ise/Sports-Inventory-accounting/internal/audit"
	"github.com/H6ise/Sports-Inventory-accounting/internal/bookings"
	"github.com/H6ise/Sports-Inventory-accounting/internal/config"
	"github.com/H6ise/Sports-Inventory-accounting/internal/database"
	"github.com/H6ise/Sports-Inventory-accounting/internal/inventory"
	"github.com/H6ise/Sports-Inventory-accounting/internal/logging"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/builder"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/chart"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/scheduler"
	"github.com/H6ise/Sports-Inventory-accounting/pkg/security"
	"github.com/H6ise/Sports-Inventory-accounting/pkg/storage"
)

// app holds the startup objects shared by every command
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *sqlx.DB
	keys      *security.KeyRing
	audit     *audit.SQLRecorder
	reports   *reports.Service
	inventory *inventory.Service
	cache     *inventory.Cache
	bookings  *bookings.Service
	sink      scheduler.ArtifactStore
}

// newApp loads configuration, opens and migrates the database and wires
// the services. The caller must Close it.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	var err error

	a.logger.Info("Connecting to database", zap.String("driver", a.cfg.Database.Driver))
	if a.db, err = database.Open(ctx, a.cfg.Database); err != nil {
		return err
	}
	if err := database.Migrate(ctx, a.db); err != nil {
		return err
	}

	if a.keys, err = security.LoadOrCreateKeyRing(a.cfg.Security.KeyFile); err != nil {
		return err
	}

	gdb, err := database.Gorm(a.db)
	if err != nil {
		return err
	}

	a.audit = audit.NewSQLRecorder(a.db, a.logger)

	designer := builder.NewReportDesigner()
	renderer := chart.NewRenderer(chart.Options{Width: a.cfg.Reports.ChartWidth, Height: a.cfg.Reports.ChartHeight})
	pipeline := reports.NewPipeline(reports.NewSQLQueryBuilder(a.db, designer), renderer, a.cfg.Reports.LogoPath, a.logger)
	a.reports = reports.NewService(reports.NewSQLRepository(a.db), pipeline, designer, a.audit, a.logger)

	a.cache = inventory.NewCache(a.cfg.Inventory.CacheTTL)
	a.inventory = inventory.NewService(inventory.NewGormRepository(gdb), a.cache, a.audit, a.cfg.Inventory.PageSize, a.logger)
	a.bookings = bookings.NewService(bookings.NewGormRepository(gdb), a.audit, a.logger)

	if a.sink, err = a.newSink(ctx); err != nil {
		return err
	}
	return nil
}

func (a *app) newSink(ctx context.Context) (scheduler.ArtifactStore, error) {
	st := a.cfg.Storage
	if st.Backend != "s3" {
		return scheduler.NewFileSink(st.Dir, a.logger), nil
	}

	client, err := storage.NewS3Client(ctx, storage.S3Config{
		Region:          st.Region,
		AccessKeyID:     st.AccessKeyID,
		SecretAccessKey: st.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}
	return scheduler.NewS3Sink(client, st.Bucket, st.Prefix, st.URLExpiry, a.logger), nil
}

func (a *app) newNotifier(ctx context.Context) (scheduler.Notifier, error) {
	n := a.cfg.Notify
	if n.Backend != "ses" {
		return scheduler.NewLogNotifier(a.logger), nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if a.cfg.Storage.Region != "" {
		opts = append(opts, awsconfig.WithRegion(a.cfg.Storage.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return scheduler.NewSESNotifier(sesv2.NewFromConfig(awsCfg), n.FromAddress, n.Recipients, a.logger), nil
}

func (a *app) backupJob() *scheduler.BackupJob {
	return scheduler.NewBackupJob(a.reports, a.inventory, a.bookings, a.keys, a.sink, a.logger)
}

func (a *app) restoreJob() *scheduler.RestoreJob {
	return scheduler.NewRestoreJob(a.sink, a.keys, a.db, a.logger)
}

func (a *app) reminderJob(ctx context.Context) (*scheduler.ReminderJob, error) {
	notifier, err := a.newNotifier(ctx)
	if err != nil {
		return nil, err
	}
	return scheduler.NewReminderJob(a.inventory, notifier, a.logger), nil
}

// Close releases everything init acquired
func (a *app) Close() {
	if a.cache != nil {
		a.cache.Stop()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	v1 "github.com/H6ise/Sports-Inventory-accounting/api/v1"
	"github.com/H6ise/Sports-Inventory-accounting/internal/audit"
	"github.com/H6ise/Sports-Inventory-accounting/internal/bookings"
	"github.com/H6ise/Sports-Inventory-accounting/internal/database"
	"github.com/H6ise/Sports-Inventory-accounting/internal/inventory"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/export"
	"github.com/H6ise/Sports-Inventory-accounting/internal/reports/scheduler"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "inventory-reports",
		Short: "School sports equipment inventory and reports",
		Long: `inventory-reports keeps the school's sports equipment catalogue and turns
saved report configurations into PDF, spreadsheet, HTML and CSV documents.

Examples:
  inventory-reports migrate --seed
  inventory-reports serve --config config.yaml
  inventory-reports export --id 3 --format xlsx --out ./exports
  inventory-reports restore backup_20260101T020000Z.bin`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to config file")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newExportCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newRemindersCmd(),
	)
	return root
}

// =====================================================
// serve
// =====================================================

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, export workers and scheduled jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	logger := a.logger

	worker := scheduler.NewExportWorker(a.reports, a.sink, logger, scheduler.WorkerConfig{
		MaxConcurrent: a.cfg.Worker.MaxConcurrent,
		QueueSize:     a.cfg.Worker.QueueSize,
		JobTimeout:    a.cfg.Worker.JobTimeout,
	})
	worker.Start(ctx)
	defer worker.Stop()

	manager, err := newScheduleManager(ctx, a)
	if err != nil {
		return err
	}
	if err := manager.Start(); err != nil {
		return err
	}
	defer manager.Stop()

	if !a.cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(&v1.API{
		Reports:   reports.NewHandler(a.reports, worker, logger),
		Inventory: inventory.NewHandler(a.inventory, logger),
		Bookings:  bookings.NewHandler(a.bookings, logger),
		Logs:      audit.NewHandler(a.audit, logger),
		DB:        a.db,
	})

	srv := &http.Server{
		Addr:         a.cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("Server started", zap.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}

func newScheduleManager(ctx context.Context, a *app) (*scheduler.ScheduleManager, error) {
	manager := scheduler.NewScheduleManager(a.logger, a.cfg.Worker.JobTimeout)

	reminders, err := a.reminderJob(ctx)
	if err != nil {
		return nil, err
	}
	err = manager.AddJob("reminders", a.cfg.Scheduler.RemindersCron, func(ctx context.Context) error {
		_, err := reminders.Run(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	backup := a.backupJob()
	err = manager.AddJob("backup", a.cfg.Scheduler.BackupCron, func(ctx context.Context) error {
		_, err := backup.Run(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return manager, nil
}

// =====================================================
// migrate
// =====================================================

func newMigrateCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema, optionally seeding the admin user and default templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if !seed {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			if a.cfg.Security.AdminPassword == "" {
				return fmt.Errorf("an admin password is required to seed (set INVENTORY_ADMIN_PASSWORD)")
			}

			adminID, err := database.SeedAdmin(ctx, a.db, a.cfg.Security.AdminUser, a.cfg.Security.AdminPassword, a.logger)
			if err != nil {
				return err
			}
			n, err := a.reports.SeedDefaultTemplates(ctx, adminID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date, seeded %d template(s) for user %d\n", n, adminID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "Seed the admin user and default report templates")
	return cmd
}

// =====================================================
// export
// =====================================================

func newExportCmd() *cobra.Command {
	var (
		id     int64
		userID int64
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a saved report template to a file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			artifact, err := a.reports.ExportTemplate(ctx, userID, id, f)
			if err != nil {
				return err
			}
			location, err := scheduler.NewFileSink(out, a.logger).Deliver(ctx, artifact.Name, artifact.ContentType, artifact.Data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), location)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Report template ID")
	cmd.Flags().Int64Var(&userID, "user", 0, "User ID recorded in the history")
	cmd.Flags().StringVar(&format, "format", string(export.FormatPDF), "Output format: pdf, xlsx, html or csv")
	cmd.Flags().StringVar(&out, "out", ".", "Output directory")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// =====================================================
// backup / restore / reminders
// =====================================================

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write an encrypted snapshot of templates and inventory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			location, err := a.backupJob().Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), location)
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup>",
		Short: "Replace templates, inventory and bookings with an encrypted snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.restoreJob().Run(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d template(s), %d item(s), %d booking(s) from %s\n",
				len(snap.Templates), len(snap.Items), len(snap.Bookings), snap.CreatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newRemindersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reminders",
		Short: "Send service-life reminders now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			job, err := a.reminderJob(ctx)
			if err != nil {
				return err
			}
			n, err := job.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d item(s) due for replacement\n", n)
			return nil
		},
	}
}

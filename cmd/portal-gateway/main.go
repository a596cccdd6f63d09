package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/portal/gateway/internal/config"
	"github.com/portal/gateway/internal/domain/healthcheck"
	"github.com/portal/gateway/internal/platform/db"
	"github.com/portal/gateway/internal/platform/logging"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal-gateway",
		Short: "Unified portal gateway for HR, hospital and hotel systems",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(syncCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run PostgreSQL migrations",
	}

	withMigrator := func(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for migrations")
		}
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.MigrationsDir
		}

		ctx := cmd.Context()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, poolOptions(cfg))
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, db.NewMigrator(pool, dir))
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetInt("to")
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.UpTo(ctx, target)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	upCmd.Flags().Int("to", 0, "Stop after this version (0 applies all)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}

				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

// syncCmd runs the sync workflows once, outside the HTTP server. Runs are
// recorded in the ledger as auto_sync so scheduled jobs can be told apart
// from operator-triggered ones.
func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a health-check sync once",
	}

	withSync := func(cmd *cobra.Command, fn func(ctx context.Context, svc *healthcheck.SyncService) (any, error)) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, closer := logging.New(logging.Options{Console: cfg.IsDev(), File: cfg.LogFile,
			MaxSizeMB: cfg.LogMaxSizeMB, MaxBackups: cfg.LogMaxBackups, MaxAgeDays: cfg.LogMaxAgeDays})
		defer closer.Close()

		ctx := cmd.Context()
		app, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := fn(ctx, app.sync)
		if err != nil {
			return err
		}
		logger.Info().Interface("result", res).Msg("sync finished")
		return nil
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Push HR's due employees to the hospital schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			campaignID, _ := cmd.Flags().GetString("campaign-id")
			name, _ := cmd.Flags().GetString("campaign-name")
			return withSync(cmd, func(ctx context.Context, svc *healthcheck.SyncService) (any, error) {
				return svc.SyncInit(ctx, campaignID, name, "system", healthcheck.SyncAuto)
			})
		},
	}
	initCmd.Flags().String("campaign-id", "", "Campaign id sent to the hospital (default generated)")
	initCmd.Flags().String("campaign-name", "", "Campaign name sent to the hospital")
	cmd.AddCommand(initCmd)

	resultsCmd := &cobra.Command{
		Use:   "results",
		Short: "Push completed hospital results back to HR",
		RunE: func(cmd *cobra.Command, args []string) error {
			campaignID, _ := cmd.Flags().GetString("campaign-id")
			return withSync(cmd, func(ctx context.Context, svc *healthcheck.SyncService) (any, error) {
				return svc.SyncResults(ctx, campaignID, "system", healthcheck.SyncAuto)
			})
		},
	}
	resultsCmd.Flags().String("campaign-id", "", "Campaign the ledger entry is filed under")
	cmd.AddCommand(resultsCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger, closer := logging.New(logging.Options{Console: os.Getenv("ENV") == "development"})

	// Config
	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.LogFile != "" {
		logger, closer = logging.New(logging.Options{
			Console:    cfg.IsDev(),
			File:       cfg.LogFile,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAgeDays: cfg.LogMaxAgeDays,
		})
	}
	defer closer.Close()

	ctx := context.Background()
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise gateway")
	}
	defer app.Close()
	logger.Info().Str("backend", cfg.StoreBackend).Msg("storage ready")

	e := newServer(cfg, logger, app)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

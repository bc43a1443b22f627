package main

import (
	"context"
	"fmt"
	"os"

	config "github.com/anjiri1684/training_academy/configs"
	"github.com/anjiri1684/training_academy/database"
	"github.com/anjiri1684/training_academy/jobs"
	"github.com/anjiri1684/training_academy/services"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// env is what every command needs before it does anything else.
type env struct {
	cfg      config.Config
	log      *logrus.Logger
	db       *gorm.DB
	settings *services.SettingsStore
}

func setup(ctx context.Context, migrate bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := utils.NewLogger(cfg.IsProduction())

	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		if err := database.SeedAdmin(db, cfg.Admin, log); err != nil {
			return nil, err
		}
	}

	settings := services.NewSettingsStore(db)
	if err := settings.Load(ctx); err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db, settings: settings}, nil
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func main() {
	root := &cobra.Command{
		Use:           "academy",
		Short:         "Sports academy booking and payments API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and background jobs",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply schema migrations and seed the admin account",
			RunE: func(cmd *cobra.Command, _ []string) error {
				e, err := setup(cmd.Context(), true)
				if err != nil {
					return err
				}
				defer e.close()
				e.log.Info("✅ Database migrated")
				return nil
			},
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Release stale gateway reservations once and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				e, err := setup(cmd.Context(), false)
				if err != nil {
					return err
				}
				defer e.close()

				job := jobs.NewPendingCleanupJob(services.Deps{
					DB:       e.db,
					Policy:   database.SerializablePolicy(e.cfg.Retry),
					Settings: e.settings,
					Log:      e.log,
					Currency: e.cfg.Currency,
				}, e.cfg.Jobs.SweepSafety)
				n, err := job.Sweep(cmd.Context())
				fmt.Fprintf(cmd.OutOrStdout(), "released %d stale reservations\n", n)
				return err
			},
		},
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "🔥", err)
		os.Exit(1)
	}
}

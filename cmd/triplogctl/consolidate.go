package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/welfare-transport/backend/internal/config"
	"github.com/welfare-transport/backend/internal/logging"
	"github.com/welfare-transport/backend/internal/repo"
	"github.com/welfare-transport/backend/internal/service"
)

func newConsolidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consolidate",
		Short: "Merge duplicate trip records and print the batch report",
		Long: `Groups trip records by date, driver and vehicle and merges every group
of two or more into its earliest record. Interrupting the command stops the
batch between groups; groups already merged stay merged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadDatabase()
			if err != nil {
				return err
			}
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("create database pool: %w", err)
			}
			defer pool.Close()

			svc := service.NewConsolidationService(
				repo.NewTripRecordRepo(pool),
				repo.NewTripDetailRepo(pool),
				repo.NewAdvisoryLock(pool, repo.ConsolidationLockKey),
				service.WithTransactor(repo.NewTransactor(pool)),
				service.WithLogger(logger),
			)

			report, runErr := svc.Run(ctx)
			if runErr != nil && !report.Interrupted {
				return runErr
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("consolidation interrupted: %w", runErr)
			}
			return nil
		},
	}
}

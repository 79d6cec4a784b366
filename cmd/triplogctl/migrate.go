package main

import (
	"context"
	"database/sql"
	"fmt"
	"text/tabwriter"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/welfare-transport/backend/internal/config"
	"github.com/welfare-transport/backend/migrations"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the embedded schema migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withProvider(func(ctx context.Context, cmd *cobra.Command, p *goose.Provider) error {
				results, err := p.Up(ctx)
				if err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no pending migrations")
				}
				for _, r := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s (%s)\n", r.Source.Path, r.Duration)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: withProvider(func(ctx context.Context, cmd *cobra.Command, p *goose.Provider) error {
				r, err := p.Down(ctx)
				if err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s (%s)\n", r.Source.Path, r.Duration)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			Args:  cobra.NoArgs,
			RunE: withProvider(func(ctx context.Context, cmd *cobra.Command, p *goose.Provider) error {
				statuses, err := p.Status(ctx)
				if err != nil {
					return fmt.Errorf("migrate status: %w", err)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
				for _, s := range statuses {
					applied := "-"
					if !s.AppliedAt.IsZero() {
						applied = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
				}
				return tw.Flush()
			}),
		},
	)
	return cmd
}

// withProvider opens DATABASE_URL through the pgx database/sql driver and
// hands fn a goose provider over the embedded migrations.
func withProvider(fn func(ctx context.Context, cmd *cobra.Command, p *goose.Provider) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadDatabase()
		if err != nil {
			return err
		}

		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
		if err != nil {
			return fmt.Errorf("create goose provider: %w", err)
		}
		return fn(cmd.Context(), cmd, p)
	}
}

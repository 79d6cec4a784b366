package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/welfare-transport/backend/internal/middleware"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with JWT_SECRET, for development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			r := middleware.Role(role)
			if !r.Valid() {
				return fmt.Errorf("role must be %q or %q, got %q", middleware.RoleDriver, middleware.RoleAdmin, role)
			}
			if ttl <= 0 {
				return errors.New("ttl must be positive")
			}

			tok, err := middleware.IssueToken(secret, subject, r, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject; a driver UUID for drivers")
	cmd.Flags().StringVar(&role, "role", string(middleware.RoleDriver), "driver or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

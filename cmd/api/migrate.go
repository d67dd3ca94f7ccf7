package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/brainscan/internal/config"
	"github.com/bryanwahyu/brainscan/internal/infra/db/migrations"
)

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	var inspect bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run or inspect database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Database.Driver == "memory" {
				return errors.New("migrate: database.driver is memory, nothing to migrate")
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer db.Close()

			if !inspect {
				if err := migrations.Up(cmd.Context(), db, cfg.Database.Driver); err != nil {
					return err
				}
			}
			v, err := migrations.Version(cmd.Context(), db, cfg.Database.Driver)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Current version: %d\n", v)
			return nil
		},
	}

	cmd.Flags().BoolVar(&inspect, "inspect", false, "print the current schema version without migrating")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"healthtrack/internal/records"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}

			db, err := records.OpenDB(a.cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := records.Migrate(cmd.Context(), db)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			for _, path := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date.\n", a.cfg.DatabasePath())
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/storage"
)

func migrateCmd() *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !status {
				if err := storage.RunMigrations(dbPath); err != nil {
					return err
				}
			}
			v, dirty, err := storage.MigrationVersion(dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "only print the current version")
	return cmd
}

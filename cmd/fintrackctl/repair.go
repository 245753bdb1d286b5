package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func repairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Seed default categories and re-link orphaned transactions",
		Long: `Runs the same repair pass the server runs at startup. Safe to repeat:
a second run reports no changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
				report, err := services.NewRepairService(repo, logger.Logger).InitializeAndRepair(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			})
		},
	}
}

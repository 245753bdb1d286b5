package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect categories",
	}
	cmd.AddCommand(categoriesListCmd())
	return cmd
}

func categoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories in display order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
				cats, err := services.NewCategoryService(repo, logger.Logger).List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tICON\tPREDEFINED")
				for _, c := range cats {
					fmt.Fprintf(tw, "%d\t%s\t#%06X\t%s\t%t\n", c.ID, c.Name, c.Color, c.Icon, c.Predefined)
				}
				return tw.Flush()
			})
		},
	}
}

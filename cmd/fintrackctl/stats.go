package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/stats"
	"fintrack/internal/storage"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print reports for a month",
	}
	cmd.AddCommand(statsSummaryCmd())
	return cmd
}

func statsSummaryCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Income, expenses and per-category totals for a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ref := time.Now()
			if month != "" {
				t, err := time.ParseInLocation("2006-01", month, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --month %q: want YYYY-MM", month)
				}
				ref = t
			}
			w := core.MonthWindow(ref)

			return withStore(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
				svc := services.NewStatsService(repo, services.NewBudgetService(repo))
				sum, err := svc.Summary(ctx, w)
				if err != nil {
					return err
				}
				byCat, err := svc.ByCategory(ctx, w, stats.KindExpense)
				if err != nil {
					return err
				}
				cats, err := repo.ListCategories(ctx)
				if err != nil {
					return err
				}
				names := make(map[int64]string, len(cats))
				for _, c := range cats {
					names[c.ID] = c.Name
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s\n", ref.Format("January 2006"))
				fmt.Fprintf(out, "income %s  expenses %s  balance %s  (%d transactions)\n\n",
					sum.Income, sum.Expenses, sum.Balance, sum.Count)

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CATEGORY\tSPENT\tCOUNT\tSHARE")
				for _, s := range byCat {
					name, ok := names[s.CategoryID]
					if !ok {
						name = fmt.Sprintf("#%d", s.CategoryID)
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f%%\n", name, s.Amount, s.Count, s.Percentage)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")
	return cmd
}

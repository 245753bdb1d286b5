package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/stats"
	"fintrack/internal/storage"
)

const (
	dashboardTopCategories = 5
	dashboardRecent        = 10
)

// StatsService loads transactions for a window and hands them to the stats package.
type StatsService struct {
	store   storage.Store
	budgets *BudgetService
}

func NewStatsService(store storage.Store, budgets *BudgetService) *StatsService {
	return &StatsService{store: store, budgets: budgets}
}

func (s *StatsService) load(ctx context.Context, w core.Window, kind string) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{Window: w, Kind: kind})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *StatsService) Summary(ctx context.Context, w core.Window) (core.Summary, error) {
	txs, err := s.load(ctx, w, "")
	if err != nil {
		return core.Summary{}, err
	}
	return stats.Summarize(txs, w), nil
}

func (s *StatsService) ByCategory(ctx context.Context, w core.Window, kind stats.Kind) ([]core.CategoryStat, error) {
	txs, err := s.load(ctx, w, string(kind))
	if err != nil {
		return nil, err
	}
	return stats.ByCategory(txs, w, kind), nil
}

func (s *StatsService) Trend(ctx context.Context, w core.Window) ([]core.MonthBucket, error) {
	txs, err := s.load(ctx, w, "")
	if err != nil {
		return nil, err
	}
	return stats.MonthlyTrend(txs, w), nil
}

func (s *StatsService) Average(ctx context.Context, now time.Time) (core.AverageExpense, error) {
	txs, err := s.load(ctx, core.MonthWindow(now), storage.KindExpense)
	if err != nil {
		return core.AverageExpense{}, err
	}
	return stats.AverageExpense(txs, now), nil
}

// Dashboard is the month overview shown on the home screen.
type Dashboard struct {
	Year          int
	Month         int
	Summary       core.Summary
	Average       *core.AverageExpense // only for the current month
	TopCategories []core.CategoryStat
	Budgets       []core.BudgetProgress
	Recent        []core.Transaction
}

// Dashboard runs the independent reads for one month concurrently.
func (s *StatsService) Dashboard(ctx context.Context, year, month int, now time.Time) (Dashboard, error) {
	if month < 1 || month > 12 {
		return Dashboard{}, fmt.Errorf("%w: month must be 1-12", core.ErrValidation)
	}
	w := core.MonthWindow(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, now.Location()))
	d := Dashboard{Year: year, Month: month}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		txs, err := s.load(gctx, w, "")
		if err != nil {
			return err
		}
		d.Summary = stats.Summarize(txs, w)
		top := stats.ByCategory(txs, w, stats.KindExpense)
		if len(top) > dashboardTopCategories {
			top = top[:dashboardTopCategories]
		}
		d.TopCategories = top
		return nil
	})

	g.Go(func() error {
		recent, err := s.store.ListTransactions(gctx, storage.TransactionFilter{Window: w, Limit: dashboardRecent})
		if err != nil {
			return fmt.Errorf("list recent transactions: %w", err)
		}
		d.Recent = recent
		return nil
	})

	if w.Contains(now) {
		g.Go(func() error {
			avg, err := s.Average(gctx, now)
			if err != nil {
				return err
			}
			d.Average = &avg
			return nil
		})

		if s.budgets != nil {
			g.Go(func() error {
				progress, err := s.budgets.Progress(gctx, now)
				if err != nil {
					return err
				}
				d.Budgets = progress
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

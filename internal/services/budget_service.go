package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/stats"
	"fintrack/internal/storage"
)

type BudgetService struct {
	store storage.Store
}

func NewBudgetService(store storage.Store) *BudgetService {
	return &BudgetService{store: store}
}

func (s *BudgetService) validate(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if _, err := s.store.GetCategory(ctx, b.CategoryID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("%w: %d", core.ErrUnknownCategory, b.CategoryID)
		}
		return fmt.Errorf("lookup category: %w", err)
	}
	return nil
}

func (s *BudgetService) List(ctx context.Context) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx)
}

func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := s.validate(ctx, b); err != nil {
		return core.Budget{}, err
	}
	created, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return created, nil
}

func (s *BudgetService) Update(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := s.validate(ctx, b); err != nil {
		return core.Budget{}, err
	}
	if err := s.store.UpdateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteBudget(ctx, id)
}

// Progress computes every budget against its current period window.
// Spending is read once, covering the widest window in use.
func (s *BudgetService) Progress(ctx context.Context, now time.Time) ([]core.BudgetProgress, error) {
	budgets, err := s.store.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return []core.BudgetProgress{}, nil
	}

	var span core.Window
	for _, b := range budgets {
		w, err := stats.PeriodWindow(b.Period, now)
		if err != nil {
			return nil, err
		}
		if span.Start.IsZero() || w.Start.Before(span.Start) {
			span.Start = w.Start
		}
		if w.End.After(span.End) {
			span.End = w.End
		}
	}

	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{Window: span, Kind: storage.KindExpense})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]core.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		p, err := stats.BudgetProgress(b, txs, now)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Package services holds the application operations shared by the HTTP API,
// the worker and the admin CLI.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// RepairReport describes what a repair run changed.
type RepairReport struct {
	SeededDefaults         int   `json:"seeded_defaults"`
	FallbackCategoryID     int64 `json:"fallback_category_id"`
	ReassignedTransactions int64 `json:"reassigned_transactions"`
	RemovedBudgets         int64 `json:"removed_budgets"`
}

// Changed reports whether the run modified anything.
func (r RepairReport) Changed() bool {
	return r.SeededDefaults > 0 || r.ReassignedTransactions > 0 || r.RemovedBudgets > 0
}

// RepairService seeds the default categories and re-links orphaned rows.
type RepairService struct {
	store  storage.Store
	logger *slog.Logger
}

func NewRepairService(store storage.Store, logger *slog.Logger) *RepairService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepairService{store: store, logger: logger.With("component", "repair")}
}

// InitializeAndRepair makes every transaction resolve to a live category.
// It is idempotent: a second run changes nothing.
func (s *RepairService) InitializeAndRepair(ctx context.Context) (RepairReport, error) {
	var report RepairReport

	count, err := s.store.CountCategories(ctx)
	if err != nil {
		return report, fmt.Errorf("count categories: %w", err)
	}
	if count == 0 {
		seeded, err := s.store.SeedCategories(ctx, core.NewDefaultCategories())
		if err != nil {
			return report, fmt.Errorf("seed default categories: %w", err)
		}
		report.SeededDefaults = len(seeded)
		s.logger.InfoContext(ctx, "Seeded default categories", "count", len(seeded))
	}

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return report, fmt.Errorf("list categories: %w", err)
	}
	if len(cats) == 0 {
		return report, fmt.Errorf("no categories after seeding")
	}
	report.FallbackCategoryID = cats[0].ID

	orphans, err := s.store.ListOrphanedTransactions(ctx)
	if err != nil {
		return report, fmt.Errorf("list orphaned transactions: %w", err)
	}
	if len(orphans) > 0 {
		n, err := s.store.ReassignOrphanedTransactions(ctx, report.FallbackCategoryID)
		if err != nil {
			return report, fmt.Errorf("reassign orphaned transactions: %w", err)
		}
		report.ReassignedTransactions = n
		s.logger.WarnContext(ctx, "Re-linked orphaned transactions",
			"count", n,
			"fallback_category_id", report.FallbackCategoryID)
	}

	removed, err := s.store.DeleteOrphanedBudgets(ctx)
	if err != nil {
		return report, fmt.Errorf("delete orphaned budgets: %w", err)
	}
	report.RemovedBudgets = removed
	if removed > 0 {
		s.logger.WarnContext(ctx, "Removed budgets of deleted categories", "count", removed)
	}

	return report, nil
}

// ErrRepairPending is reported by StartupRepair.Ready while the run is in flight.
var ErrRepairPending = errors.New("category repair has not finished")

// StartupRepair is a repair pass run once in the background at process start.
// The process is ready once the pass has finished; a failed pass is logged and
// retried on the next start, so it does not hold readiness back.
type StartupRepair struct {
	done   chan struct{}
	report RepairReport
	err    error
}

// RunAtStartup starts InitializeAndRepair in a goroutine.
func (s *RepairService) RunAtStartup(ctx context.Context) *StartupRepair {
	r := &StartupRepair{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.report, r.err = s.InitializeAndRepair(ctx)
		if r.err != nil {
			s.logger.ErrorContext(ctx, "Category repair failed, continuing without it", "error", r.err)
			return
		}
		s.logger.InfoContext(ctx, "Category repair finished",
			"changed", r.report.Changed(),
			"seeded", r.report.SeededDefaults,
			"reassigned", r.report.ReassignedTransactions)
	}()
	return r
}

// Done is closed when the pass has finished.
func (r *StartupRepair) Done() <-chan struct{} {
	return r.done
}

// Result returns the outcome; only meaningful after Done is closed.
func (r *StartupRepair) Result() (RepairReport, error) {
	<-r.done
	return r.report, r.err
}

func (r *StartupRepair) Ready(context.Context) error {
	select {
	case <-r.done:
		return nil
	default:
		return ErrRepairPending
	}
}

// FallbackCategory returns the lowest-id category, excluding the given ids.
func FallbackCategory(cats []core.Category, exclude ...int64) (core.Category, bool) {
	for _, c := range cats {
		skip := false
		for _, id := range exclude {
			if c.ID == id {
				skip = true
				break
			}
		}
		if !skip {
			return c, true
		}
	}
	return core.Category{}, false
}

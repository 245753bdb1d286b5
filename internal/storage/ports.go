package storage

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// Ports implemented by the SQLite repository and the in-memory store.
type (
	CategoryStore interface {
		// ListCategories returns every category ordered by id.
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
		CountCategories(ctx context.Context) (int64, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		// SeedCategories inserts cats in order within one transaction.
		SeedCategories(ctx context.Context, cats []core.Category) ([]core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) error
		// DeleteCategory moves the category's transactions to fallbackID, drops its
		// budgets and deletes it, atomically. Returns the number of moved transactions.
		DeleteCategory(ctx context.Context, id, fallbackID int64) (int64, error)
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// CreateTransactions inserts the batch all-or-nothing.
		CreateTransactions(ctx context.Context, ts []core.Transaction) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id int64) error
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		// ListOrphanedTransactions returns transactions whose category does not exist.
		ListOrphanedTransactions(ctx context.Context) ([]core.Transaction, error)
		// ReassignOrphanedTransactions points every orphan at fallbackID in one update.
		ReassignOrphanedTransactions(ctx context.Context, fallbackID int64) (int64, error)
		ListUnsyncedTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
		MarkTransactionSynced(ctx context.Context, id int64, at time.Time) error
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		GetBudget(ctx context.Context, id int64) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, id int64) error
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		// DeleteOrphanedBudgets removes budgets whose category does not exist.
		DeleteOrphanedBudgets(ctx context.Context) (int64, error)
	}

	// Store is the full persistence surface.
	Store interface {
		CategoryStore
		TransactionStore
		BudgetStore
		Close() error
	}
)

// TransactionFilter narrows ListTransactions. Zero values mean "no constraint".
type TransactionFilter struct {
	Window     core.Window
	CategoryID int64
	// Kind: "" for all, "expense" or "income".
	Kind  string
	Limit int
}

const (
	KindExpense = "expense"
	KindIncome  = "income"
)

// Matches applies the filter in memory.
func (f TransactionFilter) Matches(t core.Transaction) bool {
	if !f.Window.Contains(t.Date) {
		return false
	}
	if f.CategoryID != 0 && t.CategoryID != f.CategoryID {
		return false
	}
	switch f.Kind {
	case KindExpense:
		return t.IsExpense
	case KindIncome:
		return !t.IsExpense
	}
	return true
}

package storage

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestMigrationsApplied(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "m.db")
	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	v, dirty, err := MigrationVersion(dbPath)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, RunMigrations(dbPath))
}

func TestSeedCategoriesPreservesOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	n, err := repo.CountCategories(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	seeded, err := repo.SeedCategories(ctx, core.NewDefaultCategories())
	require.NoError(t, err)
	require.Len(t, seeded, len(core.DefaultCategories))

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, len(core.DefaultCategories))
	for i, c := range cats {
		assert.Equal(t, core.DefaultCategories[i].Name, c.Name)
		assert.Equal(t, seeded[i].ID, c.ID)
		assert.True(t, c.Predefined)
		if i > 0 {
			assert.Greater(t, c.ID, cats[i-1].ID)
		}
	}
}

func TestCategoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	c, err := repo.CreateCategory(ctx, core.Category{Name: "Pets", Color: 0x123456, Icon: "pets"})
	require.NoError(t, err)
	require.NotZero(t, c.ID)

	c.Name = "Animals"
	require.NoError(t, repo.UpdateCategory(ctx, c))

	got, err := repo.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Animals", got.Name)
	assert.Equal(t, uint32(0x123456), got.Color)
	assert.False(t, got.Predefined)

	_, err = repo.GetCategory(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateCategory(ctx, core.Category{ID: 999, Name: "x"}), core.ErrNotFound)
}

func TestDeleteCategoryReassigns(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	fallback, err := repo.CreateCategory(ctx, core.Category{Name: "Other"})
	require.NoError(t, err)
	pets, err := repo.CreateCategory(ctx, core.Category{Name: "Pets"})
	require.NoError(t, err)

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		Amount: core.Money{Cents: 500}, Title: "Food", CategoryID: pets.ID, Date: day(2025, 3, 1), IsExpense: true,
	})
	require.NoError(t, err)
	_, err = repo.CreateBudget(ctx, core.Budget{CategoryID: pets.ID, Amount: core.Money{Cents: 1000}, Period: core.Monthly})
	require.NoError(t, err)

	moved, err := repo.DeleteCategory(ctx, pets.ID, fallback.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	got, err := repo.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, fallback.ID, got.CategoryID)

	budgets, err := repo.ListBudgets(ctx)
	require.NoError(t, err)
	assert.Empty(t, budgets)

	_, err = repo.DeleteCategory(ctx, pets.ID, fallback.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateTransactionsIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	good := core.Transaction{Amount: core.Money{Cents: 129}, Title: "Milk", CategoryID: 1, Date: day(2025, 1, 2), IsExpense: true}
	bad := good
	bad.Amount = core.Money{Cents: 0} // rejected by the CHECK constraint

	_, err := repo.CreateTransactions(ctx, []core.Transaction{good, bad})
	require.Error(t, err)

	all, err := repo.ListTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	rows, err := repo.CreateTransactions(ctx, []core.Transaction{good, good})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
}

func TestListTransactionsFilter(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	seed := []core.Transaction{
		{Amount: core.Money{Cents: 300000}, Title: "Salary", CategoryID: 9, Date: day(2025, 2, 1), IsExpense: false},
		{Amount: core.Money{Cents: 1200}, Title: "Bus", CategoryID: 2, Date: day(2025, 2, 3), IsExpense: true},
		{Amount: core.Money{Cents: 4500}, Title: "Dinner", CategoryID: 1, Date: day(2025, 2, 27), IsExpense: true},
		{Amount: core.Money{Cents: 900}, Title: "Lunch", CategoryID: 1, Date: day(2025, 3, 1), IsExpense: true},
	}
	_, err := repo.CreateTransactions(ctx, seed)
	require.NoError(t, err)

	feb := core.MonthWindow(day(2025, 2, 10))

	tests := []struct {
		name   string
		filter TransactionFilter
		titles []string
	}{
		{"window", TransactionFilter{Window: feb}, []string{"Dinner", "Bus", "Salary"}},
		{"category", TransactionFilter{CategoryID: 1}, []string{"Lunch", "Dinner"}},
		{"income", TransactionFilter{Kind: KindIncome}, []string{"Salary"}},
		{"expense in window", TransactionFilter{Window: feb, Kind: KindExpense}, []string{"Dinner", "Bus"}},
		{"limit", TransactionFilter{Limit: 1}, []string{"Lunch"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListTransactions(ctx, tt.filter)
			require.NoError(t, err)
			titles := make([]string, 0, len(got))
			for _, tx := range got {
				titles = append(titles, tx.Title)
				assert.True(t, tt.filter.Matches(tx))
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestOrphanRepairQueries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	cat, err := repo.CreateCategory(ctx, core.Category{Name: "Food"})
	require.NoError(t, err)

	_, err = repo.CreateTransactions(ctx, []core.Transaction{
		{Amount: core.Money{Cents: 100}, Title: "ok", CategoryID: cat.ID, Date: day(2025, 1, 1), IsExpense: true},
		{Amount: core.Money{Cents: 100}, Title: "orphan", CategoryID: 99, Date: day(2025, 1, 1), IsExpense: true},
	})
	require.NoError(t, err)
	_, err = repo.CreateBudget(ctx, core.Budget{CategoryID: 42, Amount: core.Money{Cents: 100}, Period: core.Daily})
	require.NoError(t, err)

	orphans, err := repo.ListOrphanedTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "orphan", orphans[0].Title)

	n, err := repo.ReassignOrphanedTransactions(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	orphans, err = repo.ListOrphanedTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	removed, err := repo.DeleteOrphanedBudgets(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestSyncBookkeeping(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		Amount: core.Money{Cents: 250}, Title: "Coffee", CategoryID: 1, Date: day(2025, 5, 5), IsExpense: true,
	})
	require.NoError(t, err)

	pending, err := repo.ListUnsyncedTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.MarkTransactionSynced(ctx, tx.ID, time.Now()))
	pending, err = repo.ListUnsyncedTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Edits make the row eligible again.
	tx.Title = "Espresso"
	require.NoError(t, repo.UpdateTransaction(ctx, tx))
	pending, err = repo.ListUnsyncedTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Espresso", pending[0].Title)
	assert.True(t, pending[0].Date.Equal(day(2025, 5, 5)))
}

func TestReassignedTransactionsAreExportedAgain(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Now()

	fallback, err := repo.CreateCategory(ctx, core.Category{Name: "Other"})
	require.NoError(t, err)
	user, err := repo.CreateCategory(ctx, core.Category{Name: "Hobbies"})
	require.NoError(t, err)

	created, err := repo.CreateTransactions(ctx, []core.Transaction{
		{Amount: core.Money{Cents: 900}, Title: "Paint", CategoryID: user.ID, Date: day(2025, 2, 1), IsExpense: true},
		{Amount: core.Money{Cents: 500}, Title: "Legacy", CategoryID: 77, Date: day(2025, 2, 2), IsExpense: true},
	})
	require.NoError(t, err)
	for _, tx := range created {
		require.NoError(t, repo.MarkTransactionSynced(ctx, tx.ID, now))
	}
	pending, err := repo.ListUnsyncedTransactions(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	moved, err := repo.DeleteCategory(ctx, user.ID, fallback.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)
	pending, err = repo.ListUnsyncedTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Paint", pending[0].Title)
	assert.Equal(t, fallback.ID, pending[0].CategoryID)
	require.NoError(t, repo.MarkTransactionSynced(ctx, pending[0].ID, now))

	n, err := repo.ReassignOrphanedTransactions(ctx, fallback.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	pending, err = repo.ListUnsyncedTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Legacy", pending[0].Title)
	assert.Equal(t, fallback.ID, pending[0].CategoryID)
}

func TestDeleteCategoryDoesNotLog(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	keep, err := repo.CreateCategory(ctx, core.Category{Name: "Other"})
	require.NoError(t, err)
	gone, err := repo.CreateCategory(ctx, core.Category{Name: "Pets"})
	require.NoError(t, err)
	_, err = repo.DeleteCategory(ctx, gone.ID, keep.ID)
	require.NoError(t, err)

	assert.Empty(t, buf.String(), "the category service owns the deletion log line")
}

func TestBudgetCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	b, err := repo.CreateBudget(ctx, core.Budget{CategoryID: 1, Amount: core.Money{Cents: 20000}, Period: core.Weekly})
	require.NoError(t, err)

	b.Period = core.Yearly
	require.NoError(t, repo.UpdateBudget(ctx, b))
	got, err := repo.GetBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Yearly, got.Period)

	require.NoError(t, repo.DeleteBudget(ctx, b.ID))
	assert.ErrorIs(t, repo.DeleteBudget(ctx, b.ID), core.ErrNotFound)
}

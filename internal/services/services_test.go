package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu      sync.Mutex
	synced  []int64
	deleted []int64
	err     error
}

func (p *recordingPublisher) PublishTransactionSync(_ context.Context, id, _ int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.synced = append(p.synced, id)
	return nil
}

func (p *recordingPublisher) PublishTransactionDelete(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.deleted = append(p.deleted, id)
	return nil
}

func seeded(t *testing.T) (*memory.Store, []core.Category) {
	t.Helper()
	store := memory.New()
	cats, err := store.SeedCategories(context.Background(), core.NewDefaultCategories())
	require.NoError(t, err)
	return store, cats
}

func expense(cents, cat int64, title string, date time.Time) core.Transaction {
	return core.Transaction{
		Amount:     core.Money{Cents: cents},
		Title:      title,
		CategoryID: cat,
		Date:       date,
		IsExpense:  true,
	}
}

func TestRepairSeedsAndRelinksOrphans(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	orphan, err := store.CreateTransaction(ctx, expense(500, 99, "Lunch", time.Now()))
	require.NoError(t, err)
	_, err = store.CreateBudget(ctx, core.Budget{CategoryID: 99, Amount: core.Money{Cents: 1000}, Period: core.Monthly})
	require.NoError(t, err)

	report, err := NewRepairService(store, quietLogger()).InitializeAndRepair(ctx)
	require.NoError(t, err)

	assert.Equal(t, len(core.DefaultCategories), report.SeededDefaults)
	assert.EqualValues(t, 1, report.ReassignedTransactions)
	assert.EqualValues(t, 1, report.RemovedBudgets)

	cats, err := store.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 10)
	assert.Equal(t, "Food", cats[0].Name)
	assert.Equal(t, cats[0].ID, report.FallbackCategoryID)

	got, err := store.GetTransaction(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, cats[0].ID, got.CategoryID)
}

func TestRepairIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.CreateTransaction(ctx, expense(500, 42, "Taxi", time.Now()))
	require.NoError(t, err)

	svc := NewRepairService(store, quietLogger())
	first, err := svc.InitializeAndRepair(ctx)
	require.NoError(t, err)
	require.True(t, first.Changed())

	second, err := svc.InitializeAndRepair(ctx)
	require.NoError(t, err)
	assert.False(t, second.Changed())
	assert.Equal(t, first.FallbackCategoryID, second.FallbackCategoryID)

	orphans, err := store.ListOrphanedTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestRepairKeepsExistingCategories(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	custom, err := store.CreateCategory(ctx, core.Category{Name: "Pets"})
	require.NoError(t, err)

	report, err := NewRepairService(store, quietLogger()).InitializeAndRepair(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.SeededDefaults)
	assert.Equal(t, custom.ID, report.FallbackCategoryID)
}

type lockedStore struct {
	*memory.Store
}

func (lockedStore) CountCategories(context.Context) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestStartupRepairFailureStillBecomesReady(t *testing.T) {
	run := NewRepairService(lockedStore{memory.New()}, quietLogger()).RunAtStartup(context.Background())

	<-run.Done()
	_, err := run.Result()
	require.ErrorContains(t, err, "database is locked")
	assert.NoError(t, run.Ready(context.Background()))
}

func TestStartupRepairSuccess(t *testing.T) {
	store := memory.New()
	run := NewRepairService(store, quietLogger()).RunAtStartup(context.Background())

	report, err := run.Result()
	require.NoError(t, err)
	assert.Equal(t, len(core.DefaultCategories), report.SeededDefaults)
	assert.NoError(t, run.Ready(context.Background()))
}

func TestFallbackCategory(t *testing.T) {
	cats := []core.Category{{ID: 3}, {ID: 5}, {ID: 9}}

	tests := []struct {
		name    string
		exclude []int64
		want    int64
		ok      bool
	}{
		{"first", nil, 3, true},
		{"skip first", []int64{3}, 5, true},
		{"skip all", []int64{3, 5, 9}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FallbackCategory(cats, tt.exclude...)
			if ok != tt.ok || got.ID != tt.want {
				t.Errorf("FallbackCategory() = %d, %v, want %d, %v", got.ID, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCategoryDelete(t *testing.T) {
	ctx := context.Background()
	store, cats := seeded(t)
	svc := NewCategoryService(store, quietLogger())

	t.Run("predefined refused", func(t *testing.T) {
		_, err := svc.Delete(ctx, cats[1].ID)
		assert.ErrorIs(t, err, core.ErrPredefinedCategory)
	})

	t.Run("reassigns transactions and drops budgets", func(t *testing.T) {
		pets, err := svc.Create(ctx, core.Category{Name: "  Pets ", Predefined: true})
		require.NoError(t, err)
		assert.False(t, pets.Predefined)
		assert.Equal(t, "Pets", pets.Name)

		tx, err := store.CreateTransaction(ctx, expense(1200, pets.ID, "Vet", time.Now()))
		require.NoError(t, err)
		_, err = store.CreateBudget(ctx, core.Budget{CategoryID: pets.ID, Amount: core.Money{Cents: 5000}, Period: core.Monthly})
		require.NoError(t, err)

		moved, err := svc.Delete(ctx, pets.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, moved)

		got, err := store.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, cats[0].ID, got.CategoryID)

		budgets, err := store.ListBudgets(ctx)
		require.NoError(t, err)
		assert.Empty(t, budgets)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.Delete(ctx, 999)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestCategoryDeleteLast(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	only, err := store.CreateCategory(ctx, core.Category{Name: "Only"})
	require.NoError(t, err)

	_, err = NewCategoryService(store, quietLogger()).Delete(ctx, only.ID)
	assert.ErrorIs(t, err, core.ErrLastCategory)
}

func TestCategoryUpdateKeepsPredefined(t *testing.T) {
	ctx := context.Background()
	store, cats := seeded(t)
	svc := NewCategoryService(store, quietLogger())

	food := cats[0]
	food.Name = "Eating out"
	food.Predefined = false
	updated, err := svc.Update(ctx, food)
	require.NoError(t, err)
	assert.True(t, updated.Predefined)

	_, err = svc.Update(ctx, core.Category{ID: food.ID, Name: " "})
	assert.ErrorIs(t, err, core.ErrEmptyName)
}

func TestTransactionCreate(t *testing.T) {
	ctx := context.Background()
	store, cats := seeded(t)
	pub := &recordingPublisher{}
	svc := NewTransactionService(store, pub, quietLogger())

	created, err := svc.Create(ctx, expense(1500, cats[0].ID, "  Pizza  ", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "Pizza", created.Title)
	assert.Equal(t, []int64{created.ID}, pub.synced)

	_, err = svc.Create(ctx, expense(1500, 999, "Pizza", time.Now()))
	assert.ErrorIs(t, err, core.ErrUnknownCategory)
	assert.True(t, core.IsValidation(err))

	_, err = svc.Create(ctx, expense(0, cats[0].ID, "Pizza", time.Now()))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestTransactionPublishFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	store, cats := seeded(t)
	svc := NewTransactionService(store, &recordingPublisher{err: errors.New("broker down")}, quietLogger())

	created, err := svc.Create(ctx, expense(300, cats[0].ID, "Coffee", time.Now()))
	require.NoError(t, err)

	stored, err := store.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", stored.Title)

	require.NoError(t, svc.Delete(ctx, created.ID))
}

func TestTransactionWithoutPublisher(t *testing.T) {
	ctx := context.Background()
	store, cats := seeded(t)
	svc := NewTransactionService(store, nil, nil)

	created, err := svc.Create(ctx, expense(300, cats[0].ID, "Coffee", time.Now()))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))
}

func TestTransactionCreateBatch(t *testing.T) {
	ctx := context.Background()
	store, cats := seeded(t)
	pub := &recordingPublisher{}
	svc := NewTransactionService(store, pub, quietLogger())
	now := time.Now()

	_, err := svc.CreateBatch(ctx, nil)
	assert.ErrorIs(t, err, core.ErrNoDrafts)

	bad := []core.Transaction{
		expense(100, cats[0].ID, "Milk", now),
		expense(200, 404, "Bread", now),
	}
	_, err = svc.CreateBatch(ctx, bad)
	assert.ErrorIs(t, err, core.ErrUnknownCategory)

	all, err := store.ListTransactions(ctx, storage.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, all, "a rejected batch must not write anything")

	good := []core.Transaction{
		expense(100, cats[0].ID, "Milk", now),
		expense(200, cats[7].ID, "Bread", now),
	}
	created, err := svc.CreateBatch(ctx, good)
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Len(t, pub.synced, 2)
}

func TestTransactionUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store, cats := seeded(t)
	pub := &recordingPublisher{}
	svc := NewTransactionService(store, pub, quietLogger())

	created, err := svc.Create(ctx, expense(100, cats[0].ID, "Milk", time.Now()))
	require.NoError(t, err)

	created.Amount = core.Money{Cents: 250}
	_, err = svc.Update(ctx, created)
	require.NoError(t, err)
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 250, got.Amount.Cents)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.Equal(t, []int64{created.ID}, pub.deleted)

	err = svc.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBudgetProgress(t *testing.T) {
	ctx := context.Background()
	store, cats := seeded(t)
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	food := cats[0].ID

	budgets := NewBudgetService(store)
	_, err := budgets.Create(ctx, core.Budget{CategoryID: food, Amount: core.Money{Cents: 10000}, Period: core.Monthly})
	require.NoError(t, err)
	_, err = budgets.Create(ctx, core.Budget{CategoryID: food, Amount: core.Money{Cents: 1000}, Period: core.Daily})
	require.NoError(t, err)

	_, err = budgets.Create(ctx, core.Budget{CategoryID: 999, Amount: core.Money{Cents: 1000}, Period: core.Daily})
	assert.ErrorIs(t, err, core.ErrUnknownCategory)
	_, err = budgets.Create(ctx, core.Budget{CategoryID: food, Amount: core.Money{Cents: 1000}, Period: "hourly"})
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)

	for _, tx := range []core.Transaction{
		expense(2500, food, "Groceries", time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)),
		expense(1500, food, "Lunch", time.Date(2025, 3, 15, 13, 0, 0, 0, time.UTC)),
		expense(9000, food, "Last month", time.Date(2025, 2, 27, 9, 0, 0, 0, time.UTC)),
	} {
		_, err := store.CreateTransaction(ctx, tx)
		require.NoError(t, err)
	}

	progress, err := budgets.Progress(ctx, now)
	require.NoError(t, err)
	require.Len(t, progress, 2)

	monthly, daily := progress[0], progress[1]
	if monthly.Budget.Period != core.Monthly {
		monthly, daily = daily, monthly
	}
	assert.EqualValues(t, 4000, monthly.Spent.Cents)
	assert.EqualValues(t, 6000, monthly.Remaining.Cents)
	assert.InDelta(t, 0.4, monthly.Fraction, 1e-9)

	assert.EqualValues(t, 1500, daily.Spent.Cents)
	assert.EqualValues(t, 0, daily.Remaining.Cents)
	assert.InDelta(t, 1.0, daily.Fraction, 1e-9)
}

func TestBudgetProgressEmpty(t *testing.T) {
	store, _ := seeded(t)
	progress, err := NewBudgetService(store).Progress(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, progress)
}

func TestStatsDashboard(t *testing.T) {
	ctx := context.Background()
	store, cats := seeded(t)
	now := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

	income := core.Transaction{
		Amount: core.Money{Cents: 300000}, Title: "Salary",
		CategoryID: cats[8].ID, Date: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	_, err := store.CreateTransaction(ctx, income)
	require.NoError(t, err)
	_, err = store.CreateTransaction(ctx, expense(180000, cats[4].ID, "Rent", time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	budgets := NewBudgetService(store)
	_, err = budgets.Create(ctx, core.Budget{CategoryID: cats[4].ID, Amount: core.Money{Cents: 200000}, Period: core.Monthly})
	require.NoError(t, err)

	svc := NewStatsService(store, budgets)
	d, err := svc.Dashboard(ctx, 2025, 3, now)
	require.NoError(t, err)

	assert.EqualValues(t, 300000, d.Summary.Income.Cents)
	assert.EqualValues(t, 180000, d.Summary.Expenses.Cents)
	assert.EqualValues(t, 120000, d.Summary.Balance.Cents)
	require.Len(t, d.TopCategories, 1)
	assert.Equal(t, cats[4].ID, d.TopCategories[0].CategoryID)
	assert.Len(t, d.Recent, 2)
	require.NotNil(t, d.Average)
	assert.Equal(t, 14, d.Average.ElapsedDays)
	assert.Len(t, d.Budgets, 1)

	past, err := svc.Dashboard(ctx, 2025, 1, now)
	require.NoError(t, err)
	assert.Nil(t, past.Average)
	assert.Empty(t, past.Budgets)
	assert.Zero(t, past.Summary.Count)

	_, err = svc.Dashboard(ctx, 2025, 13, now)
	assert.ErrorIs(t, err, core.ErrValidation)
}

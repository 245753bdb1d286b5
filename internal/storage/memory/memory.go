// Package memory is an in-process Store used by the memory backend and by tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type txRow struct {
	t      core.Transaction
	synced bool
}

type Store struct {
	mu      sync.Mutex
	nextID  int64
	cats    map[int64]core.Category
	txs     map[int64]*txRow
	budgets map[int64]core.Budget
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		cats:    map[int64]core.Category{},
		txs:     map[int64]*txRow{},
		budgets: map[int64]core.Budget{},
	}
}

// id hands out ids from a single sequence; callers hold mu.
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Close() error { return nil }

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[id]
	if !ok {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) CountCategories(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.cats)), nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.cats[c.ID] = c
	return c, nil
}

func (s *Store) SeedCategories(_ context.Context, cats []core.Category) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(cats))
	for _, c := range cats {
		c.ID = s.id()
		s.cats[c.ID] = c
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.cats[c.ID]
	if !ok {
		return fmt.Errorf("category %d: %w", c.ID, core.ErrNotFound)
	}
	c.Predefined = old.Predefined
	s.cats[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id, fallbackID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[id]; !ok {
		return 0, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	var moved int64
	for _, row := range s.txs {
		if row.t.CategoryID == id {
			row.t.CategoryID = fallbackID
			row.synced = false
			moved++
		}
	}
	for bid, b := range s.budgets {
		if b.CategoryID == id {
			delete(s.budgets, bid)
		}
	}
	delete(s.cats, id)
	return moved, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Amount.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	s.txs[t.ID] = &txRow{t: t}
	return t, nil
}

func (s *Store) CreateTransactions(_ context.Context, ts []core.Transaction) ([]core.Transaction, error) {
	// Check the whole batch first so a failure leaves nothing behind.
	for i, t := range ts {
		if err := t.Amount.Validate(); err != nil {
			return nil, fmt.Errorf("insert transaction %d: %w", i, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(ts))
	for _, t := range ts {
		t.ID = s.id()
		s.txs[t.ID] = &txRow{t: t}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return row.t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[t.ID]; !ok {
		return fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	s.txs[t.ID] = &txRow{t: t}
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	delete(s.txs, id)
	return nil
}

// ListTransactions mirrors the SQL ordering: newest first, ties by id desc.
func (s *Store) ListTransactions(_ context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, row := range s.txs {
		if f.Matches(row.t) {
			out = append(out, row.t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) ListOrphanedTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, row := range s.txs {
		if _, ok := s.cats[row.t.CategoryID]; !ok {
			out = append(out, row.t)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *Store) ReassignOrphanedTransactions(_ context.Context, fallbackID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, row := range s.txs {
		if _, ok := s.cats[row.t.CategoryID]; !ok {
			row.t.CategoryID = fallbackID
			row.synced = false
			n++
		}
	}
	return n, nil
}

func (s *Store) ListUnsyncedTransactions(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, row := range s.txs {
		if !row.synced {
			out = append(out, row.t)
		}
	}
	sortByID(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkTransactionSynced(_ context.Context, id int64, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.txs[id]
	if !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	row.synced = true
	return nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; !ok {
		return fmt.Errorf("budget %d: %w", b.ID, core.ErrNotFound)
	}
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteOrphanedBudgets(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, b := range s.budgets {
		if _, ok := s.cats[b.CategoryID]; !ok {
			delete(s.budgets, id)
			n++
		}
	}
	return n, nil
}

func sortByID(ts []core.Transaction) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].ID < ts[j].ID })
}

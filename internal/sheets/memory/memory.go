// Package memory is an in-process TransactionWriter used when no spreadsheet
// is configured and by worker tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows map[int64]sheets.Row
	// writes counts Upsert calls, including updates.
	writes int
}

var (
	_ sheets.TransactionWriter = (*Store)(nil)
	_ sheets.TransactionLister = (*Store)(nil)
)

func New() *Store {
	return &Store{rows: map[int64]sheets.Row{}}
}

func (s *Store) Upsert(_ context.Context, r sheets.Row) (string, error) {
	if r.TransactionID <= 0 {
		return "", fmt.Errorf("row has no transaction id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[r.TransactionID] = r
	s.writes++
	return fmt.Sprintf("mem:%d", r.TransactionID), nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

// ListRows returns the rows ordered by transaction id.
func (s *Store) ListRows(_ context.Context) ([]sheets.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheets.Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out, nil
}

func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

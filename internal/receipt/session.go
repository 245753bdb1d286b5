package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusEmpty     Status = "empty"
	StatusFailed    Status = "failed"
	StatusCommitted Status = "committed"
)

var (
	ErrDraftIndex     = fmt.Errorf("%w: draft index out of range", core.ErrValidation)
	ErrScanInProgress = errors.New("scan already in progress")
	ErrNotScanned     = errors.New("receipt has not been scanned")
)

// Committer inserts a batch of transactions all-or-nothing.
type Committer interface {
	CreateBatch(ctx context.Context, ts []core.Transaction) ([]core.Transaction, error)
}

// Session is one receipt import. It owns the image and the drafts until they
// are committed; editing drafts never touches the store.
type Session struct {
	mu         sync.Mutex
	id         string
	image      []byte
	categoryID int64
	createdAt  time.Time

	status   Status
	errMsg   string
	scanning bool
	receipt  Receipt
	drafts   []Draft
}

func NewSession(id string, image []byte, categoryID int64, now time.Time) *Session {
	return &Session{
		id:         id,
		image:      image,
		categoryID: categoryID,
		createdAt:  now,
		status:     StatusPending,
	}
}

func (s *Session) ID() string { return s.id }

// Snapshot is a consistent read-only view of a session.
type Snapshot struct {
	ID         string
	CategoryID int64
	Status     Status
	Error      string
	StoreName  string
	Date       time.Time
	Drafts     []Draft
	CreatedAt  time.Time
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.id,
		CategoryID: s.categoryID,
		Status:     s.status,
		Error:      s.errMsg,
		StoreName:  s.receipt.StoreName,
		Date:       s.receipt.Date,
		Drafts:     s.draftsLocked(),
		CreatedAt:  s.createdAt,
	}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Drafts returns a copy of the current drafts.
func (s *Session) Drafts() []Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftsLocked()
}

func (s *Session) draftsLocked() []Draft {
	out := make([]Draft, len(s.drafts))
	copy(out, s.drafts)
	return out
}

func (s *Session) editable() error {
	switch s.status {
	case StatusCommitted:
		return core.ErrAlreadyCommitted
	case StatusReady:
		return nil
	default:
		return ErrNotScanned
	}
}

// EditDraft replaces the title and amount of the draft at index.
func (s *Session) EditDraft(index int, title string, amount core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.drafts) {
		return ErrDraftIndex
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return core.ErrEmptyTitle
	}
	if err := amount.Validate(); err != nil {
		return err
	}
	s.drafts[index].Title = title
	s.drafts[index].Amount = amount
	return nil
}

// RemoveDraft drops the draft at index; later drafts shift down by one.
func (s *Session) RemoveDraft(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.drafts) {
		return ErrDraftIndex
	}
	s.drafts = append(s.drafts[:index], s.drafts[index+1:]...)
	return nil
}

// Commit validates every remaining draft and hands them to c in one batch.
// The session lock is held for the whole call so a session commits at most once.
func (s *Session) Commit(ctx context.Context, c Committer) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return nil, err
	}
	if len(s.drafts) == 0 {
		return nil, core.ErrNoDrafts
	}

	ts := make([]core.Transaction, len(s.drafts))
	for i, d := range s.drafts {
		t := d.Transaction()
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("draft %d: %w", i+1, err)
		}
		ts[i] = t
	}

	created, err := c.CreateBatch(ctx, ts)
	if err != nil {
		return nil, err
	}
	s.status = StatusCommitted
	s.image = nil
	return created, nil
}

// beginScan marks the session as scanning and returns the inputs for the recognizer.
func (s *Session) beginScan() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusCommitted {
		return nil, core.ErrAlreadyCommitted
	}
	if s.scanning {
		return nil, ErrScanInProgress
	}
	s.scanning = true
	s.status = StatusPending
	s.errMsg = ""
	return s.image, nil
}

// finishScan records the recognizer outcome. Failures keep the image and the
// selected category so the scan can be re-run.
func (s *Session) finishScan(lines []string, scanErr error, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanning = false
	if scanErr != nil {
		s.status = StatusFailed
		s.errMsg = scanErr.Error()
		if se, ok := core.AsServiceError(scanErr); ok {
			s.errMsg = se.Message
		}
		s.drafts = nil
		return
	}
	s.receipt = ParseLines(lines)
	s.drafts = Reconcile(s.receipt, s.categoryID, now)
	if len(s.drafts) == 0 {
		s.status = StatusEmpty
		return
	}
	s.status = StatusReady
}

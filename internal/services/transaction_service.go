package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Publisher announces stored changes to the export pipeline.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id, version int64) error
	PublishTransactionDelete(ctx context.Context, id int64) error
}

// TransactionService stores transactions first and then publishes export
// messages. A publish failure is logged and never fails the request.
type TransactionService struct {
	store     storage.Store
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewTransactionService(store storage.Store, publisher Publisher, logger *slog.Logger) *TransactionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func normalize(t core.Transaction) core.Transaction {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	return t
}

// validate runs field checks and verifies the category exists.
func (s *TransactionService) validate(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := s.store.GetCategory(ctx, t.CategoryID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("%w: %d", core.ErrUnknownCategory, t.CategoryID)
		}
		return fmt.Errorf("lookup category: %w", err)
	}
	return nil
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = normalize(t)
	if err := s.validate(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.publishSync(ctx, created.ID)
	return created, nil
}

// CreateBatch validates every transaction before writing any, then inserts
// them all-or-nothing.
func (s *TransactionService) CreateBatch(ctx context.Context, ts []core.Transaction) ([]core.Transaction, error) {
	if len(ts) == 0 {
		return nil, core.ErrNoDrafts
	}
	checked := make(map[int64]bool)
	normalized := make([]core.Transaction, len(ts))
	for i, t := range ts {
		t = normalize(t)
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
		if !checked[t.CategoryID] {
			if err := s.validate(ctx, t); err != nil {
				return nil, fmt.Errorf("transaction %d: %w", i+1, err)
			}
			checked[t.CategoryID] = true
		}
		normalized[i] = t
	}

	created, err := s.store.CreateTransactions(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("save transactions: %w", err)
	}
	for _, t := range created {
		s.publishSync(ctx, t.ID)
	}
	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}

func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = normalize(t)
	if err := s.validate(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.publishSync(ctx, t.ID)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishTransactionDelete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish delete message",
			"component", "amqp",
			"transaction_id", id,
			"error", err)
	}
	return nil
}

func (s *TransactionService) publishSync(ctx context.Context, id int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, id, s.now().UnixNano()); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message",
			"component", "amqp",
			"transaction_id", id,
			"error", err)
	}
}

// Package worker exports stored transactions to the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

const (
	categoryNameTTL     = 5 * time.Minute
	uncategorized       = "Uncategorized"
	defaultBatchSize    = 10
	maxCategoryNameKeys = 256
)

// SyncWorker writes transactions to the spreadsheet and records the sync
// on the stored row. It handles AMQP messages and pending-row sweeps alike.
type SyncWorker struct {
	store      storage.Store
	writer     sheets.TransactionWriter
	batchSize  int
	categories *cache.LRUCache[string]
	logger     *slog.Logger
	now        func() time.Time
}

var _ amqp.Handler = (*SyncWorker)(nil)

func NewSyncWorker(store storage.Store, writer sheets.TransactionWriter, batchSize int, logger *slog.Logger) *SyncWorker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{
		store:      store,
		writer:     writer,
		batchSize:  batchSize,
		categories: cache.NewLRUCache[string](maxCategoryNameKeys, categoryNameTTL),
		logger:     logger.With(log.FieldComponent, log.ComponentWorker),
		now:        time.Now,
	}
}

// CategoryNames exposes the name cache so it can be registered for cleanup.
func (w *SyncWorker) CategoryNames() *cache.LRUCache[string] {
	return w.categories
}

// HandleSync exports the current state of the transaction. A transaction
// deleted before the message arrived is removed from the sheet instead.
func (w *SyncWorker) HandleSync(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	w.logger.DebugContext(ctx, "Processing sync message",
		log.FieldTransactionID, msg.ID,
		"version", msg.Version)

	t, err := w.store.GetTransaction(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		return w.remove(ctx, msg.ID)
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	return w.export(ctx, t)
}

func (w *SyncWorker) HandleDelete(ctx context.Context, msg *amqp.TransactionDeleteMessage) error {
	return w.remove(ctx, msg.ID)
}

func (w *SyncWorker) remove(ctx context.Context, id int64) error {
	if err := w.writer.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	w.logger.InfoContext(ctx, "Removed transaction from sheet", log.FieldTransactionID, id)
	return nil
}

func (w *SyncWorker) export(ctx context.Context, t core.Transaction) error {
	name, err := w.categoryName(ctx, t.CategoryID)
	if err != nil {
		return err
	}
	ref, err := w.writer.Upsert(ctx, sheets.NewRow(t, name))
	if err != nil {
		return fmt.Errorf("write row: %w", err)
	}

	// The row is written; a failed mark only means a redundant rewrite on the next sweep.
	if err := w.store.MarkTransactionSynced(ctx, t.ID, w.now()); err != nil {
		w.logger.WarnContext(ctx, "Failed to mark transaction as synced",
			log.FieldTransactionID, t.ID,
			log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Exported transaction",
		log.FieldTransactionID, t.ID,
		"sheets_ref", ref,
		log.FieldAmountCents, t.Amount.Cents,
		log.FieldIsExpense, t.IsExpense)
	return nil
}

func (w *SyncWorker) categoryName(ctx context.Context, id int64) (string, error) {
	key := strconv.FormatInt(id, 10)
	if name, ok := w.categories.Get(key); ok {
		return name, nil
	}
	c, err := w.store.GetCategory(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return uncategorized, nil
	}
	if err != nil {
		return "", fmt.Errorf("get category: %w", err)
	}
	w.categories.Set(key, c.Name)
	return c.Name, nil
}

// SyncPending exports up to one batch of never-synced or edited transactions.
// It covers messages lost while the broker or the worker was down.
func (w *SyncWorker) SyncPending(ctx context.Context) (int, error) {
	pending, err := w.store.ListUnsyncedTransactions(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unsynced transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	synced := 0
	for _, t := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := w.export(ctx, t); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export pending transaction",
				log.FieldTransactionID, t.ID,
				log.FieldError, err)
			continue
		}
		synced++
	}
	w.logger.InfoContext(ctx, "Pending sweep finished",
		log.FieldCount, len(pending),
		"synced", synced)
	return synced, nil
}

package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

// Open validates opts and opens the store. A broker that cannot be reached is
// logged and skipped; transactions then stay pending for the worker's sweep.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Backend, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(log.FieldComponent, log.ComponentBackend)

	if opts.Kind == KindMemory {
		store := memory.New()
		logger.InfoContext(ctx, "Opened in-memory store; data is lost on exit")
		return &Backend{Store: store, closers: []func() error{store.Close}}, nil
	}

	repo, err := storage.NewSQLiteRepository(opts.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	b := &Backend{Store: repo, closers: []func() error{repo.Close}}

	if opts.Exports() {
		client, err := amqp.NewClient(opts.AMQP.URL, opts.AMQP.Exchange, opts.AMQP.Queue)
		if err != nil {
			logger.WarnContext(ctx, "AMQP unavailable, export messages disabled",
				log.FieldError, err,
				log.FieldErrorType, log.ErrorTypeNetwork)
		} else {
			b.Publisher = client
			b.closers = append(b.closers, client.Close)
		}
	}

	logger.InfoContext(ctx, "Opened sqlite store",
		"db_path", opts.SQLiteDBPath,
		"export", b.Publisher != nil)
	return b, nil
}

// Package backend opens the store selected by DATA_BACKEND together with the
// optional AMQP publisher used for spreadsheet export.
package backend

import (
	"errors"
	"fmt"

	"fintrack/internal/config"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type Kind string

const (
	KindSQLite Kind = "sqlite"
	KindMemory Kind = "memory"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindSQLite, KindMemory:
		return k, nil
	default:
		return "", fmt.Errorf("unknown data backend %q: want %s or %s", s, KindSQLite, KindMemory)
	}
}

type AMQPOptions struct {
	URL      string
	Exchange string
	Queue    string
}

type Options struct {
	Kind         Kind
	SQLiteDBPath string
	// AMQP.URL empty disables export publishing.
	AMQP AMQPOptions
}

func FromConfig(cfg *config.Config) (Options, error) {
	if cfg == nil {
		return Options{}, errors.New("backend: nil config")
	}
	kind, err := ParseKind(cfg.DataBackend)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Kind:         kind,
		SQLiteDBPath: cfg.SQLiteDBPath,
		AMQP: AMQPOptions{
			URL:      cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
			Queue:    cfg.AMQPQueue,
		},
	}, nil
}

func (o Options) Exports() bool {
	return o.AMQP.URL != ""
}

func (o Options) Validate() error {
	if _, err := ParseKind(string(o.Kind)); err != nil {
		return err
	}
	if o.Kind == KindSQLite && o.SQLiteDBPath == "" {
		return errors.New("backend: sqlite needs SQLITE_DB_PATH")
	}
	// The worker reads pending rows from SQLite; messages about an in-memory
	// store would point at ids it can never load.
	if o.Kind == KindMemory && o.Exports() {
		return errors.New("backend: AMQP export requires the sqlite backend")
	}
	return nil
}

// Backend is an opened store. Publisher is nil when export is disabled or the
// broker was unreachable at startup.
type Backend struct {
	Store     storage.Store
	Publisher services.Publisher
	closers   []func() error
}

// Close releases resources in reverse order of acquisition.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}

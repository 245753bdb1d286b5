package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

var (
	dbPath  string
	cfg     *config.Config
	logger  *log.Logger
	version = "dev"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fintrackctl",
		Short:         "Administer a fintrack database",
		Long:          `Maintenance commands for the fintrack SQLite database: migrations, category repair and quick reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cli.LoadEnvFile()
			cfg = config.Load()
			logger = cli.SetupLogger(cfg, log.ComponentCLI)
			if dbPath == "" {
				dbPath = cfg.SQLiteDBPath
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: $SQLITE_DB_PATH)")

	root.AddCommand(migrateCmd())
	root.AddCommand(repairCmd())
	root.AddCommand(categoriesCmd())
	root.AddCommand(statsCmd())
	return root
}

// openStore opens the database, applying pending migrations.
func openStore() (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	return repo, nil
}

func main() {
	ctx, cancel := cli.SignalContext(log.New(log.Config{Output: os.Stderr}).Logger)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withStore(ctx context.Context, fn func(context.Context, *storage.SQLiteRepository) error) error {
	repo, err := openStore()
	if err != nil {
		return err
	}
	defer repo.Close()
	return fn(ctx, repo)
}

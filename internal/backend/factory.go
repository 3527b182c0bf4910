package backend

import (
	"context"
	"fmt"
	"log/slog"

	"receiptbook/internal/config"
	"receiptbook/internal/core"
	"receiptbook/internal/sheets"
	gsheet "receiptbook/internal/sheets/google"
	"receiptbook/internal/sheets/memory"
	"receiptbook/internal/storage"
)

// Store is the unified persistence surface: the shared ledger plus the
// credential table, served by the same backing store.
type Store interface {
	sheets.LedgerStore
	sheets.UserStore
}

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

// Result contains the store instance and optional cleanup function.
type Result struct {
	Store   Store
	Cleanup CleanupFunc
}

// New creates the persistence backend selected by cfg.DataBackend and
// heals the ledger schema before the store is handed out, so legacy data
// without an owner column is readable and writable from the start.
func New(ctx context.Context, cfg *config.Config) (*Result, error) {
	var (
		res *Result
		err error
	)
	switch cfg.DataBackend {
	case "sqlite":
		res, err = newSQLite(cfg)
	case "sheets":
		res, err = newSheets(ctx)
	case "memory":
		res, err = newMemory()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
	if err != nil {
		return nil, err
	}

	if err := res.Store.EnsureColumn(ctx, core.ColOwner); err != nil {
		if res.Cleanup != nil {
			res.Cleanup()
		}
		return nil, fmt.Errorf("heal ledger schema: %w", err)
	}

	return res, nil
}

func newSQLite(cfg *config.Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	slog.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)

	return &Result{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func newSheets(ctx context.Context) (*Result, error) {
	cli, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}

	slog.Info("Initialized Google Sheets backend")

	return &Result{
		Store: cli,
	}, nil
}

func newMemory() (*Result, error) {
	store := memory.New()

	slog.Info("Initialized in-memory backend")

	return &Result{
		Store: store,
	}, nil
}

package sheets

import (
	"context"

	"receiptbook/internal/core"
)

// Ports for outbound adapters. The ledger and the users table are two
// independently keyed collections in the same external store.
type (
	// LedgerStore is the shared append-only tabular store. It hands back
	// rows as bags of named fields and enforces no LineItem invariants;
	// decoding at read time does. An unreachable store surfaces
	// core.ErrStoreUnavailable and never a partial write.
	LedgerStore interface {
		// LoadAll returns every stored row in ledger order.
		LoadAll(ctx context.Context) ([]core.RawRow, error)

		// AppendRows places new rows after all existing rows, preserving
		// stored order, and returns the number of rows written. When the
		// schema has no header yet, or predates the owner column, the call
		// bootstraps a fresh header instead of appending blind.
		AppendRows(ctx context.Context, items []core.LineItem) (int, error)

		// RewriteAll replaces the entire stored content (header only when
		// rows is empty). Used by duplicate pruning and owner purges; rows
		// pass through unvalidated so a maintenance rewrite never drops
		// content it did not target. The read-modify-write window is the
		// caller's responsibility.
		RewriteAll(ctx context.Context, rows []core.RawRow) error

		// EnsureColumn adds a trailing column with the given header if
		// absent, without disturbing existing data; a schema with no
		// header at all gets the full ledger header. Idempotent, safe
		// to run before every read or write.
		EnsureColumn(ctx context.Context, name string) error
	}

	// UserStore holds credential records keyed by username.
	UserStore interface {
		ListUsers(ctx context.Context) ([]core.User, error)
		AppendUser(ctx context.Context, u core.User) error
		// UpdateUser replaces the record whose username matches exactly;
		// core.ErrNotFound when absent.
		UpdateUser(ctx context.Context, u core.User) error
		// DeleteUser removes the record whose username matches exactly;
		// core.ErrNotFound when absent.
		DeleteUser(ctx context.Context, username string) error
	}
)

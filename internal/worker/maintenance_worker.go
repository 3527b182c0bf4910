package worker

import (
	"context"
	"fmt"
	"log/slog"

	"receiptbook/internal/amqp"
)

// Maintainer performs the ledger rewrites behind maintenance tasks.
type Maintainer interface {
	PurgeLedgerRows(ctx context.Context, owner string) (int, error)
	PruneDuplicates(ctx context.Context) (int, error)
}

// MaintenanceWorker executes queued ledger maintenance tasks. The queue
// delivers one task at a time, so at most one ledger rewrite runs at
// once regardless of how many HTTP processes publish tasks.
type MaintenanceWorker struct {
	maintainer Maintainer
}

func NewMaintenanceWorker(maintainer Maintainer) *MaintenanceWorker {
	return &MaintenanceWorker{maintainer: maintainer}
}

// HandleTask processes a single maintenance task from AMQP
func (w *MaintenanceWorker) HandleTask(ctx context.Context, task *amqp.MaintenanceTask) error {
	switch task.Kind {
	case amqp.TaskPurgeOwner:
		removed, err := w.maintainer.PurgeLedgerRows(ctx, task.Owner)
		if err != nil {
			return fmt.Errorf("purge ledger rows for %q: %w", task.Owner, err)
		}
		slog.InfoContext(ctx, "Purged ledger rows",
			"owner", task.Owner,
			"removed", removed)
		return nil

	case amqp.TaskPruneDuplicates:
		removed, err := w.maintainer.PruneDuplicates(ctx)
		if err != nil {
			return fmt.Errorf("prune duplicates: %w", err)
		}
		slog.InfoContext(ctx, "Pruned duplicate rows",
			"removed", removed)
		return nil

	default:
		return fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"receiptbook/internal/cache"
	"receiptbook/internal/core"
	"receiptbook/internal/ingest"
	"receiptbook/internal/sheets"
)

// Extractor turns a receipt image into a raw extraction.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (*core.RawExtraction, error)
}

// ledgerCacheKey is the single key under which the decoded ledger
// snapshot is cached. Any write to the ledger invalidates it.
const ledgerCacheKey = "ledger"

// LedgerSnapshot is the decoded, deduplicated ledger together with the
// row accounting from the read pipeline.
type LedgerSnapshot struct {
	Items             []core.LineItem
	Excluded          int
	DuplicatesRemoved int
}

// SaveResult reports what a save pass kept and what it dropped.
type SaveResult struct {
	Saved    int
	Rejected []ingest.Rejected
}

// ReceiptService orchestrates receipt extraction and ledger appends.
type ReceiptService struct {
	extractor   Extractor
	ledger      sheets.LedgerStore
	ledgerCache *cache.LRUCache[LedgerSnapshot]
	now         func() time.Time
}

func NewReceiptService(extractor Extractor, ledger sheets.LedgerStore, ledgerCache *cache.LRUCache[LedgerSnapshot]) *ReceiptService {
	return &ReceiptService{
		extractor:   extractor,
		ledger:      ledger,
		ledgerCache: ledgerCache,
		now:         time.Now,
	}
}

// Extract analyzes a receipt image and returns editable draft rows.
// A failed or empty extraction yields a single placeholder draft
// instead of an error, so the caller always has something to edit.
func (s *ReceiptService) Extract(ctx context.Context, image []byte, mimeType string) ([]core.DraftRow, error) {
	var raw *core.RawExtraction
	if s.extractor == nil {
		slog.WarnContext(ctx, "No extractor configured, returning placeholder draft")
	} else {
		var err error
		raw, err = s.extractor.Extract(ctx, image, mimeType)
		switch {
		case errors.Is(err, core.ErrExtractionFailed):
			slog.WarnContext(ctx, "Extraction failed, returning placeholder draft", "error", err)
			raw = nil
		case err != nil:
			return nil, fmt.Errorf("extract receipt: %w", err)
		}
	}

	drafts := ingest.FromExtraction(raw, s.now())

	slog.InfoContext(ctx, "Receipt extracted",
		"drafts", len(drafts))

	return drafts, nil
}

// Save finalizes the drafts for owner and appends the survivors to the
// ledger. Dropped drafts are reported, not failed: an all-rejected save
// succeeds with zero rows written.
func (s *ReceiptService) Save(ctx context.Context, owner string, drafts []core.DraftRow) (SaveResult, error) {
	items, rejected := ingest.Finalize(drafts, owner, s.now())

	result := SaveResult{Rejected: rejected}
	if len(items) == 0 {
		slog.InfoContext(ctx, "Nothing to save after finalization",
			"owner", owner,
			"rejected", len(rejected))
		return result, nil
	}

	saved, err := s.ledger.AppendRows(ctx, items)
	if err != nil {
		return result, fmt.Errorf("append rows: %w", err)
	}
	result.Saved = saved

	if s.ledgerCache != nil {
		s.ledgerCache.Clear()
	}

	slog.InfoContext(ctx, "Line items saved",
		"owner", owner,
		"saved", saved,
		"rejected", len(rejected))

	return result, nil
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"receiptbook/internal/cache"
	"receiptbook/internal/core"
	"receiptbook/internal/sheets/memory"
)

type stubExtractor struct {
	raw *core.RawExtraction
	err error
}

func (s *stubExtractor) Extract(_ context.Context, _ []byte, _ string) (*core.RawExtraction, error) {
	return s.raw, s.err
}

func int64p(v int64) *int64 { return &v }

func TestExtractReturnsDrafts(t *testing.T) {
	svc := NewReceiptService(&stubExtractor{
		raw: &core.RawExtraction{
			InvoiceDate: "2024-03-18",
			Items: []core.RawItem{
				{Name: "Milk", Quantity: float64(2), Category: "Food", Amount: float64(45)},
			},
		},
	}, memory.New(), nil)

	drafts, err := svc.Extract(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}
	d := drafts[0]
	if d.Date != "2024-03-18" || d.Name != "Milk" {
		t.Errorf("unexpected draft %+v", d)
	}
	if d.Quantity == nil || *d.Quantity != 2 {
		t.Errorf("quantity = %v, want 2", d.Quantity)
	}
	if d.Amount == nil || *d.Amount != 45 {
		t.Errorf("amount = %v, want 45", d.Amount)
	}
}

func TestExtractFailureFallsBackToPlaceholder(t *testing.T) {
	svc := NewReceiptService(&stubExtractor{err: core.ErrExtractionFailed}, memory.New(), nil)

	drafts, err := svc.Extract(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("Extract() error = %v, want placeholder fallback", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected 1 placeholder draft, got %d", len(drafts))
	}
	d := drafts[0]
	if d.Name != "" || d.Category != core.PlaceholderCategory {
		t.Errorf("unexpected placeholder %+v", d)
	}
	if d.Quantity == nil || *d.Quantity != 1 {
		t.Errorf("quantity = %v, want 1", d.Quantity)
	}
	if d.Amount == nil || *d.Amount != 0 {
		t.Errorf("amount = %v, want 0", d.Amount)
	}
}

func TestExtractWithoutExtractorReturnsPlaceholder(t *testing.T) {
	svc := NewReceiptService(nil, memory.New(), nil)

	drafts, err := svc.Extract(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(drafts) != 1 || drafts[0].Name != "" {
		t.Fatalf("expected one blank placeholder draft, got %+v", drafts)
	}
}

func TestSaveAppendsAndReportsRejections(t *testing.T) {
	store := memory.New()
	ledgerCache := cache.NewLRUCache[LedgerSnapshot](10, time.Minute)
	ledgerCache.Set(ledgerCacheKey, LedgerSnapshot{})

	svc := NewReceiptService(nil, store, ledgerCache)

	drafts := []core.DraftRow{
		{Date: "2024-03-18", Name: "Milk", Quantity: int64p(2), Category: "Food", Amount: int64p(45)},
		{Date: "2024-03-18", Name: "", Quantity: int64p(1), Category: "Food", Amount: int64p(10)},
		{Date: "2024-03-18", Name: "Coupon", Quantity: int64p(1), Category: "Other", Amount: int64p(0)},
	}

	result, err := svc.Save(context.Background(), "mario", drafts)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if result.Saved != 1 {
		t.Errorf("Saved = %d, want 1", result.Saved)
	}
	// the empty name is rejected; the zero amount is dropped silently
	if len(result.Rejected) != 1 {
		t.Errorf("Rejected = %d, want 1", len(result.Rejected))
	}
	if store.RowCount() != 1 {
		t.Errorf("store rows = %d, want 1", store.RowCount())
	}
	if _, ok := ledgerCache.Get(ledgerCacheKey); ok {
		t.Error("ledger cache should be invalidated after save")
	}
}

func TestSaveNothingLeftIsNotAnError(t *testing.T) {
	store := memory.New()
	svc := NewReceiptService(nil, store, nil)

	drafts := []core.DraftRow{
		{Date: "2024-03-18", Name: "Coupon", Quantity: int64p(1), Category: "Other", Amount: int64p(0)},
	}

	result, err := svc.Save(context.Background(), "mario", drafts)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if result.Saved != 0 {
		t.Errorf("Saved = %d, want 0", result.Saved)
	}
	if store.RowCount() != 0 {
		t.Errorf("store rows = %d, want 0", store.RowCount())
	}
}

func TestSaveStoreOffline(t *testing.T) {
	store := memory.New()
	store.SetOffline(true)
	svc := NewReceiptService(nil, store, nil)

	drafts := []core.DraftRow{
		{Date: "2024-03-18", Name: "Milk", Quantity: int64p(1), Category: "Food", Amount: int64p(45)},
	}

	_, err := svc.Save(context.Background(), "mario", drafts)
	if !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

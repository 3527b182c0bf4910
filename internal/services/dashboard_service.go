package services

import (
	"context"
	"fmt"
	"log/slog"

	"receiptbook/internal/cache"
	"receiptbook/internal/core"
	"receiptbook/internal/ledger"
	"receiptbook/internal/sheets"
)

// Dashboard is the per-owner spending view.
type Dashboard struct {
	Owner             string
	Items             []core.LineItem
	Total             int64
	MonthlySums       map[core.Month]int64
	MonthlyAverage    float64
	Months            []core.Month
	Excluded          int
	DuplicatesRemoved int
}

// DashboardService reads the shared ledger and aggregates it per owner.
type DashboardService struct {
	ledger      sheets.LedgerStore
	ledgerCache *cache.LRUCache[LedgerSnapshot]
}

func NewDashboardService(store sheets.LedgerStore, ledgerCache *cache.LRUCache[LedgerSnapshot]) *DashboardService {
	return &DashboardService{
		ledger:      store,
		ledgerCache: ledgerCache,
	}
}

// snapshot loads the full ledger, decoding and deduplicating it once,
// through the read cache when one is configured.
func (s *DashboardService) snapshot(ctx context.Context) (LedgerSnapshot, error) {
	if s.ledgerCache != nil {
		if snap, ok := s.ledgerCache.Get(ledgerCacheKey); ok {
			return snap, nil
		}
	}

	raws, err := s.ledger.LoadAll(ctx)
	if err != nil {
		return LedgerSnapshot{}, fmt.Errorf("load ledger: %w", err)
	}

	items, excluded := ledger.Decode(raws)
	items, removed := ledger.Deduplicate(items)

	snap := LedgerSnapshot{
		Items:             items,
		Excluded:          excluded,
		DuplicatesRemoved: removed,
	}

	if s.ledgerCache != nil {
		s.ledgerCache.Set(ledgerCacheKey, snap)
	}

	slog.InfoContext(ctx, "Ledger snapshot refreshed",
		"rows", len(items),
		"excluded", excluded,
		"duplicates_removed", removed)

	return snap, nil
}

// Dashboard builds the aggregated spending view for owner. An owner
// with no rows gets an empty dashboard, not an error.
func (s *DashboardService) Dashboard(ctx context.Context, owner string) (*Dashboard, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	items := ledger.ScopeToOwner(snap.Items, owner)
	sums := ledger.MonthlySums(items)

	return &Dashboard{
		Owner:             owner,
		Items:             items,
		Total:             ledger.Total(items),
		MonthlySums:       sums,
		MonthlyAverage:    ledger.MonthlyAverage(items),
		Months:            ledger.SortedMonths(sums),
		Excluded:          snap.Excluded,
		DuplicatesRemoved: snap.DuplicatesRemoved,
	}, nil
}

// CategoryBreakdown sums owner's spending per category for one month.
func (s *DashboardService) CategoryBreakdown(ctx context.Context, owner string, month core.Month) (map[string]int64, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	items := ledger.ScopeToOwner(snap.Items, owner)
	return ledger.CategoryBreakdown(items, month), nil
}

// Search returns owner's rows whose name contains term.
func (s *DashboardService) Search(ctx context.Context, owner, term string) ([]core.LineItem, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	items := ledger.ScopeToOwner(snap.Items, owner)
	return ledger.FilterName(items, term), nil
}

// InvalidateCache drops the cached ledger snapshot.
func (s *DashboardService) InvalidateCache() {
	if s.ledgerCache != nil {
		s.ledgerCache.Clear()
	}
}

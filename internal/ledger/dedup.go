package ledger

import "receiptbook/internal/core"

// Deduplicate drops rows whose identity tuple already appeared earlier in
// ledger order, keeping the first occurrence. It returns the survivors and
// the number of rows removed. The filter is idempotent and never touches
// the persisted ledger; callers disclose the removed count instead of
// rewriting the store.
func Deduplicate(items []core.LineItem) ([]core.LineItem, int) {
	seen := make(map[string]struct{}, len(items))
	out := make([]core.LineItem, 0, len(items))
	removed := 0
	for _, li := range items {
		k := li.Key()
		if _, dup := seen[k]; dup {
			removed++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, li)
	}
	return out, removed
}

package ledger

import (
	"strings"

	"receiptbook/internal/core"
)

// Maintenance filters operate on raw stored rows so a rewrite only removes
// the rows it targeted. Rows the read boundary would reject are carried
// through untouched.

// RemoveOwnerRows drops every row whose owner field exactly equals owner
// after trimming, returning the survivors and the number removed.
func RemoveOwnerRows(raws []core.RawRow, owner string) ([]core.RawRow, int) {
	kept := make([]core.RawRow, 0, len(raws))
	removed := 0
	for _, r := range raws {
		if strings.TrimSpace(r[core.ColOwner]) == owner {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	return kept, removed
}

// DeduplicateRows drops rows whose identity tuple already appeared earlier,
// keeping the first occurrence. A row that fails to decode has no identity
// and is always kept.
func DeduplicateRows(raws []core.RawRow) ([]core.RawRow, int) {
	seen := make(map[string]struct{}, len(raws))
	kept := make([]core.RawRow, 0, len(raws))
	removed := 0
	for _, r := range raws {
		li, ok := decodeRow(r)
		if !ok {
			kept = append(kept, r)
			continue
		}
		k := li.Key()
		if _, dup := seen[k]; dup {
			removed++
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, r)
	}
	return kept, removed
}

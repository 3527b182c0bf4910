// Package ledger implements the read path over the shared append-only
// store: the decode-and-validate boundary, duplicate filtering, per-owner
// scoping and the spend aggregations.
package ledger

import (
	"strings"

	"receiptbook/internal/core"
)

// Decode converts raw stored rows into validated line items. Rows that fail
// coercion or any LineItem invariant are excluded; the count of exclusions
// is returned so callers can surface it instead of losing it. Untyped data
// never crosses this boundary.
func Decode(raws []core.RawRow) ([]core.LineItem, int) {
	items := make([]core.LineItem, 0, len(raws))
	excluded := 0
	for _, r := range raws {
		li, ok := decodeRow(r)
		if !ok {
			excluded++
			continue
		}
		items = append(items, li)
	}
	return items, excluded
}

func decodeRow(r core.RawRow) (core.LineItem, bool) {
	date, err := core.ParseDate(strings.TrimSpace(r[core.ColDate]))
	if err != nil {
		return core.LineItem{}, false
	}
	qty, ok := core.CoerceInt(r[core.ColQuantity])
	if !ok {
		return core.LineItem{}, false
	}
	amount, ok := core.CoerceInt(r[core.ColAmount])
	if !ok {
		return core.LineItem{}, false
	}
	li := core.LineItem{
		Date:     date,
		Name:     strings.TrimSpace(r[core.ColName]),
		Quantity: qty,
		Category: strings.TrimSpace(r[core.ColCategory]),
		Amount:   amount,
		Owner:    strings.TrimSpace(r[core.ColOwner]),
	}
	if li.Validate() != nil {
		return core.LineItem{}, false
	}
	return li, true
}

// Package ingest turns raw extraction output and human-edited tables into
// validated ledger line items. Everything here is a pure transformation;
// persistence happens elsewhere, only after Finalize produced a non-empty
// result.
package ingest

import (
	"time"

	"receiptbook/internal/core"
)

// Rejected reports one candidate row excluded during the save-time pass.
type Rejected struct {
	Index int
	Name  string
	Err   error
}

// FromExtraction converts a raw model response into editable draft rows.
//
// A nil or empty extraction yields exactly one blank placeholder row for the
// human to fill in manually. The document-level date is applied to every
// item; when the model found none, today's date is used. Quantities that do
// not coerce default to 1; amounts that do not coerce stay nil so the row is
// visible in the edit view but cannot be saved as-is.
func FromExtraction(raw *core.RawExtraction, now time.Time) []core.DraftRow {
	if raw == nil || len(raw.Items) == 0 {
		one := int64(1)
		zero := int64(0)
		return []core.DraftRow{{
			Date:     core.Today(now).String(),
			Name:     "",
			Quantity: &one,
			Category: core.PlaceholderCategory,
			Amount:   &zero,
		}}
	}

	docDate := raw.InvoiceDate
	if docDate == "" {
		docDate = core.Today(now).String()
	}

	drafts := make([]core.DraftRow, 0, len(raw.Items))
	for _, it := range raw.Items {
		d := core.DraftRow{
			Date:     docDate,
			Name:     it.Name,
			Category: it.Category,
		}
		if q, ok := core.CoerceInt(it.Quantity); ok {
			d.Quantity = &q
		} else {
			one := int64(1)
			d.Quantity = &one
		}
		if a, ok := core.CoerceInt(it.Amount); ok {
			d.Amount = &a
		}
		drafts = append(drafts, d)
	}
	return drafts
}

// Finalize runs the save-time validation pass over human-edited drafts and
// stamps the owner onto every surviving row.
//
// Rows with an empty name, a nil amount or a nil quantity are excluded and
// reported; zero-amount rows are dropped silently; anything failing a
// LineItem invariant is excluded and reported. A blank date means the source
// provided none and defaults to today. An empty result is the caller's
// "nothing to save" signal, not an error.
func Finalize(drafts []core.DraftRow, owner string, now time.Time) ([]core.LineItem, []Rejected) {
	var (
		items    []core.LineItem
		rejected []Rejected
	)
	for i, d := range drafts {
		if d.Amount == nil {
			rejected = append(rejected, Rejected{Index: i, Name: d.Name, Err: core.ErrInvalidAmount})
			continue
		}
		if d.Quantity == nil {
			rejected = append(rejected, Rejected{Index: i, Name: d.Name, Err: core.ErrInvalidQuantity})
			continue
		}
		if *d.Amount == 0 {
			// Drop-zero rule: the model pre-filters these, re-enforced here.
			continue
		}

		date := core.Today(now)
		if d.Date != "" {
			var err error
			if date, err = core.ParseDate(d.Date); err != nil {
				rejected = append(rejected, Rejected{Index: i, Name: d.Name, Err: err})
				continue
			}
		}

		li := core.LineItem{
			Date:     date,
			Name:     d.Name,
			Quantity: *d.Quantity,
			Category: d.Category,
			Amount:   *d.Amount,
			Owner:    owner,
		}
		if err := li.Validate(); err != nil {
			rejected = append(rejected, Rejected{Index: i, Name: d.Name, Err: err})
			continue
		}
		items = append(items, li)
	}
	return items, rejected
}

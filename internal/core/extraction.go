package core

import "encoding/json"

type (
	// RawExtraction is the unvalidated payload returned by the extraction
	// model: an optional document-level date plus loosely typed items.
	RawExtraction struct {
		InvoiceDate string    `json:"invoice_date"`
		Items       []RawItem `json:"items"`
	}

	// RawItem carries whatever the model produced. Quantity and Amount stay
	// untyped until normalization coerces them.
	RawItem struct {
		Name     string `json:"name"`
		Quantity any    `json:"quantity"`
		Category string `json:"category"`
		Amount   any    `json:"amount"`
	}

	// DraftRow is one editable candidate row between extraction and save.
	// Nil Quantity or Amount marks a value the human still has to fix; the
	// row stays visible in the edit view but is excluded from saving.
	DraftRow struct {
		Date     string `json:"date"`
		Name     string `json:"name"`
		Quantity *int64 `json:"quantity"`
		Category string `json:"category"`
		Amount   *int64 `json:"amount"`
	}
)

// UnmarshalJSON coerces quantity and amount loosely, the same way raw
// extraction values are handled. A value that does not coerce leaves the
// field nil so save-time validation rejects that row alone instead of the
// decoder failing the whole batch.
func (d *DraftRow) UnmarshalJSON(data []byte) error {
	var loose struct {
		Date     string `json:"date"`
		Name     string `json:"name"`
		Quantity any    `json:"quantity"`
		Category string `json:"category"`
		Amount   any    `json:"amount"`
	}
	if err := json.Unmarshal(data, &loose); err != nil {
		return err
	}

	*d = DraftRow{Date: loose.Date, Name: loose.Name, Category: loose.Category}
	if q, ok := CoerceInt(loose.Quantity); ok {
		d.Quantity = &q
	}
	if a, ok := CoerceInt(loose.Amount); ok {
		d.Amount = &a
	}
	return nil
}

package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"receiptbook/internal/core"

	gsheet "google.golang.org/api/sheets/v4"
)

// LoadAll reads the whole ledger worksheet and maps every data row by the
// header names. Unknown columns are ignored; a missing owner column leaves
// the field empty rather than failing.
func (c *Client) LoadAll(ctx context.Context) ([]core.RawRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	values, err := c.readSheet(ctx, c.ledgerSheet)
	if err != nil {
		return nil, unavailable("load ledger", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	headers := toStrings(values[0])
	rows := make([]core.RawRow, 0, len(values)-1)
	for _, v := range values[1:] {
		cols := toStrings(v)
		row := make(core.RawRow, len(core.LedgerHeader))
		for _, name := range core.LedgerHeader {
			row[name] = safeGet(cols, indexOf(headers, name))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AppendRows appends validated items after all existing rows. When the
// worksheet has no header yet, or predates the owner column, it bootstraps
// the full header plus the new data instead of appending blind.
func (c *Client) AppendRows(ctx context.Context, items []core.LineItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	for _, li := range items {
		if err := li.Validate(); err != nil {
			return 0, fmt.Errorf("validation failed: %w", err)
		}
	}
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}

	headers, err := c.readHeader(ctx, c.ledgerSheet)
	if err != nil {
		return 0, unavailable("read ledger header", err)
	}

	if len(headers) == 0 || indexOf(headers, core.ColOwner) == -1 {
		// Legacy or empty sheet: rewrite header and data in one pass.
		values := [][]any{headerValues()}
		for _, li := range items {
			values = append(values, itemValues(core.LedgerHeader, li))
		}
		if err := c.overwriteSheet(ctx, c.ledgerSheet, values); err != nil {
			return 0, unavailable("bootstrap ledger", err)
		}
		slog.InfoContext(ctx, "Ledger sheet bootstrapped", "sheet", c.ledgerSheet, "rows", len(items))
		return len(items), nil
	}

	values := make([][]any, 0, len(items))
	for _, li := range items {
		values = append(values, itemValues(headers, li))
	}
	rng := fmt.Sprintf("%s!A:A", c.ledgerSheet)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return 0, unavailable("append ledger rows", err)
	}
	return len(items), nil
}

// RewriteAll replaces the whole worksheet content with the given raw rows,
// leaving only the header when rows is empty.
func (c *Client) RewriteAll(ctx context.Context, rows []core.RawRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	values := [][]any{headerValues()}
	for _, r := range rows {
		values = append(values, rawValues(core.LedgerHeader, r))
	}
	if err := c.overwriteSheet(ctx, c.ledgerSheet, values); err != nil {
		return unavailable("rewrite ledger", err)
	}
	slog.InfoContext(ctx, "Ledger sheet rewritten", "sheet", c.ledgerSheet, "rows", len(rows))
	return nil
}

// EnsureColumn adds a trailing header column when absent. A worksheet
// with no header at all gets the full ledger header. Idempotent.
func (c *Client) EnsureColumn(ctx context.Context, name string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	headers, err := c.readHeader(ctx, c.ledgerSheet)
	if err != nil {
		return unavailable("read ledger header", err)
	}
	if len(headers) == 0 {
		if err := c.overwriteSheet(ctx, c.ledgerSheet, [][]any{headerValues()}); err != nil {
			return unavailable("bootstrap ledger header", err)
		}
		slog.InfoContext(ctx, "Ledger header bootstrapped", "sheet", c.ledgerSheet)
		return nil
	}
	return c.ensureColumn(ctx, c.ledgerSheet, name)
}

func (c *Client) ensureColumn(ctx context.Context, sheet, name string) error {
	headers, err := c.readHeader(ctx, sheet)
	if err != nil {
		return unavailable("read header", err)
	}
	if indexOf(headers, name) != -1 {
		return nil
	}
	rng := fmt.Sprintf("%s!%s1", sheet, columnRef(len(headers)))
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng,
		&gsheet.ValueRange{Values: [][]any{{name}}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return unavailable("add column", err)
	}
	slog.InfoContext(ctx, "Header column added", "sheet", sheet, "column", name)
	return nil
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([][]interface{}, error) {
	rng := fmt.Sprintf("%s!A:Z", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) readHeader(ctx context.Context, sheet string) ([]string, error) {
	rng := fmt.Sprintf("%s!1:1", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return toStrings(resp.Values[0]), nil
}

func (c *Client) overwriteSheet(ctx context.Context, sheet string, values [][]any) error {
	clearRng := fmt.Sprintf("%s!A:Z", sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}
	rng := fmt.Sprintf("%s!A1", sheet)
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", sheet, err)
	}
	return nil
}

func headerValues() []any {
	out := make([]any, len(core.LedgerHeader))
	for i, h := range core.LedgerHeader {
		out[i] = h
	}
	return out
}

// itemValues renders an item cell-by-cell in the order of the live header,
// so column order never matters to readers or writers.
func itemValues(headers []string, li core.LineItem) []any {
	return rawValues(headers, li.Row())
}

func rawValues(headers []string, r core.RawRow) []any {
	out := make([]any, len(headers))
	for i, h := range headers {
		out[i] = r[strings.ToLower(strings.TrimSpace(h))]
	}
	return out
}

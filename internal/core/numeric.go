// Package core holds the validated ledger domain types.
//
// This file contains numeric coercion helpers for the loosely typed values
// produced by the extraction model and by spreadsheet cells: JSON numbers,
// strings with optional decimals, or nothing at all.
package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

// CoerceInt converts a raw extraction or cell value to an integer. Decimal
// input is truncated toward zero, matching how edited rows are cast on save.
// The second return is false when the value is absent or not numeric.
func CoerceInt(v any) (int64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		return int64(x), true
	case json.Number:
		return parseIntString(x.String())
	case string:
		return parseIntString(x)
	default:
		return 0, false
	}
}

func parseIntString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	// Decimal comma shows up in some locales' exports.
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

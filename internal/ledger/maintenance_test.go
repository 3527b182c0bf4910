package ledger

import (
	"reflect"
	"testing"

	"receiptbook/internal/core"
)

func rawRow(date, name, qty, amount, owner string) core.RawRow {
	return core.RawRow{
		"date": date, "name": name, "quantity": qty,
		"category": "Food", "amount": amount, "owner": owner,
	}
}

func TestRemoveOwnerRows(t *testing.T) {
	raws := []core.RawRow{
		rawRow("2024-03-01", "Milk", "2", "80", "alice"),
		rawRow("2024-03-01", "Bread", "1", "30", "bob"),
		rawRow("not-a-date", "Broken", "1", "x", "alice"), // undecodable, still owned
		rawRow("2024-03-02", "Eggs", "1", "40", " alice "),
		rawRow("2024-03-02", "Tea", "1", "20", "Alice"), // different casing survives
	}
	kept, removed := RemoveOwnerRows(raws, "alice")
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	want := []core.RawRow{raws[1], raws[4]}
	if !reflect.DeepEqual(kept, want) {
		t.Fatalf("unexpected survivors: %+v", kept)
	}
}

func TestRemoveOwnerRowsNoMatch(t *testing.T) {
	raws := []core.RawRow{rawRow("2024-03-01", "Milk", "2", "80", "alice")}
	kept, removed := RemoveOwnerRows(raws, "nobody")
	if removed != 0 || len(kept) != 1 {
		t.Fatalf("expected untouched ledger, got %d kept / %d removed", len(kept), removed)
	}
}

func TestDeduplicateRows(t *testing.T) {
	raws := []core.RawRow{
		rawRow("2024-03-01", "Milk", "2", "80", "alice"),
		rawRow("not-a-date", "Broken", "1", "10", "alice"),
		rawRow("2024-03-01", "Milk", "2", "80", "alice"), // duplicate of row 0
		rawRow("not-a-date", "Broken", "1", "10", "alice"),
		rawRow("2024-03-01", "Milk", "2", "80", "bob"),
	}
	kept, removed := DeduplicateRows(raws)
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	// Rows without an identity are never treated as duplicates of each other.
	want := []core.RawRow{raws[0], raws[1], raws[3], raws[4]}
	if !reflect.DeepEqual(kept, want) {
		t.Fatalf("unexpected survivors: %+v", kept)
	}
}

func TestDeduplicateRowsIdempotent(t *testing.T) {
	raws := []core.RawRow{
		rawRow("2024-03-01", "Milk", "2", "80", "alice"),
		rawRow("2024-03-01", "Milk", "2", "80", "alice"),
		rawRow("2024-03-02", "Bread", "1", "30", "alice"),
	}
	once, _ := DeduplicateRows(raws)
	twice, removed := DeduplicateRows(once)
	if removed != 0 {
		t.Fatalf("second pass must remove nothing, removed %d", removed)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("raw dedup must be idempotent")
	}
}

package ledger

import (
	"reflect"
	"strconv"
	"testing"

	"receiptbook/internal/core"
)

func item(date, name string, qty, amount int64, owner string) core.LineItem {
	d, _ := core.ParseDate(date)
	return core.LineItem{Date: d, Name: name, Quantity: qty, Category: "Food", Amount: amount, Owner: owner}
}

func TestDecode(t *testing.T) {
	raws := []core.RawRow{
		{"date": "2024-03-01", "name": "Milk", "quantity": "2", "category": "Food", "amount": "80", "owner": "alice"},
		{"date": "not-a-date", "name": "Bad", "quantity": "1", "category": "Food", "amount": "10", "owner": "alice"},
		{"date": "2024-03-02", "name": "Bread", "quantity": "x", "category": "Food", "amount": "10", "owner": "alice"},
		{"date": "2024-03-02", "name": "Eggs", "quantity": "1", "category": "Food", "amount": "abc", "owner": "alice"},
		{"date": "2024-03-03", "name": "Tea", "quantity": "1", "category": "Food", "amount": "20"}, // legacy row, no owner
		{"date": "2024-03-04", "name": "  Coffee  ", "quantity": "1", "category": "Food", "amount": "50", "owner": "bob"},
	}
	items, excluded := Decode(raws)
	if len(items) != 2 || excluded != 4 {
		t.Fatalf("expected 2 items and 4 exclusions, got %d/%d", len(items), excluded)
	}
	if items[1].Name != "Coffee" {
		t.Fatalf("names must be trimmed at the boundary: %q", items[1].Name)
	}
}

func TestDeduplicateKeepsFirstAndOrder(t *testing.T) {
	rows := []core.LineItem{
		item("2024-03-01", "Milk", 2, 80, "alice"),
		item("2024-03-01", "Bread", 1, 30, "alice"),
		item("2024-03-01", "Milk", 2, 80, "alice"), // duplicate of row 0
		item("2024-03-01", "Milk", 2, 80, "bob"),   // same item, other owner
	}
	got, removed := Deduplicate(rows)
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	want := []core.LineItem{rows[0], rows[1], rows[3]}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected survivors: %+v", got)
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	rows := []core.LineItem{
		item("2024-03-01", "Milk", 2, 80, "alice"),
		item("2024-03-01", "Milk", 2, 80, "alice"),
		item("2024-03-02", "Bread", 1, 30, "alice"),
	}
	once, _ := Deduplicate(rows)
	twice, removed := Deduplicate(once)
	if removed != 0 {
		t.Fatalf("second pass must remove nothing, removed %d", removed)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("dedup must be idempotent")
	}
}

func TestScopeToOwnerExactMatch(t *testing.T) {
	rows := []core.LineItem{
		item("2024-03-01", "Milk", 1, 10, "alice"),
		item("2024-03-01", "Bread", 1, 20, "Alice"),
		item("2024-03-01", "Eggs", 1, 30, "bob"),
	}
	got := ScopeToOwner(rows, "alice")
	if len(got) != 1 || got[0].Name != "Milk" {
		t.Fatalf("scope must be byte-exact: %+v", got)
	}
}

func TestFilterName(t *testing.T) {
	rows := []core.LineItem{
		item("2024-03-01", "Whole Milk", 1, 10, "alice"),
		item("2024-03-01", "Bread", 1, 20, "alice"),
	}
	if got := FilterName(rows, "milk"); len(got) != 1 || got[0].Name != "Whole Milk" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	if got := FilterName(rows, ""); len(got) != 2 {
		t.Fatalf("empty term must keep everything")
	}
}

func TestAggregations(t *testing.T) {
	rows := []core.LineItem{
		item("2024-03-01", "Milk", 2, 80, "alice"),
		item("2024-03-15", "Bread", 1, 20, "alice"),
		item("2024-04-02", "Eggs", 1, 50, "alice"),
	}
	if got := Total(rows); got != 150 {
		t.Fatalf("total: got %d", got)
	}
	sums := MonthlySums(rows)
	if sums["2024-03"] != 100 || sums["2024-04"] != 50 {
		t.Fatalf("monthly sums: %+v", sums)
	}
	if got := MonthlyAverage(rows); got != 75 {
		t.Fatalf("monthly average: got %v", got)
	}
	byCat := CategoryBreakdown(rows, "2024-03")
	if byCat["Food"] != 100 || len(byCat) != 1 {
		t.Fatalf("category breakdown: %+v", byCat)
	}
	months := SortedMonths(sums)
	if len(months) != 2 || months[0] != "2024-03" || months[1] != "2024-04" {
		t.Fatalf("months not chronological: %v", months)
	}
}

func TestMonthlySumsMatchTotal(t *testing.T) {
	var rows []core.LineItem
	for i := 0; i < 12; i++ {
		m := strconv.Itoa(i%12 + 1)
		if len(m) == 1 {
			m = "0" + m
		}
		rows = append(rows, item("2024-"+m+"-10", "Item"+strconv.Itoa(i), 1, int64(i*7+1), "alice"))
	}
	sums := MonthlySums(rows)
	var sum int64
	for _, v := range sums {
		sum += v
	}
	if sum != Total(rows) {
		t.Fatalf("sum of monthly sums %d != total %d", sum, Total(rows))
	}
}

func TestMonthlyAverageEmpty(t *testing.T) {
	if got := MonthlyAverage(nil); got != 0 {
		t.Fatalf("expected 0 for no months, got %v", got)
	}
}

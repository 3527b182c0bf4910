package ledger

import (
	"sort"

	"receiptbook/internal/core"
)

// Total sums all amounts of an owner-scoped, deduplicated row set.
func Total(items []core.LineItem) int64 {
	var total int64
	for _, li := range items {
		total += li.Amount
	}
	return total
}

// MonthlySums groups amounts by the row's year-month. Iteration order is
// the caller's concern; see SortedMonths for chronological charts.
func MonthlySums(items []core.LineItem) map[core.Month]int64 {
	sums := make(map[core.Month]int64)
	for _, li := range items {
		sums[li.Date.Month()] += li.Amount
	}
	return sums
}

// MonthlyAverage is the mean of the per-month sums, 0 when there are no
// months. The mean stays fractional; rounding is presentation's job.
func MonthlyAverage(items []core.LineItem) float64 {
	sums := MonthlySums(items)
	if len(sums) == 0 {
		return 0
	}
	var total int64
	for _, v := range sums {
		total += v
	}
	return float64(total) / float64(len(sums))
}

// CategoryBreakdown restricts rows to the given year-month and group-sums
// their amounts by category.
func CategoryBreakdown(items []core.LineItem, month core.Month) map[string]int64 {
	sums := make(map[string]int64)
	for _, li := range items {
		if li.Date.Month() != month {
			continue
		}
		sums[li.Category] += li.Amount
	}
	return sums
}

// SortedMonths returns the keys of a monthly sum map in chronological order.
func SortedMonths(sums map[core.Month]int64) []core.Month {
	months := make([]core.Month, 0, len(sums))
	for m := range sums {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })
	return months
}

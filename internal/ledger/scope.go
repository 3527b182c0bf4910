package ledger

import (
	"strings"

	"receiptbook/internal/core"
)

// ScopeToOwner returns only the rows belonging to the given owner, compared
// byte-exact. Owners are canonicalized to their stored casing at login, so
// no case folding happens here.
func ScopeToOwner(items []core.LineItem, owner string) []core.LineItem {
	out := make([]core.LineItem, 0, len(items))
	for _, li := range items {
		if li.Owner == owner {
			out = append(out, li)
		}
	}
	return out
}

// FilterName keeps rows whose item name contains the search term,
// case-insensitively. An empty term keeps everything.
func FilterName(items []core.LineItem, term string) []core.LineItem {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items
	}
	out := make([]core.LineItem, 0, len(items))
	for _, li := range items {
		if strings.Contains(strings.ToLower(li.Name), term) {
			out = append(out, li)
		}
	}
	return out
}

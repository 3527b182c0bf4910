// Package memory is an in-memory store adapter used by tests and by local
// runs without a spreadsheet. It mimics the worksheet shape, header row
// included, so legacy-schema behavior is exercisable.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"receiptbook/internal/core"
	ports "receiptbook/internal/sheets"
)

type Store struct {
	mu      sync.Mutex
	header  []string
	rows    [][]string
	users   []core.User
	offline bool
}

// Ensure interface conformance
var (
	_ ports.LedgerStore = (*Store)(nil)
	_ ports.UserStore   = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// SetOffline makes every call fail with core.ErrStoreUnavailable, for
// exercising connectivity failure paths.
func (s *Store) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

// Seed replaces the stored worksheet content verbatim, header included.
// Lets tests start from a legacy schema without an owner column.
func (s *Store) Seed(header []string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = append([]string(nil), header...)
	s.rows = nil
	for _, r := range rows {
		s.rows = append(s.rows, append([]string(nil), r...))
	}
}

func (s *Store) LoadAll(_ context.Context) ([]core.RawRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return nil, fmt.Errorf("load ledger: %w", core.ErrStoreUnavailable)
	}
	out := make([]core.RawRow, 0, len(s.rows))
	for _, cols := range s.rows {
		row := make(core.RawRow, len(core.LedgerHeader))
		for _, name := range core.LedgerHeader {
			row[name] = safeGet(cols, indexOf(s.header, name))
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) AppendRows(_ context.Context, items []core.LineItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	for _, li := range items {
		if err := li.Validate(); err != nil {
			return 0, fmt.Errorf("validation failed: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return 0, fmt.Errorf("append ledger rows: %w", core.ErrStoreUnavailable)
	}

	if len(s.header) == 0 || indexOf(s.header, core.ColOwner) == -1 {
		// Bootstrap: fresh header, previously stored legacy rows are
		// re-laid-out under it.
		old := s.rows
		oldHeader := s.header
		s.header = append([]string(nil), core.LedgerHeader...)
		s.rows = nil
		for _, cols := range old {
			s.rows = append(s.rows, relayout(oldHeader, cols, s.header))
		}
	}
	for _, li := range items {
		s.rows = append(s.rows, itemCells(s.header, li))
	}
	return len(items), nil
}

func (s *Store) RewriteAll(_ context.Context, rows []core.RawRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return fmt.Errorf("rewrite ledger: %w", core.ErrStoreUnavailable)
	}
	s.header = append([]string(nil), core.LedgerHeader...)
	s.rows = nil
	for _, r := range rows {
		s.rows = append(s.rows, rawCells(s.header, r))
	}
	return nil
}

func (s *Store) EnsureColumn(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return fmt.Errorf("add column: %w", core.ErrStoreUnavailable)
	}
	// An empty schema gets the full header so later appends never see a
	// header holding only the healed column.
	if len(s.header) == 0 {
		s.header = append([]string(nil), core.LedgerHeader...)
		return nil
	}
	if indexOf(s.header, name) == -1 {
		s.header = append(s.header, name)
	}
	return nil
}

// RowCount reports stored data rows, for test assertions.
func (s *Store) RowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return nil, fmt.Errorf("load users: %w", core.ErrStoreUnavailable)
	}
	return append([]core.User(nil), s.users...), nil
}

func (s *Store) AppendUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return fmt.Errorf("append user: %w", core.ErrStoreUnavailable)
	}
	s.users = append(s.users, u)
	return nil
}

func (s *Store) UpdateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return fmt.Errorf("update user: %w", core.ErrStoreUnavailable)
	}
	for i := range s.users {
		if s.users[i].Username == u.Username {
			s.users[i] = u
			return nil
		}
	}
	return fmt.Errorf("user %q: %w", u.Username, core.ErrNotFound)
}

func (s *Store) DeleteUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return fmt.Errorf("delete user: %w", core.ErrStoreUnavailable)
	}
	for i := range s.users {
		if s.users[i].Username == username {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("user %q: %w", username, core.ErrNotFound)
}

func itemCells(header []string, li core.LineItem) []string {
	row := li.Row()
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = row[strings.ToLower(strings.TrimSpace(h))]
	}
	return out
}

func rawCells(header []string, r core.RawRow) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = r[strings.ToLower(strings.TrimSpace(h))]
	}
	return out
}

func relayout(oldHeader, cols, newHeader []string) []string {
	out := make([]string, len(newHeader))
	for i, h := range newHeader {
		out[i] = safeGet(cols, indexOf(oldHeader, h))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

package session

import (
	"testing"
	"time"
)

func TestCreateAndGet(t *testing.T) {
	m := NewManager(time.Hour)

	s, err := m.Create("mario")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if s.Username != "mario" {
		t.Errorf("Username = %q, want mario", s.Username)
	}

	got, ok := m.Get(s.Token)
	if !ok {
		t.Fatal("expected to find session")
	}
	if got.Username != "mario" {
		t.Errorf("got username %q, want mario", got.Username)
	}
}

func TestGetUnknownToken(t *testing.T) {
	m := NewManager(time.Hour)
	if _, ok := m.Get("nope"); ok {
		t.Error("expected miss for unknown token")
	}
}

func TestTokensAreUnique(t *testing.T) {
	m := NewManager(time.Hour)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s, err := m.Create("mario")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if seen[s.Token] {
			t.Fatalf("duplicate token %q", s.Token)
		}
		seen[s.Token] = true
	}
}

func TestDestroy(t *testing.T) {
	m := NewManager(time.Hour)
	s, _ := m.Create("mario")

	m.Destroy(s.Token)
	if _, ok := m.Get(s.Token); ok {
		t.Error("expected session to be gone after Destroy")
	}

	// unknown token is a no-op
	m.Destroy("nope")
}

func TestDestroyUser(t *testing.T) {
	m := NewManager(time.Hour)
	a1, _ := m.Create("mario")
	a2, _ := m.Create("mario")
	b, _ := m.Create("luigi")

	if removed := m.DestroyUser("mario"); removed != 2 {
		t.Errorf("DestroyUser removed %d, want 2", removed)
	}
	if _, ok := m.Get(a1.Token); ok {
		t.Error("mario session 1 should be gone")
	}
	if _, ok := m.Get(a2.Token); ok {
		t.Error("mario session 2 should be gone")
	}
	if _, ok := m.Get(b.Token); !ok {
		t.Error("luigi session should survive")
	}
}

func TestExpiry(t *testing.T) {
	m := NewManager(time.Hour)
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	s, _ := m.Create("mario")

	if _, ok := m.Get(s.Token); !ok {
		t.Fatal("expected live session")
	}

	current = current.Add(2 * time.Hour)
	if _, ok := m.Get(s.Token); ok {
		t.Error("expected expired session to miss")
	}
	if m.Len() != 0 {
		t.Errorf("expected expired session removed, len = %d", m.Len())
	}
}

func TestCleanup(t *testing.T) {
	m := NewManager(time.Hour)
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	m.Create("mario")
	m.Create("luigi")

	current = current.Add(30 * time.Minute)
	m.Create("peach")

	current = current.Add(45 * time.Minute)
	if removed := m.Cleanup(); removed != 2 {
		t.Errorf("Cleanup removed %d, want 2", removed)
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 live session, got %d", m.Len())
	}
}

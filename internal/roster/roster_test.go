package roster

import (
	"context"
	"testing"

	"outreach_backend/platform/sheets"
)

func seedRoster(store *sheets.MemoryStore) {
	store.Seed("book", "Roster", [][]string{
		{"USERNAME", "EMAIL", "NAME", "MANAGER", "MANAGER EMAIL", "ACTIVE"},
		{"Alice ", "alice@example.com", "Alice A", "Greg", "greg@example.com", "yes"},
		{"bob", "bob@example.com", "Bob B", "Greg", "greg@example.com", "yes"},
		{"alice", "", "", "Dana", "", "yes"}, // second shift row, different manager
		{"carol", "carol@example.com", "Carol C", "", "", "no"},
		{"", "ghost@example.com", "", "Greg", "", "yes"},
	})
}

func TestLoad_ProfilesAndManagerMapping(t *testing.T) {
	ctx := context.Background()
	store := sheets.NewMemoryStore()
	seedRoster(store)

	r, err := Load(ctx, store, "book", "Roster")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	alice, ok := r.Profile("alice")
	if !ok {
		t.Fatal("expected alice on the roster")
	}
	if alice.Email != "alice@example.com" || alice.Manager != "Greg" {
		t.Fatalf("first row must win for profile details: %+v", alice)
	}

	managers := r.Managers("alice")
	if len(managers) != 2 {
		t.Fatalf("expected duplicate manager assignment to stay visible, got %v", managers)
	}
	if len(r.Managers("carol")) != 0 {
		t.Fatal("carol has no manager assigned")
	}
}

func TestLoad_AllowListSkipsInactive(t *testing.T) {
	ctx := context.Background()
	store := sheets.NewMemoryStore()
	seedRoster(store)

	r, err := Load(ctx, store, "book", "Roster")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	allowed := r.AllowList()
	if !allowed["alice"] || !allowed["bob"] {
		t.Fatalf("expected active reps on the allow list, got %v", allowed)
	}
	if allowed["carol"] {
		t.Fatal("inactive rep must not be on the allow list")
	}
}

func TestLoad_NoActiveColumnMeansEveryoneActive(t *testing.T) {
	ctx := context.Background()
	store := sheets.NewMemoryStore()
	store.Seed("book", "Roster", [][]string{
		{"REP", "EMAIL"},
		{"dave", "dave@example.com"},
	})

	r, err := Load(ctx, store, "book", "Roster")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !r.AllowList()["dave"] {
		t.Fatal("rep without an active column should default to active")
	}
}

func TestLoad_MissingUsernameColumn(t *testing.T) {
	ctx := context.Background()
	store := sheets.NewMemoryStore()
	store.Seed("book", "Roster", [][]string{
		{"NOTES", "EMAIL"},
		{"x", "y"},
	})

	if _, err := Load(ctx, store, "book", "Roster"); err == nil {
		t.Fatal("expected config error for roster without username column")
	}
}

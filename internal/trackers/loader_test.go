package trackers

import (
	"context"
	"testing"

	"outreach_backend/platform/sheets"
)

const testBook = "book"

func seedCallTracker(store *sheets.MemoryStore, dataRows [][]string) Layout {
	grid := [][]string{
		{"PRIORITIES", "0, 1", "REQUIRED", "2"},
		{"JOB #", "REP", "PHONE", "PHONE 2", "PRIORITY", "MOVE DATE", "ESTIMATE", "EXCLUDE"},
	}
	grid = append(grid, dataRows...)
	store.Seed(testBook, "CallTracker", grid)
	return DefaultLayouts()[0]
}

func TestLoad_AdmissionRules(t *testing.T) {
	ctx := context.Background()
	store := sheets.NewMemoryStore()
	layout := seedCallTracker(store, [][]string{
		{"J100", "Alice", "(555) 123-4567", "", "0", "9/4/2026", "$6,200.00", ""},
		{"J101", "alice ", "555-999-0000", "1-555-999-0000", "3", "", "800", ""},
		{"J102", "mallory", "5550001111", "", "0", "", "", ""},    // not on roster
		{"J103", "alice", "too short", "", "0", "", "", ""},       // no valid phone
		{"", "alice", "5552223333", "", "0", "", "", ""},          // no job id
		{"J105", "alice", "5554445555", "", "0", "", "", "x"},     // excluded
		{"J106", "alice", "5556667777", "", "junk", "", "", "no"}, // bad priority -> default
	})

	allowed := map[string]bool{"alice": true, "bob": true}
	result, stats, err := Load(ctx, store, testBook, layout, allowed)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if stats.Rows != 7 {
		t.Fatalf("expected 7 raw rows, got %d", stats.Rows)
	}
	if stats.Admitted != 3 || len(result) != 3 {
		t.Fatalf("expected 3 admitted leads, got %d (%+v)", len(result), stats)
	}
	if stats.RepRejected != 1 || stats.NoPhone != 1 || stats.NoJobID != 1 || stats.Excluded != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	first := result[0]
	if first.JobID != "J100" || first.Rep != "alice" {
		t.Fatalf("unexpected lead: %+v", first)
	}
	if len(first.Phones) != 1 || first.Phones[0] != "5551234567" {
		t.Fatalf("unexpected phones: %v", first.Phones)
	}
	if first.Estimate != 6200 {
		t.Fatalf("expected estimate 6200, got %v", first.Estimate)
	}
	if first.MoveDate.IsZero() {
		t.Fatal("expected parsed move date")
	}

	second := result[1]
	if len(second.Phones) != 1 {
		t.Fatalf("primary and secondary normalize to the same key; expected dedupe, got %v", second.Phones)
	}

	// Bad priority falls back to the layout default, never errors.
	third := result[2]
	if third.Priority != layout.DefaultPriority {
		t.Fatalf("expected default priority %d, got %d", layout.DefaultPriority, third.Priority)
	}
}

func TestLoad_NoRosterLayoutAdmitsAnyNamedRep(t *testing.T) {
	ctx := context.Background()
	store := sheets.NewMemoryStore()
	store.Seed(testBook, "FollowUp", [][]string{
		{"PRIORITIES", "0", "REQUIRED", "0"},
		{"JOB #", "REP", "PHONE"},
		{"J1", "someone new", "5551234567"},
		{"J2", "", "5559990000"},
	})

	layout := DefaultLayouts()[2]
	result, stats, err := Load(ctx, store, testBook, layout, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(result) != 1 || stats.RepRejected != 1 {
		t.Fatalf("expected 1 admitted and 1 rep-rejected, got %+v", stats)
	}
}

func TestLoad_MissingJobColumnIsConfigError(t *testing.T) {
	ctx := context.Background()
	store := sheets.NewMemoryStore()
	store.Seed(testBook, "CallTracker", [][]string{
		{"PRIORITIES", "0"},
		{"NAME", "NOTES"},
	})

	if _, _, err := Load(ctx, store, testBook, DefaultLayouts()[0], nil); err == nil {
		t.Fatal("expected config error for header without job column")
	}
}

func TestLoadLayouts_YAMLOverridesAndDefaults(t *testing.T) {
	data := []byte(`
trackers:
  - name: weekend-blitz
    sheet: WeekendBlitz
    medium: sms
    requireRoster: true
  - sheet: CallTracker
`)
	layouts, err := LoadLayouts(data)
	if err != nil {
		t.Fatalf("load layouts: %v", err)
	}
	if len(layouts) != 2 {
		t.Fatalf("expected 2 layouts, got %d", len(layouts))
	}
	if layouts[0].HeaderRow != 2 || layouts[0].DataStartRow != 3 || layouts[0].PriorityCell != "B1" {
		t.Fatalf("defaults not applied: %+v", layouts[0])
	}
	if layouts[1].Name != "CallTracker" || layouts[1].Medium != "call" {
		t.Fatalf("defaults not applied: %+v", layouts[1])
	}

	if _, err := LoadLayouts([]byte("trackers:\n  - name: broken\n")); err == nil {
		t.Fatal("expected error for layout without sheet")
	}
}

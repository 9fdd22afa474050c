package trackers

import (
	"context"
	"testing"

	"outreach_backend/internal/leads"
	"outreach_backend/platform/phone"
	"outreach_backend/platform/sheets"
)

func enriched(jobID string, priority, callsToday, smsToday int) leads.EnrichedLead {
	return leads.EnrichedLead{
		Lead: leads.Lead{
			JobID:    jobID,
			Rep:      "alice",
			Phones:   []phone.Key{"5551234567"},
			Priority: priority,
		},
		RC: leads.Reachability{
			CallsToday: callsToday,
			SMSToday:   smsToday,
			WorkStatus: leads.NotWorked,
		},
	}
}

func seedDestination(store *sheets.MemoryStore, priorityCell, requiredCell string) {
	store.Seed(testBook, "CallTracker", [][]string{
		{"PRIORITIES", priorityCell, "REQUIRED", requiredCell},
		{"JOB #", "REP", "PHONE", "PRIORITY", "CALLS", "WORK STATUS"},
		{"stale-1", "old", "555", "9", "9", "OLD"},
		{"stale-2", "old", "555", "9", "9", "OLD"},
		{"stale-3", "old", "555", "9", "9", "OLD"},
	})
}

func TestParams_ThresholdSemantics(t *testing.T) {
	// Required count 0 selects leads with count < 1; required count 2
	// selects leads with count < 3.
	if got := (Params{RequiredCount: 0}).Threshold(); got != 1 {
		t.Fatalf("threshold for 0 = %d, want 1", got)
	}
	if got := (Params{RequiredCount: 2}).Threshold(); got != 3 {
		t.Fatalf("threshold for 2 = %d, want 3", got)
	}
	if got := (Params{RequiredCount: -1}).Threshold(); got != 1 {
		t.Fatalf("threshold for -1 = %d, want 1", got)
	}
}

func TestWrite_FiltersByPriorityAndMediumCount(t *testing.T) {
	ctx := context.Background()
	store := sheets.NewMemoryStore()
	seedDestination(store, "0, 1", "2")
	layout := DefaultLayouts()[0] // call tracker

	input := []leads.EnrichedLead{
		enriched("J1", 0, 0, 9), // selected: priority 0, 0 calls < 3
		enriched("J2", 1, 2, 0), // selected: priority 1, 2 calls < 3
		enriched("J3", 0, 3, 0), // rejected: 3 calls not < 3
		enriched("J4", 5, 0, 0), // rejected: priority not targeted
	}

	summary, err := Write(ctx, store, testBook, layout, input)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if summary.RowsWritten != 2 {
		t.Fatalf("expected 2 rows written, got %d", summary.RowsWritten)
	}
	if summary.RequiredCount != 2 || len(summary.Priorities) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	rows, err := store.Read(ctx, testBook, "CallTracker!A3:F")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("stale rows must be cleared before writing, got %d rows", len(rows))
	}
	if rows[0][0] != "J1" || rows[1][0] != "J2" {
		t.Fatalf("loader order must be preserved, got %v", rows)
	}
	// Row maps onto the destination's own header layout.
	if rows[0][2] != "(555) 123-4567" {
		t.Fatalf("expected display-formatted phone, got %q", rows[0][2])
	}

	// Parameter row is untouched.
	params, _ := store.Read(ctx, testBook, "CallTracker!A1:D1")
	if params[0][1] != "0, 1" || params[0][3] != "2" {
		t.Fatalf("parameter row disturbed: %v", params)
	}
}

func TestWrite_RequiredCountZeroMeansUntouchedOnly(t *testing.T) {
	ctx := context.Background()
	store := sheets.NewMemoryStore()
	seedDestination(store, "0", "0")

	input := []leads.EnrichedLead{
		enriched("J1", 0, 0, 0), // zero calls -> selected
		enriched("J2", 0, 1, 0), // one call -> rejected
	}

	summary, err := Write(ctx, store, testBook, DefaultLayouts()[0], input)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if summary.RowsWritten != 1 {
		t.Fatalf("expected only the untouched lead, got %d", summary.RowsWritten)
	}
}

func TestWrite_SMSTrackerCountsSMSMedium(t *testing.T) {
	ctx := context.Background()
	store := sheets.NewMemoryStore()
	store.Seed(testBook, "TextTracker", [][]string{
		{"PRIORITIES", "0", "REQUIRED", "0"},
		{"JOB #", "REP", "PHONE", "SMS"},
	})

	input := []leads.EnrichedLead{
		enriched("J1", 0, 5, 0), // 5 calls but 0 sms -> selected on the sms tracker
		enriched("J2", 0, 0, 1), // 1 sms today -> rejected
	}

	summary, err := Write(ctx, store, testBook, DefaultLayouts()[1], input)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if summary.RowsWritten != 1 {
		t.Fatalf("expected 1 row, got %d", summary.RowsWritten)
	}
	rows, _ := store.Read(ctx, testBook, "TextTracker!A3:D")
	if rows[0][0] != "J1" {
		t.Fatalf("expected J1 selected, got %v", rows)
	}
}

func TestWrite_BlankHeadersGetDefaults(t *testing.T) {
	ctx := context.Background()
	store := sheets.NewMemoryStore()
	store.Seed(testBook, "CallTracker", [][]string{
		{"PRIORITIES", "0", "REQUIRED", "0"},
	})

	if _, err := Write(ctx, store, testBook, DefaultLayouts()[0], []leads.EnrichedLead{enriched("J1", 0, 0, 0)}); err != nil {
		t.Fatalf("write: %v", err)
	}

	headers, _ := store.Read(ctx, testBook, "CallTracker!A2:M2")
	if len(headers) == 0 || headers[0][0] != "JOB #" {
		t.Fatalf("expected default headers written, got %v", headers)
	}
}

func TestWrite_RepReportSortsByPriorityThenStatus(t *testing.T) {
	ctx := context.Background()
	store := sheets.NewMemoryStore()
	store.Seed(testBook, "FollowUp", [][]string{
		{"PRIORITIES", "0 3", "REQUIRED", "5"},
		{"JOB #", "PRIORITY", "WORK STATUS"},
	})

	worked := enriched("J-worked", 0, 0, 0)
	worked.RC.WorkStatus = leads.Worked
	notWorked := enriched("J-cold", 3, 0, 0)
	notWorked.RC.WorkStatus = leads.NotWorked
	partial := enriched("J-partial", 0, 0, 0)
	partial.RC.WorkStatus = leads.Partial

	_, err := Write(ctx, store, testBook, DefaultLayouts()[2], []leads.EnrichedLead{worked, notWorked, partial})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	rows, _ := store.Read(ctx, testBook, "FollowUp!A3:C")
	got := []string{rows[0][0], rows[1][0], rows[2][0]}
	want := []string{"J-partial", "J-worked", "J-cold"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected sort order: %v", got)
		}
	}
}

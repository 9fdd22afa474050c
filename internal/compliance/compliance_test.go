package compliance

import (
	"context"
	"testing"

	"outreach_backend/internal/leads"
	"outreach_backend/internal/roster"
	"outreach_backend/platform/sheets"
)

func statusLead(rep, jobID string, status leads.WorkStatus, attempts int) leads.EnrichedLead {
	rc := leads.Reachability{WorkStatus: status, CallsToday: attempts}
	return leads.EnrichedLead{
		Lead: leads.Lead{JobID: jobID, Rep: rep},
		RC:   rc,
	}
}

func loadTestRoster(t *testing.T, rows [][]string) *roster.Roster {
	t.Helper()
	store := sheets.NewMemoryStore()
	store.Seed("book", "Roster", rows)
	r, err := roster.Load(context.Background(), store, "book", "Roster")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	return r
}

func TestAggregate_RepComplianceRounds(t *testing.T) {
	enriched := []leads.EnrichedLead{
		statusLead("alice", "J1", leads.Engaged, 6),
		statusLead("alice", "J2", leads.Worked, 5),
		statusLead("alice", "J3", leads.NotWorked, 0),
		statusLead("bob", "J4", leads.Partial, 1),
	}

	report := Aggregate(enriched, nil)
	if len(report.Reps) != 2 {
		t.Fatalf("expected 2 reps, got %d", len(report.Reps))
	}

	alice := report.Reps[0]
	if alice.Rep != "alice" || alice.Total != 3 || alice.Engaged != 1 || alice.Worked != 1 {
		t.Fatalf("unexpected alice stats: %+v", alice)
	}
	// 2 of 3 -> 66.67 -> 67.
	if alice.Compliance != 67 {
		t.Fatalf("compliance = %d, want 67", alice.Compliance)
	}

	bob := report.Reps[1]
	if bob.Compliance != 0 {
		t.Fatalf("bob compliance = %d, want 0", bob.Compliance)
	}
}

func TestAggregate_BucketsAttemptDistribution(t *testing.T) {
	enriched := []leads.EnrichedLead{
		statusLead("a", "J1", leads.NotWorked, 0),
		statusLead("a", "J2", leads.Partial, 3),
		statusLead("a", "J3", leads.Partial, 4),
		statusLead("a", "J4", leads.Worked, 10),
		statusLead("a", "J5", leads.Worked, 11),
	}

	report := Aggregate(enriched, nil)
	want := Buckets{Zero: 1, Low: 1, Mid: 2, High: 1}
	if report.Buckets != want {
		t.Fatalf("buckets = %+v, want %+v", report.Buckets, want)
	}
}

func TestAggregate_LeadIssuesAndStoplight(t *testing.T) {
	hot := statusLead("alice", "J-hot", leads.NotWorked, 0)
	hot.RC.IsHot = true
	highValue := statusLead("alice", "J-value", leads.NotWorked, 0)
	highValue.RC.IsHighValue = true
	stale := statusLead("alice", "J-stale", leads.NotWorked, 0)
	stale.RC.IsStale = true
	fine := statusLead("alice", "J-fine", leads.Engaged, 2)

	report := Aggregate([]leads.EnrichedLead{hot, highValue, stale, fine}, nil)
	if report.Stoplight != StoplightRed {
		t.Fatalf("hot-not-worked must turn the run RED, got %s", report.Stoplight)
	}

	// Issues come back ordered by severity.
	if report.Issues[0].Severity != SeverityCritical || report.Issues[0].JobID != "J-hot" {
		t.Fatalf("expected the critical issue first, got %+v", report.Issues[0])
	}
	var severities []Severity
	for _, issue := range report.Issues {
		severities = append(severities, issue.Severity)
	}
	for i := 1; i < len(severities); i++ {
		if severityRank(severities[i]) < severityRank(severities[i-1]) {
			t.Fatalf("issues out of severity order: %v", severities)
		}
	}
}

func TestAggregate_LowComplianceIsHigh(t *testing.T) {
	enriched := []leads.EnrichedLead{
		statusLead("alice", "J1", leads.Partial, 1),
		statusLead("alice", "J2", leads.NotWorked, 0),
	}

	report := Aggregate(enriched, nil)
	found := false
	for _, issue := range report.Issues {
		if issue.Rep == "alice" && issue.Severity == SeverityHigh {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a high-severity compliance issue, got %+v", report.Issues)
	}
	if report.Stoplight != StoplightYellow {
		t.Fatalf("high issues without criticals are YELLOW, got %s", report.Stoplight)
	}
}

func TestAggregate_TeamRollupExcludesBadManagerMappings(t *testing.T) {
	r := loadTestRoster(t, [][]string{
		{"USERNAME", "EMAIL", "MANAGER"},
		{"alice", "alice@example.com", "Greg"},
		{"bob", "bob@example.com", "Greg"},
		{"carol", "carol@example.com", "Greg"},
		{"carol", "carol@example.com", "Dana"}, // duplicate mapping
		{"dave", "", ""},                       // unassigned, missing email
	})

	enriched := []leads.EnrichedLead{
		statusLead("alice", "J1", leads.Engaged, 6),
		statusLead("bob", "J2", leads.NotWorked, 0),
		statusLead("carol", "J3", leads.Worked, 5),
		statusLead("dave", "J4", leads.Worked, 5),
	}

	report := Aggregate(enriched, r)
	if len(report.Teams) != 1 {
		t.Fatalf("expected one team, got %+v", report.Teams)
	}

	team := report.Teams[0]
	if team.Manager != "Greg" || team.Total != 2 {
		t.Fatalf("carol and dave must be excluded from the rollup: %+v", team)
	}
	if team.Compliance != 50 {
		t.Fatalf("team compliance = %d, want 50", team.Compliance)
	}

	var messages []string
	for _, issue := range report.Issues {
		messages = append(messages, issue.Rep+": "+issue.Message)
	}
	assertContains(t, messages, "carol: assigned to 2 managers")
	assertContains(t, messages, "dave: no manager assigned")
	assertContains(t, messages, "dave: no email address on the roster")
}

func assertContains(t *testing.T, haystack []string, want string) {
	t.Helper()
	for _, s := range haystack {
		if s == want {
			return
		}
	}
	t.Fatalf("missing %q in %v", want, haystack)
}

func TestStoplight_GreenWhenClean(t *testing.T) {
	report := Aggregate([]leads.EnrichedLead{
		statusLead("alice", "J1", leads.Engaged, 3),
		statusLead("alice", "J2", leads.Worked, 5),
	}, nil)
	if report.Stoplight != StoplightGreen {
		t.Fatalf("clean run must be GREEN, got %s", report.Stoplight)
	}
	if len(report.Issues) != 0 {
		t.Fatalf("expected no issues, got %+v", report.Issues)
	}
}

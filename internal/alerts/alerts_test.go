package alerts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"outreach_backend/internal/compliance"
	"outreach_backend/internal/leads"
	"outreach_backend/internal/roster"
	"outreach_backend/platform/kv"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/sheets"
)

type capturingSender struct {
	sent    []string // "to|subject"
	bodies  map[string]string
	failFor string
}

func (s *capturingSender) Send(ctx context.Context, to, subject, body string) error {
	if to == s.failFor {
		return errors.New("mailbox unavailable")
	}
	s.sent = append(s.sent, to+"|"+subject)
	if s.bodies == nil {
		s.bodies = make(map[string]string)
	}
	s.bodies[to] = body
	return nil
}

func testReport(r *roster.Roster) compliance.Report {
	return compliance.Aggregate([]leads.EnrichedLead{
		{Lead: leads.Lead{JobID: "J1", Rep: "alice"}, RC: leads.Reachability{WorkStatus: leads.Engaged, CallsToday: 6}},
		{Lead: leads.Lead{JobID: "J2", Rep: "bob"}, RC: leads.Reachability{WorkStatus: leads.NotWorked}},
	}, r)
}

func testRoster(t *testing.T) *roster.Roster {
	t.Helper()
	store := sheets.NewMemoryStore()
	store.Seed("book", "Roster", [][]string{
		{"USERNAME", "EMAIL", "MANAGER"},
		{"alice", "alice@example.com", "Greg"},
		{"bob", "bob@example.com", "Greg"},
	})
	r, err := roster.Load(context.Background(), store, "book", "Roster")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	return r
}

func TestSendRunReports_OneFailureDoesNotAbort(t *testing.T) {
	sender := &capturingSender{failFor: "alice@example.com"}
	notifier := New(sender, kv.NewMemoryStore(), logger.New("development"), "boss@example.com", "")

	r := testRoster(t)
	failures, err := notifier.SendRunReports(context.Background(), testReport(r), r)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(failures) != 1 || failures[0].Recipient != "alice@example.com" {
		t.Fatalf("expected alice's failure captured, got %+v", failures)
	}
	// Bob and the manager still got their mail.
	joined := strings.Join(sender.sent, "\n")
	if !strings.Contains(joined, "bob@example.com") || !strings.Contains(joined, "boss@example.com") {
		t.Fatalf("remaining recipients must still be served: %v", sender.sent)
	}
}

func TestSendRunReports_TestModeRoutesToOverride(t *testing.T) {
	flags := kv.NewMemoryStore()
	if err := flags.Put(context.Background(), kv.KeyTestMode, "true"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	sender := &capturingSender{}
	notifier := New(sender, flags, logger.New("development"), "boss@example.com", "qa@example.com")

	r := testRoster(t)
	if _, err := notifier.SendRunReports(context.Background(), testReport(r), r); err != nil {
		t.Fatalf("send: %v", err)
	}

	for _, entry := range sender.sent {
		if !strings.HasPrefix(entry, "qa@example.com|") {
			t.Fatalf("test mode must route everything to the override address: %v", sender.sent)
		}
	}
	if len(sender.sent) != 3 { // alice, bob, manager
		t.Fatalf("expected 3 messages, got %d", len(sender.sent))
	}
}

func TestSendRunReports_BodyCarriesStatsAndIssues(t *testing.T) {
	sender := &capturingSender{}
	notifier := New(sender, kv.NewMemoryStore(), logger.New("development"), "boss@example.com", "")

	r := testRoster(t)
	report := testReport(r)
	if _, err := notifier.SendRunReports(context.Background(), report, r); err != nil {
		t.Fatalf("send: %v", err)
	}

	body := sender.bodies["boss@example.com"]
	if !strings.Contains(body, "Run status: "+string(report.Stoplight)) {
		t.Fatalf("team report missing stoplight: %q", body)
	}
	if !strings.Contains(body, "Team Greg") {
		t.Fatalf("team report missing rollup: %q", body)
	}

	aliceBody := sender.bodies["alice@example.com"]
	if !strings.Contains(aliceBody, "Compliance: 100%") {
		t.Fatalf("rep report missing compliance: %q", aliceBody)
	}
}

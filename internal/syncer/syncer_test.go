package syncer

import (
	"context"
	"testing"
	"time"

	"outreach_backend/internal/activity"
	"outreach_backend/internal/telephony"
	"outreach_backend/platform/kv"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/sheets"
)

const testBook = "book"

var callSheet = LogSheet{
	Medium:         activity.MediumCall,
	Provider:       telephony.MediumCall,
	TodaySheet:     "CallLogToday",
	YesterdaySheet: "CallLogYesterday",
}

type fakeProvider struct {
	fullResult telephony.SyncResult
	fullErr    error
	incResult  telephony.SyncResult
	incErr     error
	fullCalls  int
	incCalls   int
}

func (p *fakeProvider) FullSync(ctx context.Context, medium telephony.Medium, start, end time.Time) (telephony.SyncResult, error) {
	p.fullCalls++
	return p.fullResult, p.fullErr
}

func (p *fakeProvider) IncrementalSync(ctx context.Context, medium telephony.Medium, token string) (telephony.SyncResult, error) {
	p.incCalls++
	return p.incResult, p.incErr
}

func record(at time.Time, direction, from, to string, seconds int) telephony.Record {
	return telephony.Record{
		Timestamp:       at,
		Direction:       direction,
		From:            from,
		To:              to,
		DurationSeconds: seconds,
		Status:          "completed",
	}
}

func newTestSyncer(provider Provider) (*Syncer, *sheets.MemoryStore, kv.Store) {
	store := sheets.NewMemoryStore()
	flags := kv.NewMemoryStore()
	s := New(provider, store, flags, logger.New("development"), testBook, time.UTC)
	s.WithClock(func() time.Time { return time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC) })
	return s, store, flags
}

func TestSync_NoTokenRunsFullSync(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		fullResult: telephony.SyncResult{
			Records: []telephony.Record{
				record(at, "Outgoing", "+15550001111", "+15558675309", 185),
			},
			Token: "tok-1",
		},
	}
	s, store, flags := newTestSyncer(provider)

	summary, err := s.Sync(ctx, callSheet)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if summary.Mode != "full" || summary.Fetched != 1 || summary.Appended != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	rows, err := store.Read(ctx, testBook, "CallLogToday!A2:F")
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(rows) != 1 || rows[0][4] != "185" {
		t.Fatalf("unexpected log rows: %v", rows)
	}

	token, ok, _ := flags.Get(ctx, kv.TokenKey("call"))
	if !ok || token != "tok-1" {
		t.Fatalf("expected token persisted, got %q ok=%v", token, ok)
	}
	if provider.incCalls != 0 {
		t.Fatal("incremental path must not run without a token")
	}
}

func TestSync_IncrementalDedupesOverlappingBatches(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	first := record(base, "Outgoing", "+15550001111", "+15558675309", 185)
	second := record(base.Add(time.Minute), "Incoming", "+15559990000", "+15550001111", 42)

	provider := &fakeProvider{
		fullResult: telephony.SyncResult{Records: []telephony.Record{first}, Token: "tok-1"},
	}
	s, store, flags := newTestSyncer(provider)
	if _, err := s.Sync(ctx, callSheet); err != nil {
		t.Fatalf("seed full sync: %v", err)
	}

	// Incremental batch overlaps the already-written record.
	provider.incResult = telephony.SyncResult{Records: []telephony.Record{first, second}, Token: "tok-2"}

	summary, err := s.Sync(ctx, callSheet)
	if err != nil {
		t.Fatalf("incremental sync: %v", err)
	}
	if summary.Mode != "incremental" || summary.Fetched != 2 || summary.Appended != 1 {
		t.Fatalf("expected 1 of 2 appended, got %+v", summary)
	}

	// Re-running the identical batch appends nothing.
	summary, err = s.Sync(ctx, callSheet)
	if err != nil {
		t.Fatalf("repeat incremental sync: %v", err)
	}
	if summary.Appended != 0 {
		t.Fatalf("overlapping re-run must append zero rows, got %+v", summary)
	}

	rows, _ := store.Read(ctx, testBook, "CallLogToday!A2:F")
	if len(rows) != 2 {
		t.Fatalf("expected 2 distinct rows, got %d: %v", len(rows), rows)
	}

	token, _, _ := flags.Get(ctx, kv.TokenKey("call"))
	if token != "tok-2" {
		t.Fatalf("expected rolled-forward token, got %q", token)
	}
}

func TestSync_RejectedTokenFallsBackToFullOnce(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		incErr: telephony.ErrTokenRejected,
		fullResult: telephony.SyncResult{
			Records: []telephony.Record{record(at, "Outgoing", "+15550001111", "+15558675309", 60)},
			Token:   "tok-fresh",
		},
	}
	s, _, flags := newTestSyncer(provider)
	if err := flags.Put(ctx, kv.TokenKey("call"), "tok-stale"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	summary, err := s.Sync(ctx, callSheet)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if summary.Mode != "full" || !summary.TokenReset {
		t.Fatalf("expected full-sync fallback, got %+v", summary)
	}
	if provider.incCalls != 1 || provider.fullCalls != 1 {
		t.Fatalf("fallback must run each path exactly once: inc=%d full=%d", provider.incCalls, provider.fullCalls)
	}

	token, _, _ := flags.Get(ctx, kv.TokenKey("call"))
	if token != "tok-fresh" {
		t.Fatalf("expected fresh token after fallback, got %q", token)
	}
}

func TestRotateDaily_PromotesTodayAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	s, store, flags := newTestSyncer(provider)

	store.Seed(testBook, "CallLogToday", [][]string{
		{"START TIME", "DIRECTION", "FROM NUMBER", "TO NUMBER", "DURATION", "RESULT"},
		{"2026-08-27 09:00:00", "Outgoing", "+15550001111", "+15558675309", "185", "completed"},
	})
	store.Seed(testBook, "CallLogYesterday", [][]string{
		{"STALE", "OLD"},
	})
	if err := flags.Put(ctx, kv.TokenKey("call"), "tok-old"); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := flags.Put(ctx, kv.TokenStoredAtKey("call"), "2026-08-27T09:00:00Z"); err != nil {
		t.Fatalf("seed token timestamp: %v", err)
	}

	rotated, err := s.RotateDaily(ctx, []LogSheet{callSheet})
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if !rotated {
		t.Fatal("expected rotation on first run of the day")
	}

	yesterday, _ := store.Read(ctx, testBook, "CallLogYesterday!A1:F")
	if len(yesterday) != 2 || yesterday[1][4] != "185" {
		t.Fatalf("yesterday log not promoted: %v", yesterday)
	}
	todayData, _ := store.Read(ctx, testBook, "CallLogToday!A2:F")
	if len(todayData) != 0 {
		t.Fatalf("today data region must be cleared, got %v", todayData)
	}
	if _, ok, _ := flags.Get(ctx, kv.TokenKey("call")); ok {
		t.Fatal("rotation must reset the sync token")
	}
	if _, ok, _ := flags.Get(ctx, kv.TokenStoredAtKey("call")); ok {
		t.Fatal("rotation must drop the token timestamp with the token")
	}

	rotated, err = s.RotateDaily(ctx, []LogSheet{callSheet})
	if err != nil {
		t.Fatalf("repeat rotate: %v", err)
	}
	if rotated {
		t.Fatal("second rotation on the same day must be a no-op")
	}
}

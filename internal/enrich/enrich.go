// Package enrich joins loaded leads against the outreach index and
// derives each lead's reachability record. The step is read-and-combine
// only: it never mutates the index and can run repeatedly over the same
// input with identical results.
package enrich

import (
	"context"
	"time"

	"outreach_backend/internal/config"
	"outreach_backend/internal/leads"
	"outreach_backend/internal/outreach"
)

// Provider supplies supplemental attributes for an enriched lead from an
// external source. The dependency is optional: a nil Provider means the
// step runs with index data only, and that absence is an ordinary typed
// condition rather than anything detected at runtime.
type Provider interface {
	Annotate(ctx context.Context, lead *leads.EnrichedLead) error
}

// Stats summarizes one enrichment pass.
type Stats struct {
	Leads          int
	WithActivity   int
	ProviderErrors int
}

// Enricher derives reachability records using the configured thresholds.
type Enricher struct {
	thresholds config.Thresholds
	provider   Provider

	// now is injectable for tests; date-sensitive flags are computed
	// against its calendar day.
	now func() time.Time
}

// New builds an enricher. provider may be nil.
func New(thresholds config.Thresholds, provider Provider) *Enricher {
	return &Enricher{
		thresholds: thresholds,
		provider:   provider,
		now:        time.Now,
	}
}

// WithClock overrides the time source.
func (e *Enricher) WithClock(now func() time.Time) *Enricher {
	e.now = now
	return e
}

// Enrich attaches a reachability record to every lead. Provider failures
// never abort the pass; they are counted and the lead keeps its
// index-derived record.
func (e *Enricher) Enrich(ctx context.Context, input []leads.Lead, ix *outreach.Index) ([]leads.EnrichedLead, Stats, error) {
	today := truncateToDay(e.now())
	out := make([]leads.EnrichedLead, 0, len(input))
	stats := Stats{Leads: len(input)}

	for _, lead := range input {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		enriched := leads.EnrichedLead{Lead: lead, RC: e.derive(lead, ix, today)}
		if enriched.RC.TotalAttempts() > 0 || enriched.RC.InboundTotal > 0 || enriched.RC.RepliesTotal > 0 {
			stats.WithActivity++
		}

		if e.provider != nil {
			if err := e.provider.Annotate(ctx, &enriched); err != nil {
				stats.ProviderErrors++
			}
		}

		out = append(out, enriched)
	}
	return out, stats, nil
}

// derive sums index entries across every phone key the lead carries. A
// lead with two valid numbers is reached if either number shows
// activity.
func (e *Enricher) derive(lead leads.Lead, ix *outreach.Index, today time.Time) leads.Reachability {
	var rc leads.Reachability
	smsOutTotal := 0
	smsOutFailed := 0

	for _, key := range lead.Phones {
		entry, ok := ix.Entry(key)
		if !ok {
			continue
		}
		rc.CallsYesterday += entry.CallsOutYesterday
		rc.CallsToday += entry.CallsOutToday
		rc.SMSYesterday += entry.SMSOutYesterday
		rc.SMSToday += entry.SMSOutToday
		rc.VMYesterday += entry.VMYesterday
		rc.VMToday += entry.VMToday
		rc.RepliesTotal += entry.SMSInYesterday + entry.SMSInToday
		rc.InboundTotal += entry.CallsInYesterday + entry.CallsInToday
		rc.TotalDurationSeconds += entry.TotalDurationSeconds

		if longest := entry.LongestCall(); longest > rc.LongestCallSeconds {
			rc.LongestCallSeconds = longest
		}
		if entry.LastActivity.After(rc.LastActivity) {
			rc.LastActivity = entry.LastActivity
		}

		smsOutTotal += entry.SMSOutTotal()
		smsOutFailed += entry.SMSOutFailed
	}

	rc.MeetsStandard = rc.TotalAttempts() >= e.thresholds.MinTotalAttempts
	rc.HasLongCall = rc.LongestCallSeconds >= e.thresholds.LongCallSeconds
	rc.HasReplied = rc.RepliesTotal > 0
	rc.HasInbound = rc.InboundTotal > 0
	rc.AllSMSFailed = smsOutTotal > 0 && smsOutFailed == smsOutTotal

	if !lead.MoveDate.IsZero() {
		daysUntil := daysBetween(today, truncateToDay(lead.MoveDate))
		rc.IsHot = daysUntil > 0 && daysUntil <= e.thresholds.HotMoveDays
	}
	rc.IsHighValue = lead.Estimate >= e.thresholds.HighValueThreshold
	if !lead.CreatedAt.IsZero() {
		age := daysBetween(truncateToDay(lead.CreatedAt), today)
		rc.IsStale = age >= e.thresholds.StaleDays && rc.TotalAttempts() == 0
	}

	rc.WorkStatus = rc.Derive()
	return rc
}

func truncateToDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b. Each time is read as a
// date in its own location before differencing, so a move date parsed
// at UTC midnight and a clock running in the provider's zone agree on
// what "tomorrow" is.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	au := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bu := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

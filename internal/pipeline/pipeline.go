// Package pipeline orchestrates one reconciliation run: sync the logs,
// build the outreach index, load and enrich the tracker leads,
// aggregate compliance, write the trackers back, and fan out reports.
// Between stages it polls the durable cancellation flag and exits with
// a partial summary instead of rolling anything back.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"outreach_backend/internal/activity"
	"outreach_backend/internal/alerts"
	"outreach_backend/internal/compliance"
	"outreach_backend/internal/config"
	"outreach_backend/internal/enrich"
	"outreach_backend/internal/leads"
	"outreach_backend/internal/outreach"
	"outreach_backend/internal/roster"
	"outreach_backend/internal/syncer"
	"outreach_backend/internal/telephony"
	"outreach_backend/internal/trackers"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/kv"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/sheets"
)

// Notifier is the slice of the alerts package the pipeline needs.
type Notifier interface {
	SendRunReports(ctx context.Context, report compliance.Report, r *roster.Roster) ([]alerts.SendFailure, error)
}

// LogSyncer is the slice of the sync engine the pipeline needs.
type LogSyncer interface {
	Sync(ctx context.Context, sheet syncer.LogSheet) (syncer.Summary, error)
	RotateDaily(ctx context.Context, sheets []syncer.LogSheet) (bool, error)
}

// RunSummary is the user-visible outcome of one run. It is the only
// failure surface: errors inside a run are folded into Success,
// Message, and Stoplight rather than bubbling further.
type RunSummary struct {
	ID        uuid.UUID
	Trigger   string
	StartedAt time.Time
	Finished  time.Time

	Success  bool
	Partial  bool
	Canceled bool
	Message  string

	Stoplight compliance.Stoplight

	LeadsLoaded   int
	LeadsEnriched int
	RowsWritten   int

	SyncSummaries []syncer.Summary
	Diagnostics   outreach.Diagnostics
	Report        compliance.Report
	SendFailures  []alerts.SendFailure
}

// Pipeline wires the run stages together. Syncer and notifier are
// optional; a nil syncer skips the provider stage (logs are taken as
// they are) and a nil notifier skips report delivery.
type Pipeline struct {
	cfg      *config.Config
	store    sheets.ValueStore
	flags    kv.Store
	logs     LogSyncer
	enricher *enrich.Enricher
	notifier Notifier
	layouts  []trackers.Layout
	log      *logger.Logger
	now      func() time.Time
}

// New builds a pipeline.
func New(cfg *config.Config, store sheets.ValueStore, flags kv.Store, logs LogSyncer, enricher *enrich.Enricher, notifier Notifier, layouts []trackers.Layout, log *logger.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    store,
		flags:    flags,
		logs:     logs,
		enricher: enricher,
		notifier: notifier,
		layouts:  layouts,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the time source.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// LogSheets describes the medium-to-sheet binding for this
// configuration, shared by the run and by the standalone sync tasks.
func LogSheets(cfg *config.Config) []syncer.LogSheet {
	return []syncer.LogSheet{
		{
			Medium:         activity.MediumCall,
			Provider:       telephony.MediumCall,
			TodaySheet:     cfg.CallLogTodaySheet,
			YesterdaySheet: cfg.CallLogYesterdaySheet,
		},
		{
			Medium:         activity.MediumSMS,
			Provider:       telephony.MediumSMS,
			TodaySheet:     cfg.SMSLogTodaySheet,
			YesterdaySheet: cfg.SMSLogYesterdaySheet,
		},
	}
}

// Run executes the full pipeline under a fresh run ID.
func (p *Pipeline) Run(ctx context.Context, trigger string) RunSummary {
	return p.RunAs(ctx, uuid.New(), trigger)
}

// RunAs executes the full pipeline under a caller-chosen run ID, so
// the trigger surface can hand the ID out before the run finishes.
// Configuration errors fail the run immediately; data-quality problems
// are skipped per row and reported through diagnostics and issues.
func (p *Pipeline) RunAs(ctx context.Context, id uuid.UUID, trigger string) RunSummary {
	summary := RunSummary{
		ID:        id,
		Trigger:   trigger,
		StartedAt: p.now(),
	}
	log := p.log.WithRun(summary.ID.String())

	fail := func(stage string, err error) RunSummary {
		log.Error("pipeline run failed", "stage", stage, "error", err)
		summary.Finished = p.now()
		summary.Success = false
		summary.Message = fmt.Sprintf("%s: %v", stage, err)
		summary.Stoplight = compliance.StoplightRed
		return summary
	}
	canceled := func(stage string) RunSummary {
		log.Warn("pipeline run canceled", "after_stage", stage)
		summary.Finished = p.now()
		summary.Success = true
		summary.Partial = true
		summary.Canceled = true
		summary.Message = "canceled after " + stage
		summary.Stoplight = compliance.StoplightYellow
		return summary
	}

	// Stage: provider sync.
	if p.logs != nil {
		logSheets := LogSheets(p.cfg)
		if _, err := p.logs.RotateDaily(ctx, logSheets); err != nil {
			return fail("rotate", err)
		}
		for _, sheet := range logSheets {
			syncSummary, err := p.logs.Sync(ctx, sheet)
			if err != nil {
				return fail("sync "+string(sheet.Medium), err)
			}
			summary.SyncSummaries = append(summary.SyncSummaries, syncSummary)
		}
		if p.cancelRequested(ctx) {
			return canceled("sync")
		}
	}

	// Stage: roster.
	var reps *roster.Roster
	if p.cfg.RosterSheet != "" {
		loaded, err := roster.Load(ctx, p.store, p.cfg.SpreadsheetID, p.cfg.RosterSheet)
		if err != nil {
			return fail("roster", err)
		}
		reps = loaded
	}

	// Stage: index.
	index, err := p.buildIndex(ctx)
	if err != nil {
		return fail("index", err)
	}
	summary.Diagnostics = index.Diag
	log.PipelineStage("index", index.Size())
	if p.cancelRequested(ctx) {
		return canceled("index")
	}

	// Stage: leads.
	var allowList map[string]bool
	if reps != nil {
		allowList = reps.AllowList()
	}
	var loaded []leads.Lead
	for _, layout := range p.layouts {
		layoutLeads, stats, err := trackers.Load(ctx, p.store, p.cfg.SpreadsheetID, layout, allowList)
		if err != nil {
			return fail("load "+layout.Name, err)
		}
		log.Info("tracker loaded", "tracker", layout.Name, "rows", stats.Rows, "admitted", stats.Admitted)
		loaded = append(loaded, layoutLeads...)
	}
	summary.LeadsLoaded = len(loaded)
	log.PipelineStage("load", len(loaded))

	// Stage: enrich.
	enriched, enrichStats, err := p.enricher.Enrich(ctx, loaded, index)
	if err != nil {
		return fail("enrich", err)
	}
	summary.LeadsEnriched = len(enriched)
	log.PipelineStage("enrich", enrichStats.WithActivity)
	if p.cancelRequested(ctx) {
		return canceled("enrich")
	}

	// Stage: aggregate.
	summary.Report = compliance.Aggregate(enriched, reps)
	log.PipelineStage("aggregate", len(summary.Report.Issues))

	// Stage: write trackers, polling cancellation between sheets.
	byTracker := make(map[string][]leads.EnrichedLead)
	for _, lead := range enriched {
		byTracker[lead.Tracker] = append(byTracker[lead.Tracker], lead)
	}
	for _, layout := range p.layouts {
		if p.cancelRequested(ctx) {
			return canceled("write " + layout.Name)
		}
		written, err := trackers.Write(ctx, p.store, p.cfg.SpreadsheetID, layout, byTracker[layout.Name])
		if err != nil {
			return fail("write "+layout.Name, err)
		}
		summary.RowsWritten += written.RowsWritten
	}
	log.PipelineStage("write", summary.RowsWritten)

	// Stage: reports.
	if p.notifier != nil {
		failures, err := p.notifier.SendRunReports(ctx, summary.Report, reps)
		if err != nil {
			return fail("alerts", err)
		}
		summary.SendFailures = failures
	}

	summary.Finished = p.now()
	summary.Success = true
	summary.Message = "ok"
	summary.Stoplight = stoplightFor(summary)
	log.Info("pipeline run complete",
		"leads", summary.LeadsLoaded,
		"rows_written", summary.RowsWritten,
		"stoplight", string(summary.Stoplight),
	)
	return summary
}

// buildIndex reads all four log sheets and folds them into one index.
func (p *Pipeline) buildIndex(ctx context.Context) (*outreach.Index, error) {
	index := outreach.NewIndex()
	sources := []struct {
		medium activity.Medium
		bucket outreach.DayBucket
		sheet  string
	}{
		{activity.MediumCall, outreach.BucketYesterday, p.cfg.CallLogYesterdaySheet},
		{activity.MediumCall, outreach.BucketToday, p.cfg.CallLogTodaySheet},
		{activity.MediumSMS, outreach.BucketYesterday, p.cfg.SMSLogYesterdaySheet},
		{activity.MediumSMS, outreach.BucketToday, p.cfg.SMSLogTodaySheet},
	}

	for _, src := range sources {
		grid, err := p.store.Read(ctx, p.cfg.SpreadsheetID, src.sheet+"!A1:Z")
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, "read log sheet "+src.sheet, err).WithOp("pipeline.buildIndex")
		}
		if len(grid) < 2 {
			continue // header only or empty; nothing logged yet
		}
		reader, err := activity.NewReader(src.medium, grid[0], grid[1:])
		if err != nil {
			return nil, err
		}
		index.FoldReader(src.bucket, reader)
	}
	return index, nil
}

// cancelRequested polls the durable cancellation flag. Storage errors
// are treated as "not canceled"; cancellation is cooperative and
// best-effort.
func (p *Pipeline) cancelRequested(ctx context.Context) bool {
	value, ok, err := p.flags.Get(ctx, kv.KeyCancelRequested)
	if err != nil {
		p.log.Warn("cancel flag read failed", "error", err)
		return false
	}
	return ok && value != ""
}

// RequestCancel sets the cancellation flag with a short TTL so a
// crashed caller cannot wedge future runs.
func RequestCancel(ctx context.Context, flags kv.Store, ttl time.Duration) error {
	return flags.PutTTL(ctx, kv.KeyCancelRequested, "1", ttl)
}

// stoplightFor combines the report's stoplight with delivery health: a
// GREEN report whose run dropped reports on the floor degrades to
// YELLOW so the summary never looks cleaner than the run was.
func stoplightFor(summary RunSummary) compliance.Stoplight {
	light := summary.Report.Stoplight
	if light == "" {
		light = compliance.StoplightGreen
	}
	if light == compliance.StoplightGreen && len(summary.SendFailures) > 0 {
		return compliance.StoplightYellow
	}
	return light
}

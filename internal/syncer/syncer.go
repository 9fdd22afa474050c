// Package syncer keeps the activity log sheets current with the
// telephony provider. Per medium it runs a two-state machine: with no
// stored continuation token it performs a full sync of the current
// provider-local day and overwrites the log; with a token it performs
// an incremental sync and appends only records the log has not seen.
package syncer

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"outreach_backend/internal/activity"
	"outreach_backend/internal/telephony"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/kv"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/sheets"
)

// Provider is the slice of the telephony client the syncer needs.
type Provider interface {
	FullSync(ctx context.Context, medium telephony.Medium, start, end time.Time) (telephony.SyncResult, error)
	IncrementalSync(ctx context.Context, medium telephony.Medium, token string) (telephony.SyncResult, error)
}

// LogSheet binds one medium to its pair of log sheets.
type LogSheet struct {
	Medium         activity.Medium
	Provider       telephony.Medium
	TodaySheet     string
	YesterdaySheet string
}

// Fixed header order per medium; the activity reader resolves these by
// name, so the spelling here must stay within its candidate lists.
var (
	callHeaders = []string{"START TIME", "DIRECTION", "FROM NUMBER", "TO NUMBER", "DURATION", "RESULT"}
	smsHeaders  = []string{"START TIME", "DIRECTION", "FROM NUMBER", "TO NUMBER", "MESSAGE STATUS"}
)

const timestampLayout = "2006-01-02 15:04:05"

// Summary reports what one sync pass did.
type Summary struct {
	Medium   activity.Medium
	Mode     string // "full" or "incremental"
	Fetched  int
	Appended int
	// TokenReset is set when a rejected token forced the full-sync
	// fallback.
	TokenReset bool
}

// Syncer drives provider syncs into the spreadsheet-backed logs.
type Syncer struct {
	provider      Provider
	store         sheets.ValueStore
	flags         kv.Store
	log           *logger.Logger
	spreadsheetID string
	tz            *time.Location
	now           func() time.Time
}

// New builds a syncer. tz is the provider-local timezone used for full
// sync day bounds and the daily log rotation.
func New(provider Provider, store sheets.ValueStore, flags kv.Store, log *logger.Logger, spreadsheetID string, tz *time.Location) *Syncer {
	if tz == nil {
		tz = time.UTC
	}
	return &Syncer{
		provider:      provider,
		store:         store,
		flags:         flags,
		log:           log,
		spreadsheetID: spreadsheetID,
		tz:            tz,
		now:           time.Now,
	}
}

// WithClock overrides the time source.
func (s *Syncer) WithClock(now func() time.Time) *Syncer {
	s.now = now
	return s
}

// Sync brings one medium's today-log up to date. On a rejected token
// the stored token is deleted and the full-sync path runs once from
// here; the incremental path is never re-entered.
func (s *Syncer) Sync(ctx context.Context, sheet LogSheet) (Summary, error) {
	tokenKey := kv.TokenKey(string(sheet.Medium))
	token, ok, err := s.flags.Get(ctx, tokenKey)
	if err != nil {
		return Summary{}, apperr.Wrap(apperr.KindUnavailable, "read sync token", err).WithOp("syncer.Sync")
	}

	if !ok || token == "" {
		return s.fullSync(ctx, sheet, false)
	}

	summary, err := s.incrementalSync(ctx, sheet, token)
	if errors.Is(err, telephony.ErrTokenRejected) {
		s.log.Warn("sync token rejected, falling back to full sync", "medium", string(sheet.Medium))
		if err := s.flags.Delete(ctx, tokenKey); err != nil {
			return Summary{}, apperr.Wrap(apperr.KindUnavailable, "delete rejected token", err).WithOp("syncer.Sync")
		}
		if err := s.flags.Delete(ctx, kv.TokenStoredAtKey(string(sheet.Medium))); err != nil {
			return Summary{}, apperr.Wrap(apperr.KindUnavailable, "delete token timestamp", err).WithOp("syncer.Sync")
		}
		return s.fullSync(ctx, sheet, true)
	}
	return summary, err
}

// fullSync fetches the whole provider-local day and overwrites the
// today-log's data region.
func (s *Syncer) fullSync(ctx context.Context, sheet LogSheet, afterReset bool) (Summary, error) {
	now := s.now().In(s.tz)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.tz)

	result, err := s.provider.FullSync(ctx, sheet.Provider, dayStart, now)
	if err != nil {
		return Summary{}, err
	}

	headers := headersFor(sheet.Medium)
	rows := make([][]string, 0, len(result.Records))
	for _, rec := range result.Records {
		rows = append(rows, s.formatRow(sheet.Medium, rec))
	}

	headerRange := sheets.RangeFor(sheet.TodaySheet, 1, 1, len(headers), 1)
	if err := s.store.Write(ctx, s.spreadsheetID, headerRange, [][]string{headers}); err != nil {
		return Summary{}, apperr.Wrap(apperr.KindUnavailable, "write log headers", err).WithOp("syncer.fullSync")
	}
	dataRange := sheets.RangeFor(sheet.TodaySheet, 1, 2, len(headers), 0)
	if err := s.store.Clear(ctx, s.spreadsheetID, dataRange); err != nil {
		return Summary{}, apperr.Wrap(apperr.KindUnavailable, "clear log data", err).WithOp("syncer.fullSync")
	}
	if len(rows) > 0 {
		writeRange := sheets.RangeFor(sheet.TodaySheet, 1, 2, len(headers), 1+len(rows))
		if err := s.store.Write(ctx, s.spreadsheetID, writeRange, rows); err != nil {
			return Summary{}, apperr.Wrap(apperr.KindUnavailable, "write log rows", err).WithOp("syncer.fullSync")
		}
	}

	if err := s.persistToken(ctx, sheet, result.Token); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Medium:     sheet.Medium,
		Mode:       "full",
		Fetched:    len(result.Records),
		Appended:   len(rows),
		TokenReset: afterReset,
	}
	s.log.SyncEvent(string(sheet.Medium), summary.Mode, summary.Fetched, summary.Appended)
	return summary, nil
}

// incrementalSync appends records whose dedupe key is not already in
// the sheet. The key is derived purely from the formatted output row,
// so overlapping batches never double-write.
func (s *Syncer) incrementalSync(ctx context.Context, sheet LogSheet, token string) (Summary, error) {
	result, err := s.provider.IncrementalSync(ctx, sheet.Provider, token)
	if err != nil {
		return Summary{}, err
	}

	headers := headersFor(sheet.Medium)
	existingRange := sheets.RangeFor(sheet.TodaySheet, 1, 2, len(headers), 0)
	existing, err := s.store.Read(ctx, s.spreadsheetID, existingRange)
	if err != nil {
		return Summary{}, apperr.Wrap(apperr.KindUnavailable, "read existing log rows", err).WithOp("syncer.incrementalSync")
	}

	seen := make(map[string]bool, len(existing))
	for _, row := range existing {
		seen[dedupeKey(sheet.Medium, row)] = true
	}

	var appendRows [][]string
	for _, rec := range result.Records {
		row := s.formatRow(sheet.Medium, rec)
		key := dedupeKey(sheet.Medium, row)
		if seen[key] {
			continue
		}
		seen[key] = true
		appendRows = append(appendRows, row)
	}

	if len(appendRows) > 0 {
		appendRange := sheets.RangeFor(sheet.TodaySheet, 1, 2, len(headers), 0)
		if err := s.store.Append(ctx, s.spreadsheetID, appendRange, appendRows); err != nil {
			return Summary{}, apperr.Wrap(apperr.KindUnavailable, "append log rows", err).WithOp("syncer.incrementalSync")
		}
	}

	if err := s.persistToken(ctx, sheet, result.Token); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Medium:   sheet.Medium,
		Mode:     "incremental",
		Fetched:  len(result.Records),
		Appended: len(appendRows),
	}
	s.log.SyncEvent(string(sheet.Medium), summary.Mode, summary.Fetched, summary.Appended)
	return summary, nil
}

// RotateDaily promotes the today-logs to the yesterday-logs once per
// provider-local day. The marker in the flag store makes the rotation
// idempotent across repeated scheduler runs.
func (s *Syncer) RotateDaily(ctx context.Context, logSheets []LogSheet) (bool, error) {
	today := s.now().In(s.tz).Format("2006-01-02")
	marker, ok, err := s.flags.Get(ctx, kv.KeyYesterdayCache)
	if err != nil {
		return false, apperr.Wrap(apperr.KindUnavailable, "read rotation marker", err).WithOp("syncer.RotateDaily")
	}
	if ok && marker == today {
		return false, nil
	}

	for _, sheet := range logSheets {
		headers := headersFor(sheet.Medium)
		grid, err := s.store.Read(ctx, s.spreadsheetID, sheets.RangeFor(sheet.TodaySheet, 1, 1, len(headers), 0))
		if err != nil {
			return false, apperr.Wrap(apperr.KindUnavailable, "read today log", err).WithOp("syncer.RotateDaily")
		}

		if err := s.store.Clear(ctx, s.spreadsheetID, sheets.RangeFor(sheet.YesterdaySheet, 1, 1, len(headers), 0)); err != nil {
			return false, apperr.Wrap(apperr.KindUnavailable, "clear yesterday log", err).WithOp("syncer.RotateDaily")
		}
		if len(grid) > 0 {
			target := sheets.RangeFor(sheet.YesterdaySheet, 1, 1, len(headers), len(grid))
			if err := s.store.Write(ctx, s.spreadsheetID, target, grid); err != nil {
				return false, apperr.Wrap(apperr.KindUnavailable, "write yesterday log", err).WithOp("syncer.RotateDaily")
			}
		}
		if err := s.store.Clear(ctx, s.spreadsheetID, sheets.RangeFor(sheet.TodaySheet, 1, 2, len(headers), 0)); err != nil {
			return false, apperr.Wrap(apperr.KindUnavailable, "clear today log", err).WithOp("syncer.RotateDaily")
		}

		// Yesterday's closing token describes a window that no longer
		// matches the log contents; force a fresh full sync.
		if err := s.flags.Delete(ctx, kv.TokenKey(string(sheet.Medium))); err != nil {
			return false, apperr.Wrap(apperr.KindUnavailable, "reset token on rotation", err).WithOp("syncer.RotateDaily")
		}
		if err := s.flags.Delete(ctx, kv.TokenStoredAtKey(string(sheet.Medium))); err != nil {
			return false, apperr.Wrap(apperr.KindUnavailable, "reset token timestamp on rotation", err).WithOp("syncer.RotateDaily")
		}
	}

	if err := s.flags.Put(ctx, kv.KeyYesterdayCache, today); err != nil {
		return false, apperr.Wrap(apperr.KindUnavailable, "write rotation marker", err).WithOp("syncer.RotateDaily")
	}
	return true, nil
}

func (s *Syncer) persistToken(ctx context.Context, sheet LogSheet, token string) error {
	if token == "" {
		return nil
	}
	if err := s.flags.Put(ctx, kv.TokenKey(string(sheet.Medium)), token); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "persist sync token", err).WithOp("syncer.persistToken")
	}
	if err := s.flags.Put(ctx, kv.TokenStoredAtKey(string(sheet.Medium)), s.now().UTC().Format(time.RFC3339)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "persist token timestamp", err).WithOp("syncer.persistToken")
	}
	return nil
}

// formatRow renders one provider record into its sheet row, in the
// fixed header order for the medium.
func (s *Syncer) formatRow(medium activity.Medium, rec telephony.Record) []string {
	ts := ""
	if !rec.Timestamp.IsZero() {
		ts = rec.Timestamp.In(s.tz).Format(timestampLayout)
	}
	if medium == activity.MediumCall {
		return []string{ts, rec.Direction, rec.From, rec.To, strconv.Itoa(rec.DurationSeconds), rec.Status}
	}
	return []string{ts, rec.Direction, rec.From, rec.To, rec.Status}
}

// dedupeKey concatenates timestamp, direction, counterpart, and the
// medium's duration-or-status column from a formatted row.
func dedupeKey(medium activity.Medium, row []string) string {
	get := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	counterpart := get(3)
	if activity.ClassifyDirection(get(1)) == activity.DirectionInbound {
		counterpart = get(2)
	}

	// Column 4 holds the duration for calls and the delivery status for
	// SMS; either way it disambiguates same-second same-party rows.
	last := get(4)
	return strings.Join([]string{get(0), strings.ToUpper(get(1)), counterpart, last}, "|")
}

func headersFor(medium activity.Medium) []string {
	if medium == activity.MediumCall {
		return callHeaders
	}
	return smsHeaders
}

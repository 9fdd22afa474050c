package trackers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"outreach_backend/internal/leads"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/phone"
	"outreach_backend/platform/sheets"
)

// maxTrackerColumns bounds how wide a tracker row is read. No tracker
// layout in use comes close.
const maxTrackerColumns = 40

// LoadStats reports why rows were or were not admitted. Skipped rows
// are a data-quality fact, never an error.
type LoadStats struct {
	Rows        int
	Admitted    int
	NoPhone     int
	NoJobID     int
	Excluded    int
	RepRejected int
}

// Load reads one tracker sheet and produces a Lead per admissible row.
// allowed is the normalized-username allow-list; it is consulted only
// when the layout requires a roster match, otherwise any non-empty rep
// admits the row.
func Load(ctx context.Context, store sheets.ValueStore, spreadsheetID string, layout Layout, allowed map[string]bool) ([]leads.Lead, LoadStats, error) {
	var stats LoadStats

	headerRange := sheets.RangeFor(layout.Sheet, layout.StartColumn, layout.HeaderRow, layout.StartColumn+maxTrackerColumns-1, layout.HeaderRow)
	headerRows, err := store.Read(ctx, spreadsheetID, headerRange)
	if err != nil {
		return nil, stats, apperr.Wrap(apperr.KindUnavailable, "read tracker header", err).WithOp("trackers.Load")
	}
	if len(headerRows) == 0 {
		return nil, stats, apperr.Config("tracker " + layout.Name + " has no header row").WithOp("trackers.Load")
	}
	cols := ResolveHeaders(headerRows[0])
	if _, ok := cols[FieldJobID]; !ok {
		return nil, stats, apperr.Config("tracker " + layout.Name + " header resolves no job column").WithOp("trackers.Load")
	}

	dataRange := sheets.RangeFor(layout.Sheet, layout.StartColumn, layout.DataStartRow, layout.StartColumn+maxTrackerColumns-1, 0)
	rows, err := store.Read(ctx, spreadsheetID, dataRange)
	if err != nil {
		return nil, stats, apperr.Wrap(apperr.KindUnavailable, "read tracker rows", err).WithOp("trackers.Load")
	}

	var result []leads.Lead
	for _, row := range rows {
		stats.Rows++

		lead, reason := admitRow(row, cols, layout, allowed)
		switch reason {
		case admitOK:
			stats.Admitted++
			result = append(result, lead)
		case rejectNoPhone:
			stats.NoPhone++
		case rejectNoJobID:
			stats.NoJobID++
		case rejectExcluded:
			stats.Excluded++
		case rejectRep:
			stats.RepRejected++
		}
	}
	return result, stats, nil
}

type admitReason int

const (
	admitOK admitReason = iota
	rejectRep
	rejectNoPhone
	rejectNoJobID
	rejectExcluded
)

func admitRow(row []string, cols map[Field]int, layout Layout, allowed map[string]bool) (leads.Lead, admitReason) {
	get := func(field Field) string {
		idx, ok := cols[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	rep := NormalizeUsername(get(FieldRep))
	if layout.RequireRoster {
		if !allowed[rep] {
			return leads.Lead{}, rejectRep
		}
	} else if rep == "" {
		return leads.Lead{}, rejectRep
	}

	phones := phone.NormalizeAll(get(FieldPhonePrimary), get(FieldPhoneSecondary))
	if len(phones) == 0 {
		return leads.Lead{}, rejectNoPhone
	}

	jobID := get(FieldJobID)
	if jobID == "" {
		return leads.Lead{}, rejectNoJobID
	}

	if isTruthy(get(FieldExcluded)) {
		return leads.Lead{}, rejectExcluded
	}

	return leads.Lead{
		JobID:     jobID,
		Rep:       rep,
		Phones:    phones,
		Priority:  parsePriority(get(FieldPriority), layout.DefaultPriority),
		MoveDate:  parseDate(get(FieldMoveDate)),
		Estimate:  parseMoney(get(FieldEstimate)),
		Source:    get(FieldSource),
		Address:   get(FieldAddress),
		City:      get(FieldCity),
		CreatedAt: parseDate(get(FieldCreated)),
		Tracker:   layout.Name,
	}, admitOK
}

// NormalizeUsername lowercases and trims a rep username for matching
// against the roster allow-list.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func parsePriority(value string, fallback int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func parseMoney(value string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(value)
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

var dateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "y", "x", "1":
		return true
	default:
		return false
	}
}

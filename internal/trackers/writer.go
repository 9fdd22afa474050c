package trackers

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"outreach_backend/internal/leads"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/phone"
	"outreach_backend/platform/sheets"
)

// defaultHeaders is written to a destination sheet whose header row is
// entirely blank.
var defaultHeaders = []string{
	"JOB #", "REP", "PHONE", "PHONE 2", "PRIORITY", "MOVE DATE",
	"ESTIMATE", "SOURCE", "CITY", "CALLS", "SMS", "WORK STATUS", "LAST ACTIVITY",
}

// WriteSummary reports what one tracker write did.
type WriteSummary struct {
	RowsWritten   int
	Priorities    []int
	RequiredCount int
}

// Params are the two parameter cells read from the destination sheet.
type Params struct {
	Priorities    []int
	RequiredCount int
}

// ReadParams reads the tracker's parameter cells. The priority cell
// holds one or more comma/whitespace-separated integers; the required
// count holds a single integer (blank reads as 0).
func ReadParams(ctx context.Context, store sheets.ValueStore, spreadsheetID string, layout Layout) (Params, error) {
	priorityRaw, err := readCell(ctx, store, spreadsheetID, layout.Sheet, layout.PriorityCell)
	if err != nil {
		return Params{}, err
	}
	priorities := parsePriorityList(priorityRaw)
	if len(priorities) == 0 {
		return Params{}, apperr.Config("tracker " + layout.Name + " priority cell is empty").WithOp("trackers.ReadParams")
	}

	countRaw, err := readCell(ctx, store, spreadsheetID, layout.Sheet, layout.RequiredCountCell)
	if err != nil {
		return Params{}, err
	}
	required := 0
	if trimmed := strings.TrimSpace(countRaw); trimmed != "" {
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return Params{}, apperr.Config("tracker " + layout.Name + " required-count cell is not a number").WithOp("trackers.ReadParams")
		}
		required = n
	}

	return Params{Priorities: priorities, RequiredCount: required}, nil
}

// Threshold converts the required-count parameter into the exclusive
// upper bound on the lead's current-medium count. A required count of 0
// selects leads with zero outreach; any positive N selects leads with
// fewer than N+1. Preserved exactly as the operation has always run it.
func (p Params) Threshold() int {
	if p.RequiredCount <= 0 {
		return 1
	}
	return p.RequiredCount + 1
}

// Selects reports whether an enriched lead passes the tracker filter.
func (p Params) Selects(lead leads.EnrichedLead, layout Layout) bool {
	matched := false
	for _, priority := range p.Priorities {
		if lead.Priority == priority {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	return mediumCount(lead, layout) < p.Threshold()
}

// mediumCount is the lead's outreach count for the tracker's medium,
// counted for the current day.
func mediumCount(lead leads.EnrichedLead, layout Layout) int {
	if layout.Medium == "sms" {
		return lead.RC.SMSToday
	}
	return lead.RC.CallsToday
}

// Write filters the enriched set by the destination's parameter cells
// and overwrites its data region. Parameter and header rows are never
// touched; only the region below them is cleared.
func Write(ctx context.Context, store sheets.ValueStore, spreadsheetID string, layout Layout, enriched []leads.EnrichedLead) (WriteSummary, error) {
	params, err := ReadParams(ctx, store, spreadsheetID, layout)
	if err != nil {
		return WriteSummary{}, err
	}

	var selected []leads.EnrichedLead
	for _, lead := range enriched {
		if params.Selects(lead, layout) {
			selected = append(selected, lead)
		}
	}

	// Loader order is preserved except for rep reports, which sort by
	// priority then by how little the lead has been worked.
	if layout.RepReportSort {
		sort.SliceStable(selected, func(i, j int) bool {
			if selected[i].Priority != selected[j].Priority {
				return selected[i].Priority < selected[j].Priority
			}
			return selected[i].RC.WorkStatus.Rank() < selected[j].RC.WorkStatus.Rank()
		})
	}

	headers, err := ensureHeaders(ctx, store, spreadsheetID, layout)
	if err != nil {
		return WriteSummary{}, err
	}

	clearRange := sheets.RangeFor(layout.Sheet, layout.StartColumn, layout.DataStartRow, layout.StartColumn+len(headers)-1, 0)
	if err := store.Clear(ctx, spreadsheetID, clearRange); err != nil {
		return WriteSummary{}, apperr.Wrap(apperr.KindUnavailable, "clear tracker data region", err).WithOp("trackers.Write")
	}

	if len(selected) > 0 {
		rows := make([][]string, 0, len(selected))
		for _, lead := range selected {
			rows = append(rows, renderRow(lead, headers))
		}
		writeRange := sheets.RangeFor(layout.Sheet, layout.StartColumn, layout.DataStartRow, layout.StartColumn+len(headers)-1, layout.DataStartRow+len(rows)-1)
		if err := store.Write(ctx, spreadsheetID, writeRange, rows); err != nil {
			return WriteSummary{}, apperr.Wrap(apperr.KindUnavailable, "write tracker rows", err).WithOp("trackers.Write")
		}
	}

	return WriteSummary{
		RowsWritten:   len(selected),
		Priorities:    params.Priorities,
		RequiredCount: params.RequiredCount,
	}, nil
}

// ensureHeaders returns the destination's header row, writing the
// default set first when the row is entirely blank.
func ensureHeaders(ctx context.Context, store sheets.ValueStore, spreadsheetID string, layout Layout) ([]string, error) {
	headerRange := sheets.RangeFor(layout.Sheet, layout.StartColumn, layout.HeaderRow, layout.StartColumn+maxTrackerColumns-1, layout.HeaderRow)
	rows, err := store.Read(ctx, spreadsheetID, headerRange)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "read tracker header", err).WithOp("trackers.Write")
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		return rows[0], nil
	}

	writeRange := sheets.RangeFor(layout.Sheet, layout.StartColumn, layout.HeaderRow, layout.StartColumn+len(defaultHeaders)-1, layout.HeaderRow)
	if err := store.Write(ctx, spreadsheetID, writeRange, [][]string{defaultHeaders}); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "write default headers", err).WithOp("trackers.Write")
	}
	return append([]string(nil), defaultHeaders...), nil
}

func renderRow(lead leads.EnrichedLead, headers []string) []string {
	row := make([]string, len(headers))
	for i, header := range headers {
		row[i] = fieldValue(lead, FieldFor(header))
	}
	return row
}

func fieldValue(lead leads.EnrichedLead, field Field) string {
	switch field {
	case FieldJobID:
		return lead.JobID
	case FieldRep:
		return lead.Rep
	case FieldPhonePrimary:
		if len(lead.Phones) > 0 {
			return phone.Display(lead.Phones[0])
		}
		return ""
	case FieldPhoneSecondary:
		if len(lead.Phones) > 1 {
			return phone.Display(lead.Phones[1])
		}
		return ""
	case FieldPriority:
		return strconv.Itoa(lead.Priority)
	case FieldMoveDate:
		if lead.MoveDate.IsZero() {
			return ""
		}
		return lead.MoveDate.Format("1/2/2006")
	case FieldEstimate:
		if lead.Estimate == 0 {
			return ""
		}
		return strconv.FormatFloat(lead.Estimate, 'f', 2, 64)
	case FieldSource:
		return lead.Source
	case FieldAddress:
		return lead.Address
	case FieldCity:
		return lead.City
	case FieldCreated:
		if lead.CreatedAt.IsZero() {
			return ""
		}
		return lead.CreatedAt.Format("1/2/2006")
	case FieldCallCount:
		return strconv.Itoa(lead.RC.CallsTotal())
	case FieldSMSCount:
		return strconv.Itoa(lead.RC.SMSTotal())
	case FieldWorkStatus:
		return string(lead.RC.WorkStatus)
	case FieldLastActivity:
		if lead.RC.LastActivity.IsZero() {
			return ""
		}
		return lead.RC.LastActivity.Format("1/2/2006 15:04:05")
	default:
		return ""
	}
}

func readCell(ctx context.Context, store sheets.ValueStore, spreadsheetID, sheet, cell string) (string, error) {
	rows, err := store.Read(ctx, spreadsheetID, sheet+"!"+cell)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "read parameter cell "+cell, err).WithOp("trackers.readCell")
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return "", nil
	}
	return rows[0][0], nil
}

func parsePriorityList(raw string) []int {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	var priorities []int
	for _, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		priorities = append(priorities, n)
	}
	return priorities
}

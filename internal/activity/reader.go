// Package activity reads raw call and SMS events out of the log sheets
// that the sync engine maintains, classifying direction and extracting
// duration, status, and timestamps.
package activity

import (
	"strconv"
	"strings"
	"time"

	"outreach_backend/platform/apperr"
	"outreach_backend/platform/phone"
)

// Medium is the communication channel of a log record.
type Medium string

const (
	MediumCall Medium = "call"
	MediumSMS  Medium = "sms"
)

// Direction of a record. Anything that is not outbound counts as inbound
// for reachability purposes; the engine only counts outbound events for
// compliance.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// Record is one immutable call or SMS event read from a log sheet.
// Records without a resolvable phone key keep HasPhone=false so the
// index builder can still count them toward raw-row diagnostics.
type Record struct {
	Medium          Medium
	Direction       Direction
	Phone           phone.Key
	HasPhone        bool
	Timestamp       time.Time
	DurationSeconds int
	Voicemail       bool
	Failed          bool
	Status          string
}

// Reader iterates the rows of one log sheet in a single pass. It is
// finite and not restartable.
type Reader struct {
	medium Medium
	cols   columns
	rows   [][]string
	pos    int
}

// NewReader resolves the sheet's columns from its header row. A sheet
// whose headers resolve neither a direction nor a counterpart column is
// a configuration problem, not a data-quality one.
func NewReader(medium Medium, headers []string, rows [][]string) (*Reader, error) {
	cols := resolveColumns(medium, headers)
	if cols.direction < 0 {
		return nil, apperr.Config("log sheet has no direction column").WithOp("activity.NewReader")
	}
	if cols.from < 0 && cols.to < 0 {
		return nil, apperr.Config("log sheet has no phone columns").WithOp("activity.NewReader")
	}

	return &Reader{medium: medium, cols: cols, rows: rows}, nil
}

// Next returns the next record. The second result is false once the
// rows are exhausted.
func (r *Reader) Next() (Record, bool) {
	if r.pos >= len(r.rows) {
		return Record{}, false
	}
	row := r.rows[r.pos]
	r.pos++

	rec := Record{Medium: r.medium}

	rec.Direction = ClassifyDirection(cell(row, r.cols.direction))

	// The counterpart is the remote party: the dialed number on outbound
	// events, the caller on inbound ones.
	counterpart := cell(row, r.cols.to)
	if rec.Direction == DirectionInbound {
		counterpart = cell(row, r.cols.from)
	}
	rec.Phone, rec.HasPhone = phone.Normalize(counterpart)

	rec.Timestamp = parseTimestamp(cell(row, r.cols.timestamp))
	rec.DurationSeconds = ParseDurationSeconds(cell(row, r.cols.duration))

	result := cell(row, r.cols.result)
	reason := cell(row, r.cols.reason)
	rec.Status = strings.TrimSpace(result)

	if r.medium == MediumCall {
		action := cell(row, r.cols.action)
		rec.Voicemail = containsFold(result, "voicemail") || containsFold(action, "voicemail")
	} else {
		rec.Failed = isFailedStatus(result) || isFailedStatus(reason)
	}

	return rec, true
}

// ClassifyDirection treats a value as outbound iff it case-insensitively
// starts with "OUT"; everything else is not-outbound.
func ClassifyDirection(value string) Direction {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(value)), "OUT") {
		return DirectionOutbound
	}
	return DirectionInbound
}

// ParseDurationSeconds parses a duration cell. Plain integers are taken
// as seconds. Clock-style H:MM:SS values convert via hours and minutes
// only; the seconds field of a clock-style value is ignored, matching
// the log sheets' historical behavior. Unparseable values yield 0.
func ParseDurationSeconds(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}

	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	hours, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hours < 0 {
		return 0
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || minutes < 0 {
		return 0
	}
	return (hours*60 + minutes) * 60
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006",
	"2006-01-02",
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func isFailedStatus(value string) bool {
	return containsFold(value, "fail") ||
		containsFold(value, "error") ||
		containsFold(value, "undeliv")
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

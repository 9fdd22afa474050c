// Package telephony is the REST client for the call/SMS provider. It
// covers the two sync endpoints per medium (date-range-bounded full
// sync and token-bounded incremental sync) and the asynchronous bulk
// export flow, with every outbound call going through a bounded retry
// wrapper.
package telephony

import (
	"errors"
	"strings"
	"time"
)

// Medium selects the provider endpoint family.
type Medium string

const (
	MediumCall Medium = "calls"
	MediumSMS  Medium = "messages"
)

// Record is one provider event, normalized from the API payload. The
// log writer renders it to a sheet row; the engine never interprets it
// beyond that.
type Record struct {
	Timestamp       time.Time
	Direction       string
	From            string
	To              string
	DurationSeconds int
	Status          string
}

// SyncResult is one sync response: the fetched records plus the
// continuation token to persist for the next incremental run.
type SyncResult struct {
	Records []Record
	Token   string
}

// ExportStatus values reported by the provider's export-task API.
type ExportStatus string

const (
	ExportPending  ExportStatus = "PENDING"
	ExportRunning  ExportStatus = "RUNNING"
	ExportComplete ExportStatus = "COMPLETE"
	ExportFailed   ExportStatus = "FAILED"
)

// ExportTask is the state of one asynchronous bulk export.
type ExportTask struct {
	ID          string
	Status      ExportStatus
	DownloadURL string
	Message     string
}

// ErrTokenRejected signals that the provider refused a continuation
// token. The sync engine reacts by deleting the stored token and
// re-running as a full sync; it is a state transition, not a failure.
var ErrTokenRejected = errors.New("telephony: sync token rejected")

// tokenRejected matches the provider's error body. The provider does
// not use a dedicated status code for stale tokens, only these
// substrings.
func tokenRejected(body string) bool {
	return strings.Contains(body, "syncToken") || strings.Contains(body, "InvalidParameter")
}

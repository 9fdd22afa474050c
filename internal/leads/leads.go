// Package leads holds the domain types shared by the tracker loader, the
// enrichment step, the compliance aggregator, and the tracker writer.
package leads

import (
	"time"

	"outreach_backend/platform/phone"
)

// WorkStatus classifies how thoroughly a lead has been contacted.
type WorkStatus string

const (
	NotWorked WorkStatus = "NOT_WORKED"
	Partial   WorkStatus = "PARTIAL"
	Worked    WorkStatus = "WORKED"
	Engaged   WorkStatus = "ENGAGED"
)

// Rank orders statuses from least to most contacted, for report sorting.
func (s WorkStatus) Rank() int {
	switch s {
	case NotWorked:
		return 0
	case Partial:
		return 1
	case Worked:
		return 2
	case Engaged:
		return 3
	default:
		return 0
	}
}

// Lead is one admitted row from a tracker sheet. Identity is
// (JobID, Tracker); the same customer may appear in several trackers as
// distinct Lead values. Leads live for the duration of one pipeline run.
type Lead struct {
	JobID     string
	Rep       string // normalized username
	Phones    []phone.Key
	Priority  int
	MoveDate  time.Time // zero when the tracker has no usable date
	Estimate  float64
	Source    string
	Address   string
	City      string
	CreatedAt time.Time
	Excluded  bool
	Tracker   string
}

// Reachability is the derived contact record attached to a lead by the
// enrichment step. WorkStatus is a pure function of the totals and flags
// and is only ever set through Derive.
type Reachability struct {
	CallsYesterday int
	CallsToday     int
	SMSYesterday   int
	SMSToday       int
	VMYesterday    int
	VMToday        int

	RepliesTotal int // inbound SMS
	InboundTotal int // inbound calls

	LongestCallSeconds   int
	TotalDurationSeconds int
	LastActivity         time.Time

	MeetsStandard bool
	HasLongCall   bool
	HasReplied    bool
	HasInbound    bool
	IsHot         bool
	IsHighValue   bool
	IsStale       bool
	AllSMSFailed  bool

	WorkStatus WorkStatus
}

// CallsTotal is calls yesterday plus calls today.
func (r Reachability) CallsTotal() int { return r.CallsYesterday + r.CallsToday }

// SMSTotal is SMS yesterday plus SMS today.
func (r Reachability) SMSTotal() int { return r.SMSYesterday + r.SMSToday }

// VMTotal is voicemails yesterday plus voicemails today.
func (r Reachability) VMTotal() int { return r.VMYesterday + r.VMToday }

// TotalAttempts counts every outbound touch (calls plus SMS).
func (r Reachability) TotalAttempts() int { return r.CallsTotal() + r.SMSTotal() }

// Derive computes WorkStatus from the record's totals and flags. The
// rules evaluate top-down; the first match wins.
func (r Reachability) Derive() WorkStatus {
	switch {
	case r.HasLongCall || r.HasReplied || r.HasInbound:
		return Engaged
	case r.MeetsStandard:
		return Worked
	case r.TotalAttempts() > 0:
		return Partial
	default:
		return NotWorked
	}
}

// EnrichedLead is a lead with its reachability record attached.
type EnrichedLead struct {
	Lead
	RC Reachability
}

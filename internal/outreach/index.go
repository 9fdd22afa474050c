// Package outreach folds activity records into a per-phone aggregate
// index, the join target for lead enrichment. The index is rebuilt on
// every pipeline run and never persisted.
package outreach

import (
	"time"

	"outreach_backend/internal/activity"
	"outreach_backend/platform/phone"
)

// DayBucket tags which log snapshot a record came from.
type DayBucket string

const (
	BucketYesterday DayBucket = "yesterday"
	BucketToday     DayBucket = "today"
)

// Entry aggregates all activity observed for one phone key. Counting and
// max/sum are commutative, so fold order never affects the result;
// LastActivity is a max-comparison for the same reason.
type Entry struct {
	Phone phone.Key

	CallsOutYesterday int
	CallsOutToday     int
	CallsInYesterday  int
	CallsInToday      int

	SMSOutYesterday int
	SMSOutToday     int
	SMSInYesterday  int
	SMSInToday      int

	VMYesterday int
	VMToday     int

	LongestCallYesterday int
	LongestCallToday     int
	TotalDurationSeconds int

	SMSOutFailed int

	LastActivity time.Time
}

// SMSOutTotal is all outbound SMS across both buckets.
func (e Entry) SMSOutTotal() int { return e.SMSOutYesterday + e.SMSOutToday }

// AllSMSFailed reports whether the phone received outbound SMS and every
// one of them carried a failure status.
func (e Entry) AllSMSFailed() bool {
	return e.SMSOutTotal() > 0 && e.SMSOutFailed == e.SMSOutTotal()
}

// LongestCall is the longest call across both buckets.
func (e Entry) LongestCall() int {
	if e.LongestCallYesterday > e.LongestCallToday {
		return e.LongestCallYesterday
	}
	return e.LongestCallToday
}

// Diagnostics counts raw rows per medium, including rows whose phone
// never resolved and therefore never reached the index.
type Diagnostics struct {
	CallRows         int
	CallOutbound     int
	CallMissingPhone int
	SMSRows          int
	SMSOutbound      int
	SMSMissingPhone  int
}

// Index maps phone keys to their aggregate entries.
type Index struct {
	entries map[phone.Key]*Entry
	Diag    Diagnostics
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[phone.Key]*Entry)}
}

// FoldReader drains a reader into the index, tagging every record with
// the given day bucket.
func (ix *Index) FoldReader(bucket DayBucket, reader *activity.Reader) {
	for {
		rec, ok := reader.Next()
		if !ok {
			return
		}
		ix.Fold(bucket, rec)
	}
}

// Fold adds one record to the index. Records without a resolvable phone
// key only contribute to diagnostics.
func (ix *Index) Fold(bucket DayBucket, rec activity.Record) {
	outbound := rec.Direction == activity.DirectionOutbound

	switch rec.Medium {
	case activity.MediumCall:
		ix.Diag.CallRows++
		if outbound {
			ix.Diag.CallOutbound++
		}
		if !rec.HasPhone {
			ix.Diag.CallMissingPhone++
			return
		}
	case activity.MediumSMS:
		ix.Diag.SMSRows++
		if outbound {
			ix.Diag.SMSOutbound++
		}
		if !rec.HasPhone {
			ix.Diag.SMSMissingPhone++
			return
		}
	}

	entry := ix.entries[rec.Phone]
	if entry == nil {
		entry = &Entry{Phone: rec.Phone}
		ix.entries[rec.Phone] = entry
	}

	today := bucket == BucketToday
	switch rec.Medium {
	case activity.MediumCall:
		if outbound {
			if today {
				entry.CallsOutToday++
			} else {
				entry.CallsOutYesterday++
			}
		} else {
			if today {
				entry.CallsInToday++
			} else {
				entry.CallsInYesterday++
			}
		}
		if rec.Voicemail {
			if today {
				entry.VMToday++
			} else {
				entry.VMYesterday++
			}
		}
		entry.TotalDurationSeconds += rec.DurationSeconds
		if today {
			if rec.DurationSeconds > entry.LongestCallToday {
				entry.LongestCallToday = rec.DurationSeconds
			}
		} else {
			if rec.DurationSeconds > entry.LongestCallYesterday {
				entry.LongestCallYesterday = rec.DurationSeconds
			}
		}
	case activity.MediumSMS:
		if outbound {
			if today {
				entry.SMSOutToday++
			} else {
				entry.SMSOutYesterday++
			}
			if rec.Failed {
				entry.SMSOutFailed++
			}
		} else {
			if today {
				entry.SMSInToday++
			} else {
				entry.SMSInYesterday++
			}
		}
	}

	if rec.Timestamp.After(entry.LastActivity) {
		entry.LastActivity = rec.Timestamp
	}
}

// Entry returns a copy of the aggregate for one phone key.
func (ix *Index) Entry(key phone.Key) (Entry, bool) {
	entry, ok := ix.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Size is the count of distinct phones observed.
func (ix *Index) Size() int {
	return len(ix.entries)
}

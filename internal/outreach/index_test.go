package outreach

import (
	"math/rand"
	"testing"
	"time"

	"outreach_backend/internal/activity"
	"outreach_backend/platform/phone"
)

func outboundCall(key phone.Key, seconds int, ts time.Time) activity.Record {
	return activity.Record{
		Medium:          activity.MediumCall,
		Direction:       activity.DirectionOutbound,
		Phone:           key,
		HasPhone:        true,
		Timestamp:       ts,
		DurationSeconds: seconds,
	}
}

func outboundSMS(key phone.Key, failed bool, ts time.Time) activity.Record {
	return activity.Record{
		Medium:    activity.MediumSMS,
		Direction: activity.DirectionOutbound,
		Phone:     key,
		HasPhone:  true,
		Failed:    failed,
		Timestamp: ts,
	}
}

func TestIndex_FoldAggregatesPerPhone(t *testing.T) {
	base := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	ix := NewIndex()

	ix.Fold(BucketYesterday, outboundCall("5551234567", 185, base))
	ix.Fold(BucketToday, outboundCall("5551234567", 60, base.Add(24*time.Hour)))
	ix.Fold(BucketToday, outboundSMS("5551234567", true, base.Add(25*time.Hour)))
	ix.Fold(BucketToday, activity.Record{
		Medium:    activity.MediumSMS,
		Direction: activity.DirectionInbound,
		Phone:     "5551234567",
		HasPhone:  true,
		Timestamp: base.Add(26 * time.Hour),
	})

	entry, ok := ix.Entry("5551234567")
	if !ok {
		t.Fatal("expected entry for folded phone")
	}
	if entry.CallsOutYesterday != 1 || entry.CallsOutToday != 1 {
		t.Fatalf("unexpected call counts: %+v", entry)
	}
	if entry.SMSOutToday != 1 || entry.SMSInToday != 1 {
		t.Fatalf("unexpected sms counts: %+v", entry)
	}
	if entry.LongestCall() != 185 {
		t.Fatalf("expected longest call 185, got %d", entry.LongestCall())
	}
	if entry.TotalDurationSeconds != 245 {
		t.Fatalf("expected total duration 245, got %d", entry.TotalDurationSeconds)
	}
	if !entry.AllSMSFailed() {
		t.Fatal("single failed outbound SMS should report AllSMSFailed")
	}
	if !entry.LastActivity.Equal(base.Add(26 * time.Hour)) {
		t.Fatalf("expected last activity from newest record, got %v", entry.LastActivity)
	}
	if ix.Size() != 1 {
		t.Fatalf("expected one distinct phone, got %d", ix.Size())
	}
}

func TestIndex_MissingPhoneCountsDiagnosticsOnly(t *testing.T) {
	ix := NewIndex()
	ix.Fold(BucketToday, activity.Record{
		Medium:    activity.MediumCall,
		Direction: activity.DirectionOutbound,
		HasPhone:  false,
	})

	if ix.Size() != 0 {
		t.Fatalf("expected empty index, got %d entries", ix.Size())
	}
	if ix.Diag.CallRows != 1 || ix.Diag.CallOutbound != 1 || ix.Diag.CallMissingPhone != 1 {
		t.Fatalf("unexpected diagnostics: %+v", ix.Diag)
	}
}

func TestIndex_OrderIndependentAggregation(t *testing.T) {
	base := time.Date(2026, 8, 27, 8, 0, 0, 0, time.UTC)

	type tagged struct {
		bucket DayBucket
		rec    activity.Record
	}
	var records []tagged
	phones := []phone.Key{"5551234567", "5559990000", "5552223333"}
	for i := 0; i < 60; i++ {
		key := phones[i%len(phones)]
		bucket := BucketToday
		if i%2 == 0 {
			bucket = BucketYesterday
		}
		if i%3 == 0 {
			records = append(records, tagged{bucket, outboundSMS(key, i%5 == 0, base.Add(time.Duration(i)*time.Minute))})
		} else {
			records = append(records, tagged{bucket, outboundCall(key, i*7%300, base.Add(time.Duration(i)*time.Minute))})
		}
	}

	fold := func(order []tagged) *Index {
		ix := NewIndex()
		for _, item := range order {
			ix.Fold(item.bucket, item.rec)
		}
		return ix
	}

	sequential := fold(records)

	shuffled := append([]tagged(nil), records...)
	rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	reordered := fold(shuffled)

	if sequential.Size() != reordered.Size() {
		t.Fatalf("size differs: %d vs %d", sequential.Size(), reordered.Size())
	}
	for _, key := range phones {
		a, _ := sequential.Entry(key)
		b, _ := reordered.Entry(key)
		if a != b {
			t.Fatalf("entry for %s differs across fold orders:\n%+v\n%+v", key, a, b)
		}
	}
	if sequential.Diag != reordered.Diag {
		t.Fatalf("diagnostics differ: %+v vs %+v", sequential.Diag, reordered.Diag)
	}
}

package activity

import (
	"testing"

	"outreach_backend/platform/apperr"
)

func TestResolveColumn_ExactBeatsSubstring(t *testing.T) {
	headers := []string{"Call Direction Notes", "Direction", "To"}
	if idx := resolveColumn(headers, directionCandidates); idx != 1 {
		t.Fatalf("expected exact match at 1, got %d", idx)
	}
}

func TestResolveColumn_SubstringFallback(t *testing.T) {
	headers := []string{"Event Start Time (MT)", "Dir", "Number"}
	if idx := resolveColumn(headers, timestampCandidates); idx != 0 {
		t.Fatalf("expected substring match at 0, got %d", idx)
	}
}

func TestClassifyDirection(t *testing.T) {
	cases := map[string]Direction{
		"Outbound": DirectionOutbound,
		"OUT":      DirectionOutbound,
		"outgoing": DirectionOutbound,
		"Inbound":  DirectionInbound,
		"Missed":   DirectionInbound,
		"":         DirectionInbound,
	}
	for value, want := range cases {
		if got := ClassifyDirection(value); got != want {
			t.Fatalf("ClassifyDirection(%q) = %s, want %s", value, got, want)
		}
	}
}

func TestParseDurationSeconds(t *testing.T) {
	cases := map[string]int{
		"185":     185,
		"0":       0,
		"":        0,
		"abc":     0,
		"-5":      0,
		"0:03:05": 180, // seconds field of clock-style values is ignored
		"1:02:30": 3720,
		"0:04":    240,
	}
	for value, want := range cases {
		if got := ParseDurationSeconds(value); got != want {
			t.Fatalf("ParseDurationSeconds(%q) = %d, want %d", value, got, want)
		}
	}
}

func TestReader_SinglePassOverRows(t *testing.T) {
	headers := []string{"Start Time", "Direction", "From", "To", "Duration", "Action", "Result"}
	rows := [][]string{
		{"2026-08-27 09:15:00", "Outbound", "3035550100", "555-123-4567", "185", "Phone Call", "Call connected"},
		{"2026-08-27 09:20:00", "Inbound", "(555) 123-4567", "3035550100", "42", "Phone Call", "Accepted"},
		{"2026-08-27 09:25:00", "Outbound", "3035550100", "n/a", "0", "Phone Call", "Voicemail"},
	}

	reader, err := NewReader(MediumCall, headers, rows)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	first, ok := reader.Next()
	if !ok {
		t.Fatal("expected first record")
	}
	if first.Direction != DirectionOutbound || !first.HasPhone || first.Phone != "5551234567" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.DurationSeconds != 185 {
		t.Fatalf("expected 185s duration, got %d", first.DurationSeconds)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("expected parsed timestamp")
	}

	second, _ := reader.Next()
	if second.Direction != DirectionInbound || second.Phone != "5551234567" {
		t.Fatalf("inbound record should use the From column: %+v", second)
	}

	third, _ := reader.Next()
	if third.HasPhone {
		t.Fatal("unresolvable phone must be reported, not fabricated")
	}
	if !third.Voicemail {
		t.Fatal("expected voicemail flag from result column")
	}

	if _, ok := reader.Next(); ok {
		t.Fatal("reader must be exhausted after all rows")
	}
}

func TestReader_SMSFailureClassification(t *testing.T) {
	headers := []string{"Time", "Direction", "From", "To", "Message Status"}
	rows := [][]string{
		{"2026-08-28 08:00:00", "Outbound", "3035550100", "5551234567", "SendingFailed"},
		{"2026-08-28 08:01:00", "Outbound", "3035550100", "5551234567", "Delivered"},
		{"2026-08-28 08:02:00", "Inbound", "5551234567", "3035550100", "Received"},
	}

	reader, err := NewReader(MediumSMS, headers, rows)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	failed, _ := reader.Next()
	if !failed.Failed {
		t.Fatal("expected SendingFailed to classify as failed")
	}
	delivered, _ := reader.Next()
	if delivered.Failed {
		t.Fatal("Delivered must not classify as failed")
	}
	reply, _ := reader.Next()
	if reply.Direction != DirectionInbound {
		t.Fatal("expected inbound reply")
	}
}

func TestNewReader_MissingColumnsIsConfigError(t *testing.T) {
	_, err := NewReader(MediumCall, []string{"Notes", "Comments"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperr.Is(err, apperr.KindConfig) {
		t.Fatalf("expected config error kind, got %v", err)
	}
}

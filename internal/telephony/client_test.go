package telephony

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

type testProviderConfig struct {
	baseURL string
	retries int
}

func (c testProviderConfig) GetProviderBaseURL() string             { return c.baseURL }
func (c testProviderConfig) GetProviderClientID() string            { return "" }
func (c testProviderConfig) GetProviderClientSecret() string        { return "" }
func (c testProviderConfig) GetProviderTokenURL() string            { return "" }
func (c testProviderConfig) GetProviderTimezone() string            { return "UTC" }
func (c testProviderConfig) GetProviderMaxRetries() int             { return c.retries }
func (c testProviderConfig) GetProviderRetryBackoff() time.Duration { return time.Millisecond }

func newTestClient(t *testing.T, handler http.Handler, retries int) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := New(testProviderConfig{baseURL: server.URL, retries: retries}, logger.New("development"))
	return client, server
}

func TestDo_Always429FailsAfterExactlyMaxAttempts(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
	}), 5)

	_, err := client.FullSync(context.Background(), MediumCall, time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("expected failure after retries exhausted")
	}
	if !apperr.Is(err, apperr.KindRateLimited) {
		t.Fatalf("expected rate-limited kind, got %v", err)
	}
	if requests != 5 {
		t.Fatalf("expected exactly 5 attempts, got %d", requests)
	}
}

func TestDo_Persistent401IsAlsoBounded(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}), 3)

	_, err := client.IncrementalSync(context.Background(), MediumSMS, "tok")
	if err == nil {
		t.Fatal("expected failure after retries exhausted")
	}
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("persistent 401 must surface as unauthorized, got %v", err)
	}
	if requests != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", requests)
	}
}

func TestFullSync_PagesUntilTokenReturned(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/calls/fsync" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{"records":[{"timestamp":"2026-08-28T09:00:00Z","direction":"Outgoing","from":"+15550001111","to":"+15558675309","durationSeconds":185,"status":"completed"}],"nextPageToken":"p2"}`)
			return
		}
		fmt.Fprint(w, `{"records":[{"timestamp":"2026-08-28T09:05:00Z","direction":"Incoming","from":"+15558675309","to":"+15550001111","durationSeconds":42,"status":"completed"}],"syncToken":"tok-1"}`)
	}), 5)

	result, err := client.FullSync(context.Background(), MediumCall, time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("full sync: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected both pages collected, got %d records", len(result.Records))
	}
	if result.Token != "tok-1" {
		t.Fatalf("expected continuation token from last page, got %q", result.Token)
	}
	if result.Records[0].DurationSeconds != 185 || result.Records[0].Direction != "Outgoing" {
		t.Fatalf("unexpected first record: %+v", result.Records[0])
	}
}

func TestIncrementalSync_RejectedTokenIsTyped(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"InvalidParameter: syncToken is expired"}`)
	}), 5)

	_, err := client.IncrementalSync(context.Background(), MediumCall, "stale")
	if !errors.Is(err, ErrTokenRejected) {
		t.Fatalf("expected ErrTokenRejected, got %v", err)
	}
}

func TestIncrementalSync_OtherClientErrorsAreHard(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"MalformedRequest"}`)
	}), 5)

	_, err := client.IncrementalSync(context.Background(), MediumCall, "tok")
	if err == nil || errors.Is(err, ErrTokenRejected) {
		t.Fatalf("expected a hard error distinct from token rejection, got %v", err)
	}
}

func TestExportFlow(t *testing.T) {
	var serverURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/calls/exports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		fmt.Fprint(w, `{"id":"task-7","status":"PENDING"}`)
	})
	mux.HandleFunc("/v1/exports/task-7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":"task-7","status":"COMPLETE","downloadUrl":"%s/archive/task-7"}`, serverURL)
	})
	mux.HandleFunc("/archive/task-7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "archive-bytes")
	})

	client, server := newTestClient(t, mux, 5)
	serverURL = server.URL

	ctx := context.Background()
	taskID, err := client.CreateExport(ctx, MediumCall, time.Now().Add(-24*time.Hour), time.Now())
	if err != nil {
		t.Fatalf("create export: %v", err)
	}
	if taskID != "task-7" {
		t.Fatalf("unexpected task id %q", taskID)
	}

	task, err := client.ExportTask(ctx, taskID)
	if err != nil {
		t.Fatalf("poll export: %v", err)
	}
	if task.Status != ExportComplete || task.DownloadURL == "" {
		t.Fatalf("unexpected task state: %+v", task)
	}

	body, _, err := client.DownloadExport(ctx, task.DownloadURL)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "archive-bytes" {
		t.Fatalf("unexpected archive contents %q", data)
	}
}

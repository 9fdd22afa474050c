package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"outreach_backend/platform/apperr"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

const defaultHTTPTimeout = 30 * time.Second

// Page fetches are paced client-side so a large full sync does not
// trip the provider's quota in the first place.
const pageFetchRate = rate.Limit(10)

// Client talks to the provider REST API. All requests run through do,
// which enforces the bounded retry contract: 429 sleeps and retries,
// 401 refreshes the credential once per burst, anything else fails
// immediately, and the loop never exceeds maxRetries attempts.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger

	maxRetries int
	backoff    time.Duration
	limiter    *rate.Limiter

	oauth *clientcredentials.Config

	// refreshGroup collapses concurrent 401 refreshes into one token
	// fetch; mu guards the source swap.
	refreshGroup singleflight.Group
	mu           sync.RWMutex
	tokenSource  oauth2.TokenSource
}

// New builds a provider client from configuration. An empty client ID
// disables bearer auth, which the tests use against local mocks.
func New(cfg config.ProviderConfig, log *logger.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		baseURL:    cfg.GetProviderBaseURL(),
		log:        log,
		maxRetries: cfg.GetProviderMaxRetries(),
		backoff:    cfg.GetProviderRetryBackoff(),
		limiter:    rate.NewLimiter(pageFetchRate, 10),
	}
	if c.maxRetries < 1 {
		c.maxRetries = 1
	}
	if cfg.GetProviderClientID() != "" {
		c.oauth = &clientcredentials.Config{
			ClientID:     cfg.GetProviderClientID(),
			ClientSecret: cfg.GetProviderClientSecret(),
			TokenURL:     cfg.GetProviderTokenURL(),
		}
		c.tokenSource = c.oauth.TokenSource(context.Background())
	}
	return c
}

// FullSync fetches every record in [start, end) for one medium, paging
// until the provider reports no more, and returns the continuation
// token for subsequent incremental syncs.
func (c *Client) FullSync(ctx context.Context, medium Medium, start, end time.Time) (SyncResult, error) {
	var result SyncResult
	page := ""
	for {
		query := url.Values{}
		query.Set("startTime", start.Format(time.RFC3339))
		query.Set("endTime", end.Format(time.RFC3339))
		if page != "" {
			query.Set("pageToken", page)
		}

		var payload syncResponse
		if err := c.do(ctx, http.MethodGet, "/v1/"+string(medium)+"/fsync", query, &payload); err != nil {
			return SyncResult{}, err
		}

		result.Records = append(result.Records, payload.records()...)
		if payload.SyncToken != "" {
			result.Token = payload.SyncToken
		}
		if payload.NextPageToken == "" {
			return result, nil
		}
		page = payload.NextPageToken
	}
}

// IncrementalSync fetches records newer than the given continuation
// token. A rejected token surfaces as ErrTokenRejected so the caller
// can fall back to a full sync.
func (c *Client) IncrementalSync(ctx context.Context, medium Medium, token string) (SyncResult, error) {
	var result SyncResult
	page := token
	for {
		query := url.Values{}
		query.Set("syncToken", page)

		var payload syncResponse
		if err := c.do(ctx, http.MethodGet, "/v1/"+string(medium)+"/isync", query, &payload); err != nil {
			return SyncResult{}, err
		}

		result.Records = append(result.Records, payload.records()...)
		if payload.SyncToken != "" {
			result.Token = payload.SyncToken
		}
		if payload.NextPageToken == "" {
			return result, nil
		}
		page = payload.NextPageToken
	}
}

// CreateExport starts an asynchronous bulk export task.
func (c *Client) CreateExport(ctx context.Context, medium Medium, start, end time.Time) (string, error) {
	query := url.Values{}
	query.Set("startTime", start.Format(time.RFC3339))
	query.Set("endTime", end.Format(time.RFC3339))

	var payload exportResponse
	if err := c.do(ctx, http.MethodPost, "/v1/"+string(medium)+"/exports", query, &payload); err != nil {
		return "", err
	}
	if payload.ID == "" {
		return "", apperr.New(apperr.KindInternal, "provider returned export task without an id").WithOp("telephony.CreateExport")
	}
	return payload.ID, nil
}

// ExportTask polls one export task.
func (c *Client) ExportTask(ctx context.Context, taskID string) (ExportTask, error) {
	var payload exportResponse
	if err := c.do(ctx, http.MethodGet, "/v1/exports/"+taskID, nil, &payload); err != nil {
		return ExportTask{}, err
	}
	return ExportTask{
		ID:          payload.ID,
		Status:      ExportStatus(payload.Status),
		DownloadURL: payload.DownloadURL,
		Message:     payload.Message,
	}, nil
}

// DownloadExport streams a completed export archive. The caller owns
// the reader.
func (c *Client) DownloadExport(ctx context.Context, downloadURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "build download request", err).WithOp("telephony.DownloadExport")
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindUnavailable, "download export archive", err).WithOp("telephony.DownloadExport")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, apperr.New(apperr.KindUnavailable, fmt.Sprintf("export download status %d", resp.StatusCode)).WithOp("telephony.DownloadExport")
	}
	return resp.Body, resp.ContentLength, nil
}

// do performs one API request under the retry contract. The attempt
// counter is an explicit loop bound; nothing here recurses.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	// lastStatus records what made the final attempt retry, so
	// exhaustion reports the real cause instead of assuming 429.
	lastStatus := http.StatusTooManyRequests
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "build provider request", err).WithOp("telephony.do")
		}
		req.Header.Set("Accept", "application/json")
		if err := c.authorize(ctx, req); err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperr.Wrap(apperr.KindUnavailable, "provider request failed", err).WithOp("telephony.do")
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return apperr.Wrap(apperr.KindUnavailable, "read provider response", readErr).WithOp("telephony.do")
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return apperr.Wrap(apperr.KindInternal, "decode provider response", err).WithOp("telephony.do")
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests:
			lastStatus = resp.StatusCode
			c.log.Warn("provider rate limited", "path", path, "attempt", attempt)
			if err := sleepContext(ctx, c.backoff*time.Duration(attempt)); err != nil {
				return err
			}

		case resp.StatusCode == http.StatusUnauthorized:
			lastStatus = resp.StatusCode
			if err := c.refreshCredential(ctx); err != nil {
				return err
			}

		default:
			if tokenRejected(string(body)) {
				return ErrTokenRejected
			}
			return apperr.New(apperr.KindUnavailable,
				fmt.Sprintf("provider status %d on %s", resp.StatusCode, path)).
				WithOp("telephony.do").
				WithDetails(map[string]any{"status": strconv.Itoa(resp.StatusCode)})
		}
	}

	c.log.ProviderError(path, lastStatus, fmt.Errorf("retries exhausted"))
	if lastStatus == http.StatusUnauthorized {
		return apperr.New(apperr.KindUnauthorized,
			fmt.Sprintf("provider rejected credentials after %d attempts", c.maxRetries)).WithOp("telephony.do")
	}
	return apperr.New(apperr.KindRateLimited,
		fmt.Sprintf("provider request failed after %d attempts", c.maxRetries)).WithOp("telephony.do")
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.oauth == nil {
		return nil
	}
	c.mu.RLock()
	source := c.tokenSource
	c.mu.RUnlock()

	token, err := source.Token()
	if err != nil {
		return apperr.Wrap(apperr.KindUnauthorized, "fetch provider credential", err).WithOp("telephony.authorize")
	}
	token.SetAuthHeader(req)
	return nil
}

// refreshCredential discards the cached token source so the next
// request fetches a fresh credential. Concurrent retries share a
// single refresh.
func (c *Client) refreshCredential(ctx context.Context) error {
	if c.oauth == nil {
		return nil
	}
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		c.mu.Lock()
		c.tokenSource = c.oauth.TokenSource(context.Background())
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// syncResponse is the wire shape shared by both sync endpoints.
type syncResponse struct {
	Records []struct {
		Timestamp       string `json:"timestamp"`
		Direction       string `json:"direction"`
		From            string `json:"from"`
		To              string `json:"to"`
		DurationSeconds int    `json:"durationSeconds"`
		Status          string `json:"status"`
	} `json:"records"`
	SyncToken     string `json:"syncToken"`
	NextPageToken string `json:"nextPageToken"`
}

func (r syncResponse) records() []Record {
	out := make([]Record, 0, len(r.Records))
	for _, raw := range r.Records {
		ts, err := time.Parse(time.RFC3339, raw.Timestamp)
		if err != nil {
			ts = time.Time{}
		}
		out = append(out, Record{
			Timestamp:       ts,
			Direction:       raw.Direction,
			From:            raw.From,
			To:              raw.To,
			DurationSeconds: raw.DurationSeconds,
			Status:          raw.Status,
		})
	}
	return out
}

type exportResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	DownloadURL string `json:"downloadUrl"`
	Message     string `json:"message"`
}

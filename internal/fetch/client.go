// Package fetch pulls raw catalog records from the upstream HTTP sources.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	headerRetryAfter  = "Retry-After"
	defaultRetryAfter = 5 * time.Second
)

// Error reports an upstream fetch failure for one domain.
type Error struct {
	Domain string
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch failed for %s: status %d: %s", e.Domain, e.Status, e.Detail)
}

type Client struct {
	httpClient *http.Client
	retryCap   int
}

func NewClient(retryCap int) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryCap:   retryCap,
	}
}

// FetchList retrieves a bulk endpoint returning a JSON array of records.
func (c *Client) FetchList(ctx context.Context, domain, url string) ([]map[string]any, error) {
	body, err := c.get(ctx, domain, url)
	if err != nil {
		return nil, err
	}

	var records []map[string]any
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &Error{Domain: domain, Status: http.StatusOK, Detail: "malformed response: " + err.Error()}
	}
	return records, nil
}

// FetchPage retrieves one page of a paginated endpoint. An empty or missing
// `content` array signals end-of-data and yields an empty slice, not an error.
func (c *Client) FetchPage(ctx context.Context, domain, url string, page, size int) ([]map[string]any, error) {
	pageURL := fmt.Sprintf("%s?page=%d&size=%d", url, page, size)
	body, err := c.get(ctx, domain, pageURL)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Content []map[string]any `json:"content"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &Error{Domain: domain, Status: http.StatusOK, Detail: "malformed page: " + err.Error()}
	}
	return envelope.Content, nil
}

// get performs the request, sleeping out 429 responses per their Retry-After
// header until the retry cap is spent. Any other non-200 fails immediately.
func (c *Client) get(ctx context.Context, domain, url string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, &Error{Domain: domain, Detail: err.Error()}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &Error{Domain: domain, Detail: err.Error()}
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, &Error{Domain: domain, Status: resp.StatusCode, Detail: readErr.Error()}
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			if attempt >= c.retryCap {
				return nil, &Error{Domain: domain, Status: resp.StatusCode, Detail: "retry cap exhausted"}
			}
			wait := retryAfter(resp)
			slog.WarnContext(ctx, "upstream rate limited", "domain", domain, "wait", wait, "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return nil, &Error{Domain: domain, Status: resp.StatusCode, Detail: ctx.Err().Error()}
			case <-time.After(wait):
			}
		default:
			return nil, &Error{Domain: domain, Status: resp.StatusCode, Detail: string(body)}
		}
	}
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get(headerRetryAfter); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultRetryAfter
}

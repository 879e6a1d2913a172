package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"royale-audit/internal/logger"
	"royale-audit/internal/metrics"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrAccessDenied = errors.New("access denied (check API key / allowed IP)")
)

// StatusError is any non-2xx answer other than 404 and 403.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

// Client talks to the Clash Royale public API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	metrics *metrics.Metrics
}

func NewClient(baseURL, apiKey string, timeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		metrics: m,
	}
}

// Page is one page of a cursor-paginated list endpoint.
type Page struct {
	Items  []json.RawMessage `json:"items"`
	Paging struct {
		Cursors struct {
			After  string `json:"after,omitempty"`
			Before string `json:"before,omitempty"`
		} `json:"cursors"`
	} `json:"paging"`
}

// Next returns the cursor of the following page, or "" when there is none.
func (p *Page) Next() string { return p.Paging.Cursors.After }

func clanPath(tag string) string {
	return "/clans/" + url.PathEscape(tag)
}

func (c *Client) Clan(ctx context.Context, tag string) (json.RawMessage, error) {
	return c.Fetch(ctx, clanPath(tag), nil)
}

func (c *Client) CurrentWar(ctx context.Context, tag string) (json.RawMessage, error) {
	return c.Fetch(ctx, clanPath(tag)+"/currentriverrace", nil)
}

func (c *Client) WarLogPage(ctx context.Context, tag, cursor string, limit int) (*Page, error) {
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	if cursor != "" {
		params.Set("after", cursor)
	}
	raw, err := c.Fetch(ctx, clanPath(tag)+"/riverracelog", params)
	if err != nil {
		return nil, err
	}
	var p Page
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode war log page: %w", err)
	}
	return &p, nil
}

// Fetch performs one GET against endpoint and returns the raw JSON body.
// Failures are logged here; callers only decide whether they are fatal.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	start := time.Now()
	data, err := c.do(ctx, endpoint, params)
	c.metrics.ObserveRequest(metricEndpoint(endpoint), outcome(err), time.Since(start))

	switch {
	case err == nil:
		logger.Debug("api.ok", "endpoint", endpoint, "bytes", len(data))
	case errors.Is(err, ErrNotFound):
		logger.Error("api.not_found", "endpoint", endpoint)
	case errors.Is(err, ErrAccessDenied):
		logger.Error("api.access_denied", "endpoint", endpoint)
	default:
		var se *StatusError
		if errors.As(err, &se) {
			logger.Error("api.http_error", "endpoint", endpoint, "status", se.Code)
		} else {
			logger.Error("api.transport_error", "endpoint", endpoint, "err", err)
		}
	}
	return data, err
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("GET %s: %w", endpoint, ErrNotFound)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("GET %s: %w", endpoint, ErrAccessDenied)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("GET %s: %w", endpoint, &StatusError{Code: resp.StatusCode, Body: truncate(string(data), 200)})
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("GET %s: response is not JSON", endpoint)
	}
	return data, nil
}

// metricEndpoint strips the clan tag so label cardinality stays fixed.
func metricEndpoint(endpoint string) string {
	parts := strings.Split(strings.TrimPrefix(endpoint, "/"), "/")
	if len(parts) >= 2 && parts[0] == "clans" {
		parts[1] = "{tag}"
	}
	return "/" + strings.Join(parts, "/")
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	default:
		return "error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

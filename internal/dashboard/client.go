// Package dashboard is the admin client for the orders API: an explicit
// session, a typed HTTP client and a debounced, rate-limit aware fetcher.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joao-fontenele/storefront-orders/internal/analytics"
	"github.com/joao-fontenele/storefront-orders/internal/auth"
	"github.com/joao-fontenele/storefront-orders/internal/domain"
	"github.com/joao-fontenele/storefront-orders/internal/lifecycle"
)

var ErrRateLimited = errors.New("rate limited")

// RateLimitedError is returned for 429 responses. RetryAfter is zero when the
// server gave no usable hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// Session identifies the admin to the API. It is passed to every client
// explicitly.
type Session struct {
	BaseURL string
	Token   string
}

func (s Session) Authorize(req *http.Request) {
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
}

// OrderSummary is an order as listed by the API, with its display fields.
type OrderSummary struct {
	domain.Order
	Elapsed         *lifecycle.Elapsed `json:"elapsed,omitempty"`
	CompletionScore *int               `json:"completion_score,omitempty"`
}

type OrderPage struct {
	Orders []OrderSummary `json:"orders"`
	Total  int            `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

type Client struct {
	session    Session
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(session Session, client *http.Client) *Client {
	return &Client{
		session:    session,
		httpClient: client,
		now:        time.Now,
	}
}

func (c *Client) Analytics(ctx context.Context, params url.Values) (analytics.Report, error) {
	var report analytics.Report
	err := c.get(ctx, "/analytics", params, &report)
	return report, err
}

func (c *Client) Orders(ctx context.Context, params url.Values) (OrderPage, error) {
	var page OrderPage
	err := c.get(ctx, "/orders", params, &page)
	return page, err
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	target := strings.TrimRight(c.session.BaseURL, "/") + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	c.session.Authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.now())}
	case http.StatusUnauthorized:
		return auth.ErrUnauthorized
	default:
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("get %s: status %d: %s", path, resp.StatusCode, body.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(raw string, now time.Time) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

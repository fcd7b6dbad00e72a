// Package httpclient is the HTTP transport behind the request queues.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/queue"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "blockinsight7000-rewards"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Metrics records metrics for outbound requests.
	Metrics interface {
		Observe(host string, statusCode int, err error, started time.Time)
	}
)

// Config configures the transport.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Client performs single GET requests with no retries of its own; retrying is
// the queue's job.
type Client struct {
	client  *resty.Client
	metrics Metrics
	now     func() time.Time
}

// New constructs an instrumented client.
func New(cfg Config, metrics Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")

	return &Client{client: client, metrics: metrics, now: time.Now}
}

// Fetch issues a GET. Non-200 answers are returned, not turned into errors.
func (c *Client) Fetch(ctx context.Context, rawURL string) (res *queue.Response, err error) {
	started := time.Now()
	statusCode := 0
	defer func() {
		c.metrics.Observe(hostOf(rawURL), statusCode, err, started)
	}()

	resp, err := c.client.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	statusCode = resp.StatusCode()

	return &queue.Response{
		StatusCode: statusCode,
		Body:       resp.Body(),
		URL:        effectiveURL(resp, rawURL),
		RetryAfter: parseRetryAfter(resp.Header().Get("Retry-After"), c.now()),
	}, nil
}

func effectiveURL(resp *resty.Response, fallback string) string {
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		return raw.Request.URL.String()
	}
	return fallback
}

// parseRetryAfter accepts delay seconds or an HTTP date. Unusable values yield zero.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

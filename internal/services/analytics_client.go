package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"aivisibility/backend-go/internal/config"
	"aivisibility/backend-go/internal/extract"
	"aivisibility/backend-go/internal/models"
)

var ErrCircuitOpen = errors.New("analytics circuit breaker open")

const maxAttempts = 3

// AnalyticsClient reads loosely-typed metric rows from the analytics API.
type AnalyticsClient struct {
	baseURL string
	hc      *http.Client
	cb      *circuitBreaker
	backoff time.Duration
}

type UpstreamError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("analytics api: %d", e.Status)
}

func (e *UpstreamError) retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusRequestTimeout
}

type circuitBreaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
	openedAt  time.Time
	cooldown  time.Duration
}

func newCircuitBreaker(threshold int, cooldown time.Duration) *circuitBreaker {
	if threshold <= 0 {
		threshold = 1
	}
	return &circuitBreaker{threshold: threshold, cooldown: cooldown}
}

func (c *circuitBreaker) allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures < c.threshold {
		return true
	}
	if time.Since(c.openedAt) > c.cooldown {
		c.failures = 0
		c.openedAt = time.Time{}
		return true
	}
	return false
}

func (c *circuitBreaker) success() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
	c.openedAt = time.Time{}
}

func (c *circuitBreaker) fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures >= c.threshold {
		c.openedAt = time.Now()
	}
}

func NewAnalyticsClient(cfg config.Config) *AnalyticsClient {
	return &AnalyticsClient{
		baseURL: cfg.AnalyticsBaseURL,
		hc: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		cb:      newCircuitBreaker(cfg.CircuitFailLimit, cfg.CircuitCooldown),
		backoff: 300 * time.Millisecond,
	}
}

func (c *AnalyticsClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("analytics health: %s", res.Status)
	}
	return nil
}

// FetchBrands returns the brand metric rows across all prompts.
func (c *AnalyticsClient) FetchBrands(ctx context.Context) ([]models.RawMetricRecord, error) {
	return c.fetchRecords(ctx, "/analytics/brands")
}

// FetchPromptBrands returns the brand rows observed for one prompt. A brand
// may appear once per platform.
func (c *AnalyticsClient) FetchPromptBrands(ctx context.Context, promptID string) ([]models.RawMetricRecord, error) {
	return c.fetchRecords(ctx, "/analytics/prompts/"+url.PathEscape(promptID)+"/brands")
}

func (c *AnalyticsClient) FetchPrompts(ctx context.Context) ([]models.RawMetricRecord, error) {
	return c.fetchRecords(ctx, "/analytics/prompts")
}

// FetchTimeseries returns dated visibility rows, one per brand per day.
func (c *AnalyticsClient) FetchTimeseries(ctx context.Context) ([]models.RawMetricRecord, error) {
	return c.fetchRecords(ctx, "/analytics/brands/timeseries")
}

func (c *AnalyticsClient) fetchRecords(ctx context.Context, path string) ([]models.RawMetricRecord, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	records, err := extract.DecodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, nil
}

// get retries network failures and 5xx responses with linear backoff. Other
// non-2xx statuses are returned at once and do not trip the breaker.
func (c *AnalyticsClient) get(ctx context.Context, path string) ([]byte, error) {
	if !c.cb.allow() {
		return nil, ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				c.cb.fail()
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		body, err := c.do(ctx, path)
		if err == nil {
			c.cb.success()
			return body, nil
		}
		lastErr = err

		var upErr *UpstreamError
		if errors.As(err, &upErr) && !upErr.retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			c.cb.fail()
			return nil, ctx.Err()
		}
	}

	c.cb.fail()
	return nil, lastErr
}

func (c *AnalyticsClient) do(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &UpstreamError{
			Status:     res.StatusCode,
			Body:       string(body),
			RetryAfter: parseRetryAfter(res.Header.Get("Retry-After")),
		}
	}
	return io.ReadAll(res.Body)
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

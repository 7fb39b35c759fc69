package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"whale-index-lab/internal/logger"
	"whale-index-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultPriceDays   = 365
)

// HTTPClient fetches both feeds over HTTP with retries and a circuit
// breaker per feed.
type HTTPClient struct {
	metricsURL  string
	priceURL    string // empty disables prices
	priceDays   int
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	breakers    map[string]*gobreaker.CircuitBreaker
	log         *logger.Logger
	now         func() time.Time
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithPriceURL enables the price feed.
func WithPriceURL(u string) ClientOption {
	return func(c *HTTPClient) {
		c.priceURL = u
	}
}

// WithPriceDays sets how many days of prices to request.
func WithPriceDays(n int) ClientOption {
	return func(c *HTTPClient) {
		c.priceDays = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) ClientOption {
	return func(c *HTTPClient) {
		c.log = l
	}
}

// NewHTTPClient creates a feed client for the daily-metrics document at
// metricsURL.
func NewHTTPClient(metricsURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		metricsURL:  metricsURL,
		priceDays:   DefaultPriceDays,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrNop(c.log).Named("feed")
	c.breakers = map[string]*gobreaker.CircuitBreaker{
		FeedMetrics: newBreaker(FeedMetrics),
		FeedPrices:  newBreaker(FeedPrices),
	}
	return c
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, _, to gobreaker.State) {
			observability.SetBreakerState(name, int(to))
		},
	})
}

// breakerSuccess keeps caller cancellation and non-retryable client errors
// out of the failure count. getWithRetry returns the caller's context error
// unwrapped; a wrapped deadline comes from the HTTP client timeout and counts.
func breakerSuccess(err error) bool {
	if err == nil || err == context.Canceled || err == context.DeadlineExceeded {
		return true
	}
	var se *statusError
	return errors.As(err, &se) && !se.retryable()
}

// Fetch downloads the metrics document and, when configured, the price
// document. A failing price feed degrades to a series without prices.
func (c *HTTPClient) Fetch(ctx context.Context) (*Snapshot, error) {
	var doc metricsDocument
	if err := c.get(ctx, FeedMetrics, c.metricsURL, &doc); err != nil {
		return nil, err
	}
	days, err := doc.days()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{GeneratedAt: doc.generatedAt(), FetchedAt: c.now().UTC()}

	var closes map[time.Time]float64
	if c.priceURL != "" {
		closes, err = c.fetchPrices(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warnw("price feed unavailable, continuing without prices", "error", err)
		} else {
			snap.PricesAvailable = true
		}
	}

	snap.Series, err = Merge(days, closes)
	if err != nil {
		return nil, fmt.Errorf("merge feeds: %w", err)
	}
	c.log.Infow("feed fetched",
		"days", snap.Series.Len(),
		"declared_days", doc.TotalDays,
		"prices", snap.PricesAvailable,
	)
	return snap, nil
}

func (c *HTTPClient) fetchPrices(ctx context.Context) (map[time.Time]float64, error) {
	u, err := url.Parse(c.priceURL)
	if err != nil {
		return nil, fmt.Errorf("parse price url: %w", err)
	}
	q := u.Query()
	q.Set("vs_currency", "usd")
	q.Set("days", strconv.Itoa(c.priceDays))
	q.Set("interval", "daily")
	u.RawQuery = q.Encode()

	var doc priceDocument
	if err := c.get(ctx, FeedPrices, u.String(), &doc); err != nil {
		return nil, err
	}
	return doc.closes(), nil
}

// statusError is a non-200 response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// get fetches u into out through the feed's circuit breaker, retrying
// transient failures with exponential backoff.
func (c *HTTPClient) get(ctx context.Context, feed, u string, out interface{}) error {
	start := time.Now()
	_, err := c.breakers[feed].Execute(func() (interface{}, error) {
		return nil, c.getWithRetry(ctx, u, out)
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordFeedRequest(feed, status, time.Since(start).Seconds())

	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %s: %w", ErrFeedUnavailable, feed, err)
	default:
		return fmt.Errorf("%s: %w", feed, err)
	}
}

func (c *HTTPClient) getWithRetry(ctx context.Context, u string, out interface{}) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			se := &statusError{code: resp.StatusCode, body: truncate(string(body), 200)}
			if !se.retryable() {
				return fmt.Errorf("%w: %w", ErrFeedUnavailable, se)
			}
			lastErr = se
			continue
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return nil
	}

	return fmt.Errorf("%w: max retries exceeded: %w", ErrFeedUnavailable, lastErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Source = (*HTTPClient)(nil)

package betsite

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/matchwatch/livealert/internal/platform/logging"
	"github.com/matchwatch/livealert/internal/platform/resilience"
)

const (
	defaultBaseURL   = "https://www.betsapi-mirror.net"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

var errBetsiteTransient = crerr.New("betsite transient failure")

// ErrUnavailable marks requests rejected before leaving the process, either
// by the circuit breaker or by repeated upstream refusals.
var ErrUnavailable = crerr.New("betsite: upstream unavailable")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client fetches and parses pages from the live-odds site. All requests go
// through one retry/backoff path guarded by a circuit breaker, and
// identical concurrent fetches collapse via singleflight.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// BaseURL returns the configured site root.
func (c *Client) BaseURL() string { return c.baseURL }

// GameURL builds the public match page URL for a game id.
func (c *Client) GameURL(gameID string) string {
	return c.baseURL + "/r/" + gameID
}

// fetchResult carries a page body together with the final HTTP status so
// callers can report upstream health even for failed fetches.
type fetchResult struct {
	raw    []byte
	status int
}

func (c *Client) fetchHTML(ctx context.Context, path string) ([]byte, int, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			snap := c.breaker.Snapshot()
			c.logger.WarnContext(ctx, "betsite circuit breaker rejected request",
				"state", snap.State, "failures", snap.ConsecutiveFailures, "retry_after", snap.RetryAfter)
			return nil, 0, crerr.Wrap(ErrUnavailable, "circuit open")
		}
	}

	fullURL := c.baseURL + path
	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, status, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errBetsiteTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return fetchResult{raw: raw, status: status}, reqErr
	})

	res, ok := out.(fetchResult)
	if !ok {
		if err != nil {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("unexpected response payload type %T", out)
	}
	if err != nil {
		return nil, res.status, err
	}
	return res.raw, res.status, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, int, error) {
	var lastErr error
	lastStatus := 0
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		raw, status, err := c.doOnce(ctx, fullURL, false)
		if err == nil && status == http.StatusForbidden {
			// Some mirrors gate bare requests; retry once pretending to come
			// from the site's own in-play page.
			raw, status, err = c.doOnce(ctx, fullURL, true)
		}
		switch {
		case err != nil:
			lastStatus = 0
			lastErr = crerr.Wrapf(errBetsiteTransient, "send request: %v", err)
		case status >= 200 && status < 300:
			return raw, status, nil
		case isRetryableStatus(status):
			lastStatus = status
			lastErr = crerr.Wrapf(errBetsiteTransient, "site status=%d", status)
		default:
			return nil, status, fmt.Errorf("site status=%d", status)
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, lastStatus, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("site request failed")
	}
	c.logger.WarnContext(ctx, "betsite request failed", "url", fullURL, "error", lastErr)
	return nil, lastStatus, lastErr
}

func (c *Client) doOnce(ctx context.Context, fullURL string, withReferer bool) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,pt-BR;q=0.8")
	if withReferer {
		req.Header.Set("Referer", c.baseURL+"/inplay")
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func isRetryableStatus(status int) bool {
	if status == http.StatusForbidden || status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

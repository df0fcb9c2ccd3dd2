package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/AbdullahP/pokealert/internal/metrics"
)

// defaultUserAgents are rotated per request so consecutive fetches do
// not present an identical fingerprint.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// HTTPClient implements Client against live sites with anti-detection
// measures: rotating user agents, browser-like headers, cache-busting
// query parameters, and a randomized pre-request delay.
type HTTPClient struct {
	client       *http.Client
	limiter      *DomainLimiter
	userAgents   []string
	minDelay     time.Duration
	maxDelay     time.Duration
	cacheBusting bool
	logger       *slog.Logger
	rng          *rand.Rand
}

// Option configures the HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default pooled HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = hc
	}
}

// WithUserAgents overrides the rotated user agent pool.
func WithUserAgents(uas []string) Option {
	return func(c *HTTPClient) {
		if len(uas) > 0 {
			c.userAgents = uas
		}
	}
}

// WithDelayRange sets the randomized pre-request delay bounds.
func WithDelayRange(minDelay, maxDelay time.Duration) Option {
	return func(c *HTTPClient) {
		c.minDelay = minDelay
		c.maxDelay = maxDelay
	}
}

// WithCacheBusting toggles the timestamp/nonce query parameters that
// defeat CDN caching.
func WithCacheBusting(enabled bool) Option {
	return func(c *HTTPClient) {
		c.cacheBusting = enabled
	}
}

// WithLimiter injects a per-domain rate limiter. When set, every Fetch
// waits on the target's domain bucket before sending.
func WithLimiter(l *DomainLimiter) Option {
	return func(c *HTTPClient) {
		c.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = l
	}
}

// WithRand overrides the random source for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(c *HTTPClient) {
		c.rng = r
	}
}

// NewHTTPClient creates a fetcher with a pooled transport and the given
// request timeout.
func NewHTTPClient(timeout time.Duration, opts ...Option) *HTTPClient {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	c := &HTTPClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgents: defaultUserAgents,
		logger:     slog.Default(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // jitter, not crypto
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the idle connections kept by the underlying transport.
// The client stays usable; call it once fetching is done.
func (c *HTTPClient) Close() {
	c.client.CloseIdleConnections()
}

// Fetch retrieves the page at rawURL. Non-2xx responses and transport
// failures come back as a *Error with the failure classified.
func (c *HTTPClient) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing target URL: %w", err)
	}
	site := parsed.Hostname()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, site); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	if err := c.jitter(ctx); err != nil {
		return nil, err
	}

	reqURL := rawURL
	if c.cacheBusting {
		reqURL = c.bustCache(parsed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.FetchesTotal.WithLabelValues(site, "network_error").Inc()
		return nil, &Error{URL: rawURL, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.FetchesTotal.WithLabelValues(site, "network_error").Inc()
		return nil, &Error{URL: rawURL, Kind: KindNetwork, Err: err}
	}

	elapsed := time.Since(start)
	metrics.FetchDuration.WithLabelValues(site).Observe(elapsed.Seconds())

	if ferr := classifyStatus(rawURL, resp.StatusCode); ferr != nil {
		if ferr.Kind == KindBlocked {
			metrics.FetchBlockedTotal.Inc()
			c.logger.Warn("fetch blocked by site",
				"url", rawURL, "status", resp.StatusCode)
		}
		metrics.FetchesTotal.WithLabelValues(site, string(ferr.Kind)).Inc()
		return nil, ferr
	}

	metrics.FetchesTotal.WithLabelValues(site, "ok").Inc()
	c.logger.Debug("fetched page",
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", elapsed,
	)

	return &Result{
		Body:       body,
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		Duration:   elapsed,
	}, nil
}

func classifyStatus(rawURL string, status int) *Error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusForbidden || status == http.StatusTooManyRequests:
		return &Error{URL: rawURL, StatusCode: status, Kind: KindBlocked}
	case status == http.StatusNotFound:
		return &Error{URL: rawURL, StatusCode: status, Kind: KindNotFound}
	default:
		return &Error{URL: rawURL, StatusCode: status, Kind: KindServer}
	}
}

// jitter sleeps for a random duration between minDelay and maxDelay so
// request timing does not form a fixed pattern.
func (c *HTTPClient) jitter(ctx context.Context) error {
	if c.maxDelay <= 0 {
		return nil
	}
	d := c.minDelay
	if spread := c.maxDelay - c.minDelay; spread > 0 {
		d += time.Duration(c.rng.Int63n(int64(spread)))
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// bustCache appends timestamp and nonce query parameters so CDNs treat
// each request as a distinct URL.
func (c *HTTPClient) bustCache(u *url.URL) string {
	busted := *u
	q := busted.Query()
	q.Set("t", strconv.FormatInt(time.Now().Unix(), 10))
	q.Set("r", strconv.Itoa(c.rng.Intn(1_000_000)))
	busted.RawQuery = q.Encode()
	return busted.String()
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	ua := c.userAgents[c.rng.Intn(len(c.userAgents))]
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept",
		"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "nl-NL,nl;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

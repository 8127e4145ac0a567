package sportsapi

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/goalcast/core/pkg/logger"
)

// RateLimitError represents a rate limit error from the API
type RateLimitError struct {
	StatusCode int
	RetryAfter string
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter != "" {
		return fmt.Sprintf("rate limit exceeded (status %d), retry after: %s", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (status %d): %s", e.StatusCode, e.Message)
}

// APIError represents a general API error
type APIError struct {
	StatusCode int
	Message    string
	Errors     []string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("API error (status %d): %s - %s", e.StatusCode, e.Message, strings.Join(e.Errors, ", "))
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// ErrNotConfigured is returned when the provider has no API key.
var ErrNotConfigured = errors.New("sports API key not configured")

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

type cacheEntry struct {
	data      *APIResponse
	expiresAt time.Time
}

// responseCache keeps decoded responses for a short TTL. Live endpoints
// bypass it.
type responseCache struct {
	entries map[string]cacheEntry
	mutex   sync.Mutex
	ttl     time.Duration
	now     func() time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *responseCache) get(key string) (*APIResponse, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.data, true
}

func (c *responseCache) set(key string, data *APIResponse) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	// Expired entries are swept on write so the map never needs a janitor goroutine.
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{data: data, expiresAt: now.Add(c.ttl)}
}

// RateLimiter implements simple token-bucket rate limiting
type RateLimiter struct {
	tokens   chan struct{}
	interval time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	rl := &RateLimiter{
		tokens:   make(chan struct{}, requestsPerMinute),
		interval: time.Minute / time.Duration(requestsPerMinute),
	}
	for i := 0; i < requestsPerMinute; i++ {
		rl.tokens <- struct{}{}
	}
	return rl
}

// Wait blocks until a request can be made
func (rl *RateLimiter) Wait(ctx context.Context) error {
	select {
	case <-rl.tokens:
		go func() {
			time.Sleep(rl.interval)
			select {
			case rl.tokens <- struct{}{}:
			default:
			}
		}()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// APIResponse is the API-Football response envelope
type APIResponse struct {
	Get        string          `json:"get"`
	Parameters json.RawMessage `json:"parameters"`
	Errors     interface{}     `json:"errors"`
	Results    int             `json:"results"`
	Response   json.RawMessage `json:"response"`
}

// HasErrors checks if the API response contains errors
func (r *APIResponse) HasErrors() bool {
	switch errs := r.Errors.(type) {
	case []interface{}:
		return len(errs) > 0
	case map[string]interface{}:
		return len(errs) > 0
	case string:
		return errs != ""
	default:
		return false
	}
}

// GetErrorMessages extracts error messages from the response
func (r *APIResponse) GetErrorMessages() []string {
	if !r.HasErrors() {
		return nil
	}

	var messages []string
	switch errs := r.Errors.(type) {
	case []interface{}:
		for _, err := range errs {
			if s, ok := err.(string); ok {
				messages = append(messages, s)
			}
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(errs))
		for k := range errs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := errs[k].(string); ok {
				messages = append(messages, fmt.Sprintf("%s: %s", k, s))
			}
		}
	case string:
		messages = append(messages, errs)
	}
	return messages
}

// Config holds configuration for a sports API client
type Config struct {
	Name           string
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	RequestsPerMin int
	CacheTTL       time.Duration
	MaxRetries     int
	// OnRequest is called after every request that reached the provider.
	OnRequest func(name string)
}

// DefaultConfig returns a default configuration
func DefaultConfig(apiKey string) Config {
	return Config{
		Name:           "api-football",
		APIKey:         apiKey,
		BaseURL:        "https://v3.football.api-sports.io",
		Timeout:        20 * time.Second,
		RequestsPerMin: 10,
		CacheTTL:       10 * time.Minute,
		MaxRetries:     2,
	}
}

// Client talks to an API-Football compatible provider
type Client struct {
	name        string
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	host        string
	maxRetries  int
	rateLimiter *RateLimiter
	cache       *responseCache
	breaker     *gobreaker.CircuitBreaker
	onRequest   func(name string)
	logger      *logger.Logger
}

// NewClient creates a new sports API client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	def := DefaultConfig(cfg.APIKey)
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = def.RequestsPerMin
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	log := logger.New("sportsapi").WithComponent(cfg.Name)

	host := ""
	if u, err := url.Parse(cfg.BaseURL); err == nil {
		host = u.Host
	}

	c := &Client{
		name:        cfg.Name,
		httpClient:  httpClient,
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		host:        host,
		maxRetries:  cfg.MaxRetries,
		rateLimiter: NewRateLimiter(cfg.RequestsPerMin),
		cache:       newResponseCache(cfg.CacheTTL),
		onRequest:   cfg.OnRequest,
		logger:      log,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellations say nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("action", "breaker_state_change").
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Sports API circuit breaker changed state")
		},
	})

	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// IsAvailable checks if the API key is configured
func (c *Client) IsAvailable() bool {
	return c.apiKey != ""
}

func cacheKey(endpoint string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{endpoint}
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(strings.Join(parts, "&"))))
}

// get runs a request through cache, breaker and retry policy.
func (c *Client) get(ctx context.Context, endpoint string, params map[string]string, cacheable bool) (*APIResponse, error) {
	if !c.IsAvailable() {
		return nil, ErrNotConfigured
	}

	key := cacheKey(endpoint, params)
	if cacheable {
		if cached, ok := c.cache.get(key); ok {
			return cached, nil
		}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.makeRequestWithRetry(ctx, endpoint, params, c.maxRetries)
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*APIResponse)
	if cacheable {
		c.cache.set(key, resp)
	}
	return resp, nil
}

// makeRequest makes a single request to the provider
func (c *Client) makeRequest(ctx context.Context, endpoint string, params map[string]string) (*APIResponse, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	query := u.Query()
	for k, v := range params {
		query.Set(k, v)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-apisports-key", c.apiKey)
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	if c.host != "" {
		req.Header.Set("X-RapidAPI-Host", c.host)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.LogAPICall(http.MethodGet, endpoint, 0, time.Since(start), err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if c.onRequest != nil {
		c.onRequest(c.name)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr error
		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr = &RateLimitError{
				StatusCode: resp.StatusCode,
				RetryAfter: resp.Header.Get("Retry-After"),
				Message:    "request limit exceeded",
			}
		} else {
			apiErr = &APIError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("API returned status %d", resp.StatusCode),
			}
		}
		c.logger.LogAPICall(http.MethodGet, endpoint, resp.StatusCode, time.Since(start), apiErr)
		return nil, apiErr
	}

	var apiResponse APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		c.logger.LogAPICall(http.MethodGet, endpoint, resp.StatusCode, time.Since(start), err)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResponse.HasErrors() {
		messages := apiResponse.GetErrorMessages()
		var apiErr error = &APIError{
			StatusCode: http.StatusOK,
			Message:    "API returned errors in response body",
			Errors:     messages,
		}
		for _, msg := range messages {
			lower := strings.ToLower(msg)
			if strings.Contains(lower, "request limit") ||
				strings.Contains(lower, "rate limit") ||
				strings.Contains(lower, "too many requests") {
				apiErr = &RateLimitError{StatusCode: http.StatusOK, Message: msg}
				break
			}
		}
		c.logger.LogAPICall(http.MethodGet, endpoint, resp.StatusCode, time.Since(start), apiErr)
		return nil, apiErr
	}

	c.logger.LogAPICall(http.MethodGet, endpoint, resp.StatusCode, time.Since(start), nil)
	return &apiResponse, nil
}

// makeRequestWithRetry retries rate limited requests with exponential backoff and jitter
func (c *Client) makeRequestWithRetry(ctx context.Context, endpoint string, params map[string]string, maxRetries int) (*APIResponse, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.makeRequest(ctx, endpoint, params)
		if err == nil {
			return resp, nil
		}

		var rateLimitErr *RateLimitError
		if !errors.As(err, &rateLimitErr) || attempt >= maxRetries {
			return nil, err
		}

		delay := retryDelay(attempt, rateLimitErr.RetryAfter)
		c.logger.Warn().
			Str("action", "rate_limited").
			Str("endpoint", endpoint).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func retryDelay(attempt int, retryAfter string) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > time.Minute {
		base = time.Minute
	}

	// ±25% jitter
	factor := float64(time.Now().UnixNano()%1000) / 1000.0
	delay := base + time.Duration(float64(base)*0.25*(2*factor-1))

	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil {
			if provided := time.Duration(secs) * time.Second; provided > delay {
				delay = provided
			}
		}
	}
	return delay
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

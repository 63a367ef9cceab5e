// Package sse is the streaming chat-completion client the extension talks
// to its completion endpoint through. Responses are text/event-stream bodies
// of `data: {"content": "..."}` lines terminated by `data: [DONE]`.
package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"lovebug/config"
	"lovebug/model"
	"lovebug/security"
)

const (
	DefaultTimeout           = 30 * time.Second
	DefaultMaxInputLength    = 4000
	DefaultMaxResponseLength = 10000
	DefaultRateLimit         = 30
	DefaultRateWindow        = 60 * time.Second
	DefaultTemperature       = 0.7
	DefaultMaxTokens         = 1000
	MaxTokensLimit           = 2000
	ClientVersion            = "1.0.0"

	healthTimeout = 5 * time.Second
)

// Config is the endpoint, credential and limits a Client sends with.
type Config struct {
	Endpoint      string
	APIKey        string
	Model         string
	SigningSecret string

	Timeout           time.Duration
	MaxInputLength    int
	MaxResponseLength int
	RateLimit         int
	RateWindow        time.Duration
	MaxRetries        int
	RetryInterval     time.Duration

	// Sanitize HTML-escapes prompts before sending and deltas before
	// returning them, for text that is injected back into a web page.
	Sanitize bool
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxInputLength <= 0 {
		c.MaxInputLength = DefaultMaxInputLength
	}
	if c.MaxResponseLength <= 0 {
		c.MaxResponseLength = DefaultMaxResponseLength
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateWindow <= 0 {
		c.RateWindow = DefaultRateWindow
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = time.Second
	}
	return c
}

// Options tune a single request.
type Options struct {
	SystemPrompt string
	// Temperature defaults to 0.7 when nil and is clamped to [0, 1].
	Temperature *float64
	// MaxTokens defaults to 1000 when zero and is clamped to [1, 2000].
	MaxTokens int
	UserID    string
	SessionID string
}

// Temperature is a helper for Options.Temperature.
func Temperature(t float64) *float64 {
	return &t
}

func (o Options) temperature() float64 {
	if o.Temperature == nil {
		return DefaultTemperature
	}
	return min(max(*o.Temperature, 0), 1)
}

func (o Options) maxTokens() int {
	if o.MaxTokens == 0 {
		return DefaultMaxTokens
	}
	return min(max(o.MaxTokens, 1), MaxTokensLimit)
}

// StreamHandler receives the incremental form of a completion. Exactly one
// of OnComplete and OnError is called, once, after every OnChunk.
type StreamHandler struct {
	OnChunk    func(text string)
	OnComplete func()
	OnError    func(err error)
}

type Client struct {
	mu      sync.RWMutex
	cfg     *Config
	breaker *gobreaker.CircuitBreaker

	httpClient *http.Client
	limiter    *RateLimiter
	now        func() time.Time
	report     func(reachable bool)
}

type Option func(*Client)

// WithHTTPClient replaces the transport. Client timeouts are ignored in
// favour of Config.Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock injects the time source used by the rate limiter and headers.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithStatusReporter receives the passive reachability signal of every
// request that got as far as the network.
func WithStatusReporter(report func(reachable bool)) Option {
	return func(c *Client) { c.report = report }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.limiter = NewRateLimiter(DefaultRateLimit, DefaultRateWindow, c.now)
	c.breaker = newBreaker("unconfigured")
	return c
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if config.Debug {
				config.DebugLog.Printf("[SSE] circuit breaker %q: %s -> %s", name, from, to)
			}
		},
		IsSuccessful: func(err error) bool {
			// Only an unreachable or failing server counts against it.
			return err == nil || !Retryable(err)
		},
	})
}

// SetConfig replaces the configuration. Requests already in flight keep the
// snapshot they started with.
func (c *Client) SetConfig(cfg Config) {
	cfg = cfg.withDefaults()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg == nil || c.cfg.Endpoint != cfg.Endpoint {
		c.breaker = newBreaker(cfg.Endpoint)
	}
	c.cfg = &cfg
	c.limiter.SetLimits(cfg.RateLimit, cfg.RateWindow)

	config.SecureLog("info", "SSE client configured", map[string]any{
		"endpoint": cfg.Endpoint,
		"apiKey":   cfg.APIKey,
	})
}

// ClearConfig forgets the configuration and resets the rate-limit window.
func (c *Client) ClearConfig() {
	c.mu.Lock()
	c.cfg = nil
	c.mu.Unlock()

	c.limiter.Reset()
	config.SecureLog("info", "SSE client configuration cleared", nil)
}

// Configured reports whether an endpoint and credential are set.
func (c *Client) Configured() bool {
	_, err := c.snapshot()
	return err == nil
}

// Config returns the current configuration, if any.
func (c *Client) Config() (Config, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cfg == nil {
		return Config{}, false
	}
	return *c.cfg, true
}

// RemainingRequests reports how many requests the current rate window admits.
func (c *Client) RemainingRequests() int {
	return c.limiter.Remaining()
}

func (c *Client) snapshot() (Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cfg == nil || c.cfg.Endpoint == "" {
		return Config{}, &Error{Kind: KindNotConfigured}
	}
	if c.cfg.APIKey == "" {
		return Config{}, &Error{Kind: KindNotConfigured, Err: errMissingAPIKey}
	}
	return *c.cfg, nil
}

func (c *Client) reportReachable(reachable bool) {
	if c.report != nil {
		c.report(reachable)
	}
}

// SendMessage sends a single prompt and returns the fully assembled
// response.
func (c *Client) SendMessage(ctx context.Context, prompt string, opts Options) (string, error) {
	return c.StreamPrompt(ctx, prompt, opts).Collect()
}

// StreamCompletion streams a conversation through h. It blocks until the
// stream ends.
func (c *Client) StreamCompletion(ctx context.Context, messages []model.Message, opts Options, h StreamHandler) {
	s := c.StreamMessages(ctx, messages, opts)
	defer s.Close()

	for s.Next() {
		if h.OnChunk != nil {
			h.OnChunk(s.Text())
		}
	}
	if err := s.Err(); err != nil {
		if h.OnError != nil {
			h.OnError(err)
		}
		return
	}
	if h.OnComplete != nil {
		h.OnComplete()
	}
}

// StreamPrompt opens a stream for a single prompt.
func (c *Client) StreamPrompt(ctx context.Context, prompt string, opts Options) *Stream {
	return c.open(ctx, prompt, nil, opts)
}

// StreamMessages opens a stream for a conversation.
func (c *Client) StreamMessages(ctx context.Context, messages []model.Message, opts Options) *Stream {
	return c.open(ctx, "", messages, opts)
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestBody struct {
	Model          string        `json:"model,omitempty"`
	Prompt         string        `json:"prompt,omitempty"`
	Messages       []wireMessage `json:"messages,omitempty"`
	SystemPrompt   string        `json:"systemPrompt,omitempty"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"maxTokens"`
	MaxTokensSnake int           `json:"max_tokens"`
	Stream         bool          `json:"stream"`
	UserID         string        `json:"userId,omitempty"`
	SessionID      string        `json:"sessionId,omitempty"`
	RequestID      string        `json:"requestId"`
	Timestamp      int64         `json:"timestamp"`
}

func failed(err error) *Stream {
	return &Stream{err: err, done: true}
}

func (c *Client) open(ctx context.Context, prompt string, messages []model.Message, opts Options) *Stream {
	cfg, err := c.snapshot()
	if err != nil {
		return failed(err)
	}

	if !c.limiter.Allow() {
		config.SecureLog("warn", "rate limit exceeded", map[string]any{
			"limit":  cfg.RateLimit,
			"window": cfg.RateWindow,
		})
		return failed(&Error{Kind: KindRateLimited, Limit: cfg.RateLimit})
	}

	clean := func(s string) string {
		if cfg.Sanitize {
			return security.SanitizeInput(s)
		}
		return s
	}

	body := requestBody{
		Model:        cfg.Model,
		SystemPrompt: clean(opts.SystemPrompt),
		Temperature:  opts.temperature(),
		MaxTokens:    opts.maxTokens(),
		Stream:       true,
		UserID:       opts.UserID,
		SessionID:    opts.SessionID,
		RequestID:    uuid.NewString(),
		Timestamp:    c.now().UnixMilli(),
	}
	body.MaxTokensSnake = body.MaxTokens

	inputLen := 0
	if messages == nil {
		body.Prompt = clean(prompt)
		inputLen = utf8.RuneCountInString(body.Prompt)
	} else {
		body.Messages = make([]wireMessage, 0, len(messages))
		for _, m := range messages {
			content := clean(m.Content)
			inputLen += utf8.RuneCountInString(content)
			body.Messages = append(body.Messages, wireMessage{Role: string(m.Role), Content: content})
		}
	}
	if inputLen > cfg.MaxInputLength {
		return failed(&Error{Kind: KindInputTooLong, Limit: cfg.MaxInputLength})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return failed(fmt.Errorf("failed to encode request: %w", err))
	}

	config.SecureLog("info", "completion request started", map[string]any{
		"requestId":   body.RequestID,
		"userId":      opts.UserID,
		"sessionId":   opts.SessionID,
		"inputLength": inputLen,
	})

	reqCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)

	c.mu.RLock()
	breaker := c.breaker
	c.mu.RUnlock()

	resp, err := c.post(reqCtx, cfg, breaker, payload, body)
	if err != nil {
		cancel()
		config.SecureLog("error", "completion request failed", map[string]any{
			"requestId": body.RequestID,
			"error":     err.Error(),
		})
		return failed(err)
	}

	dec := NewDecoder(resp.Body)
	dec.SetMaxLine(maxLineBytes(cfg.MaxResponseLength))

	return &Stream{
		ctx:       reqCtx,
		cancel:    cancel,
		body:      resp.Body,
		dec:       dec,
		maxLen:    cfg.MaxResponseLength,
		sanitize:  cfg.Sanitize,
		requestID: body.RequestID,
		report:    c.reportReachable,
	}
}

// maxLineBytes bounds one event line. A JSON-escaped rune takes at most six
// bytes, the rest is room for the event envelope.
func maxLineBytes(maxResponseLength int) int {
	return 6*maxResponseLength + 4096
}

// post sends the request, retrying transport failures and 5xx responses
// with exponential backoff until a response with an event-stream body is
// obtained.
func (c *Client) post(ctx context.Context, cfg Config, breaker *gobreaker.CircuitBreaker, payload []byte, body requestBody) (*http.Response, error) {
	attempt := func() (*http.Response, error) {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(contextError(ctx, ctx.Err()))
		}

		result, err := breaker.Execute(func() (interface{}, error) {
			return c.do(ctx, cfg, payload, body)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, backoff.Permanent(&Error{Kind: KindUnavailable, Err: err})
			}
			if !Retryable(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return result.(*http.Response), nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.RetryInterval
	policy.MaxElapsedTime = 0

	var b backoff.BackOff = backoff.WithMaxRetries(policy, uint64(max(cfg.MaxRetries, 0)))
	b = backoff.WithContext(b, ctx)

	resp, err := backoff.RetryWithData[*http.Response](attempt, b)
	if err != nil {
		// The backoff context may stop us before an attempt could classify it.
		if KindOf(err) == KindUnknown && ctx.Err() != nil {
			return nil, contextError(ctx, err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, cfg Config, payload []byte, body requestBody) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindNotConfigured, Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("X-Request-ID", body.RequestID)
	req.Header.Set("X-Timestamp", strconv.FormatInt(body.Timestamp, 10))
	req.Header.Set("X-Client-Version", ClientVersion)
	if cfg.SigningSecret != "" {
		req.Header.Set("X-Signature", security.SignRequest(payload, cfg.SigningSecret))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.reportReachable(false)
		if ctx.Err() != nil {
			return nil, contextError(ctx, err)
		}
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	c.reportReachable(true)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &Error{Kind: KindHTTP, Status: resp.StatusCode}
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		resp.Body.Close()
		return nil, &Error{Kind: KindBadContentType}
	}

	return resp, nil
}

// contextError maps a failure caused by ctx ending into Timeout or Canceled.
func contextError(ctx context.Context, cause error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: cause}
	}
	return &Error{Kind: KindCanceled, Err: cause}
}

// CheckConnection probes <endpoint>/health. It never fails: any problem,
// including a missing configuration, reads as unreachable.
func (c *Client) CheckConnection(ctx context.Context) bool {
	cfg, err := c.snapshot()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(cfg.Endpoint, "/")+"/health", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if config.Debug {
			config.DebugLog.Printf("[SSE] health check failed: %v", err)
		}
		c.reportReachable(false)
		return false
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	c.reportReachable(ok)
	return ok
}

package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// ErrRateLimited is returned on a 429-equivalent response. The caller owns
// the re-queue decision; the pool does not retry these itself so that the
// provider's limiter can extend its backoff first.
var ErrRateLimited = errors.New("rate limited by provider")

// ErrCircuitOpen is returned while the provider's breaker is open.
var ErrCircuitOpen = errors.New("provider circuit open")

// Config tunes a provider's HTTP pool.
type Config struct {
	Name           string
	MaxConcurrency int
	RequestTimeout time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	UserAgent      string
}

// Pool is a per-provider HTTP client with a concurrency cap, retry with
// exponential backoff on transient failures, and a circuit breaker that
// opens after sustained failures.
type Pool struct {
	config    Config
	semaphore chan struct{}
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker

	mu    sync.Mutex
	stats Stats
}

// Stats counts request outcomes for the health report.
type Stats struct {
	Total     int64 `json:"total"`
	Success   int64 `json:"success"`
	Failed    int64 `json:"failed"`
	Retried   int64 `json:"retried"`
	RateLimit int64 `json:"rate_limit"`
}

// New creates a pool with defaults filled in.
func New(config Config) *Pool {
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 8
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 15 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}
	if config.BackoffBase == 0 {
		config.BackoffBase = 250 * time.Millisecond
	}
	if config.BackoffMax == 0 {
		config.BackoffMax = 5 * time.Second
	}

	settings := gobreaker.Settings{Name: config.Name}
	settings.Interval = 60 * time.Second
	settings.Timeout = 30 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 5 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.5
	}

	return &Pool{
		config:    config,
		semaphore: make(chan struct{}, config.MaxConcurrency),
		client:    &http.Client{Timeout: config.RequestTimeout},
		breaker:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Get performs a GET with the configured retry policy and returns the body.
func (p *Pool) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	select {
	case p.semaphore <- struct{}{}:
		defer func() { <-p.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	body, err := p.breaker.Execute(func() (any, error) {
		return p.fetch(ctx, url, headers)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return body.([]byte), nil
}

// GetJSON performs a GET and decodes the JSON body into out.
func (p *Pool) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	body, err := p.Get(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", p.config.Name, err)
	}
	return nil
}

// PostJSON sends a JSON body and decodes the JSON response into out. Used
// by the JSON-RPC provider.
func (p *Pool) PostJSON(ctx context.Context, url string, payload any, out any) error {
	select {
	case p.semaphore <- struct{}{}:
		defer func() { <-p.semaphore }()
	case <-ctx.Done():
		return ctx.Err()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", p.config.Name, err)
	}

	body, err := p.breaker.Execute(func() (any, error) {
		return p.post(ctx, url, raw)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrCircuitOpen
		}
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("decode %s response: %w", p.config.Name, err)
	}
	return nil
}

// BreakerState exposes the circuit state for the health report.
func (p *Pool) BreakerState() string {
	return p.breaker.State().String()
}

// GetStats returns a snapshot of the request counters.
func (p *Pool) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Pool) fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			p.count("retried")
			backoff := p.backoffFor(attempt)
			log.Debug().
				Str("provider", p.config.Name).
				Dur("backoff", backoff).
				Int("attempt", attempt).
				Msg("Retrying HTTP request")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if p.config.UserAgent != "" {
			req.Header.Set("User-Agent", p.config.UserAgent)
		}

		body, err := p.roundTrip(req)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
	}
	p.count("failed")
	return nil, lastErr
}

func (p *Pool) post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}

	body, err := p.roundTrip(req)
	if err != nil {
		p.count("failed")
		return nil, err
	}
	return body, nil
}

func (p *Pool) roundTrip(req *http.Request) ([]byte, error) {
	p.count("total")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		p.count("ratelimit")
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("HTTP %d from %s: %w", resp.StatusCode, p.config.Name, errTransient)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, p.config.Name)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	p.count("success")
	return body, nil
}

var errTransient = errors.New("transient upstream error")

func (p *Pool) backoffFor(attempt int) time.Duration {
	backoff := p.config.BackoffBase * time.Duration(1<<uint(attempt))
	if backoff > p.config.BackoffMax {
		backoff = p.config.BackoffMax
	}
	// Up to 10% jitter.
	return backoff + time.Duration(rand.Float64()*0.1*float64(backoff))
}

func (p *Pool) count(kind string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch kind {
	case "total":
		p.stats.Total++
	case "success":
		p.stats.Success++
	case "failed":
		p.stats.Failed++
	case "retried":
		p.stats.Retried++
	case "ratelimit":
		p.stats.RateLimit++
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, errTransient) {
		return true
	}
	if errors.Is(err, ErrRateLimited) {
		// Re-queue is the provider client's decision.
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"timeout", "connection refused", "connection reset", "no such host", "network is unreachable"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

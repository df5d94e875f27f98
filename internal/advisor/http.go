package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 20 * time.Second
	maxBodyBytes   = 1 << 20
)

var ErrRateLimited = errors.New("advisor rate limit exceeded")

// HTTPAdvisor posts Input as JSON to a remote endpoint and decodes a
// Suggestion from the response.
type HTTPAdvisor struct {
	url     string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

type HTTPOption func(*HTTPAdvisor)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(a *HTTPAdvisor) { a.client = c }
}

// WithRateLimit allows perMinute requests with bursts of burst.
func WithRateLimit(perMinute, burst int) HTTPOption {
	return func(a *HTTPAdvisor) {
		a.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst)
	}
}

func WithLogger(l *slog.Logger) HTTPOption {
	return func(a *HTTPAdvisor) { a.logger = l }
}

func NewHTTPAdvisor(url, apiKey string, timeout time.Duration, opts ...HTTPOption) *HTTPAdvisor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	a := &HTTPAdvisor{
		url:     url,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(6*time.Second), 3),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *HTTPAdvisor) Suggest(ctx context.Context, in Input) (Suggestion, error) {
	if !a.limiter.Allow() {
		return Suggestion{}, ErrRateLimited
	}

	body, err := json.Marshal(in)
	if err != nil {
		return Suggestion{}, fmt.Errorf("encode advisor input: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return Suggestion{}, fmt.Errorf("build advisor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return Suggestion{}, fmt.Errorf("call advisor: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Suggestion{}, fmt.Errorf("read advisor response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Suggestion{}, fmt.Errorf("advisor returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out Suggestion
	if err := json.Unmarshal(raw, &out); err != nil {
		return Suggestion{}, fmt.Errorf("decode advisor response: %w", err)
	}
	if out.CustomersToContact == nil {
		out.CustomersToContact = []string{}
	}
	a.logger.DebugContext(ctx, "Advisor answered",
		"customers", len(in.Customers), "suggested", len(out.CustomersToContact),
		"duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

// Fallback tries primary first and answers from secondary when it fails.
type Fallback struct {
	Primary   Advisor
	Secondary Advisor
	Logger    *slog.Logger
}

func (f Fallback) Suggest(ctx context.Context, in Input) (Suggestion, error) {
	out, err := f.Primary.Suggest(ctx, in)
	if err == nil {
		return out, nil
	}
	if f.Logger != nil {
		f.Logger.WarnContext(ctx, "Remote advisor failed, using local intervals", "error", err)
	}
	return f.Secondary.Suggest(ctx, in)
}

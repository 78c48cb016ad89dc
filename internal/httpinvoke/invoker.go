// Package httpinvoke implements the HTTP Invoker (spec §4.2): a single
// process-wide instance that issues one HTTP request per call against a
// shared pooled transport, and classifies the outcome into either a
// Response (any status code) or a TransportError.
//
// The pooled-transport shape is grounded on the teacher's web_fetch tool
// (internal/tools/web_fetch.go), generalized from a one-off fetch client
// into a shared, reused *http.Client with a process-wide socket ceiling.
package httpinvoke

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Config controls the shared transport's connection limits.
type Config struct {
	// MaxIdleConnsPerHost bounds idle connections retained per host.
	// Recommended default 10 (spec §4.2).
	MaxIdleConnsPerHost int
	// MaxConnsPerHost is the process-wide ceiling on open sockets per
	// host. Recommended default 50 (spec §4.2).
	MaxConnsPerHost int
	// ProcessWideRatePerSecond, if positive, caps the total rate of
	// outbound calls across every job sharing this Invoker. Spec §5
	// explicitly excludes per-target-host rate limiting from scope; this
	// is a coarser, opt-in safety valve, disabled (0) by default.
	ProcessWideRatePerSecond float64
}

// DefaultConfig returns the spec's recommended defaults. The process-wide
// rate limiter is disabled.
func DefaultConfig() Config {
	return Config{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
	}
}

// Request describes one HTTP call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    string // empty means no body
}

// Invoker issues HTTP calls against a single shared, pooled transport.
// One Invoker is created per process and reused by every worker.
type Invoker struct {
	client  *http.Client
	limiter *rate.Limiter // nil when ProcessWideRatePerSecond is unset
}

// New creates an Invoker with a pooled transport sized per cfg.
func New(cfg Config) *Invoker {
	transport := &http.Transport{
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
	}

	var limiter *rate.Limiter
	if cfg.ProcessWideRatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ProcessWideRatePerSecond), int(cfg.ProcessWideRatePerSecond)+1)
	}

	return &Invoker{
		client: &http.Client{
			Transport: transport,
			// No client-level Timeout: each call supplies its own
			// deadline via context so retries can use independent
			// per-attempt budgets (spec §4.2/§4.7).
		},
		limiter: limiter,
	}
}

// Invoke issues one HTTP call with the given per-attempt deadline.
// Any received HTTP response, including 4xx/5xx, comes back as a
// Response — only connection failures, deadline-exceeded, and malformed
// requests surface as a *TransportError. The invoker never retries.
func (inv *Invoker) Invoke(ctx context.Context, req Request, deadline time.Duration) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if inv.limiter != nil {
		if err := inv.limiter.Wait(callCtx); err != nil {
			return nil, &TransportError{Kind: Timeout, Err: err}
		}
	}

	fullURL, err := buildURL(req.URL, req.Query)
	if err != nil {
		return nil, &TransportError{Kind: RequestInvalid, Err: err}
	}

	var bodyReader io.Reader
	if req.Body != "" {
		bodyReader = bytes.NewReader([]byte(req.Body))
	}

	httpReq, err := http.NewRequestWithContext(callCtx, req.Method, fullURL, bodyReader)
	if err != nil {
		return nil, &TransportError{Kind: RequestInvalid, Err: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := inv.client.Do(httpReq)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, &TransportError{Kind: Timeout, Err: err}
		}
		return nil, &TransportError{Kind: NoResponse, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, &TransportError{Kind: Timeout, Err: err}
		}
		return nil, &TransportError{Kind: NoResponse, Err: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
	}, nil
}

func buildURL(raw string, query map[string]string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse target url: %w", err)
	}
	if len(query) > 0 {
		q := parsed.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		parsed.RawQuery = q.Encode()
	}
	return parsed.String(), nil
}

package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultAPIKeyHeader carries the upstream API key.
	DefaultAPIKeyHeader = "X-Kit-Api-Key"
	// DefaultBaseURL is the primary upstream host.
	DefaultBaseURL = "https://api.kit.com"

	defaultTimeout       = 10 * time.Second
	defaultRetryDelay    = time.Second
	defaultMaxRetryDelay = 10 * time.Second
	maxResponseBytes     = 4 << 20
)

// Config configures a Gateway.
type Config struct {
	Routes        Routes
	APIKey        string
	APIKeyHeader  string
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Request is one logical upstream call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// TolerateNotFound turns "every variant answered 404" into a NotFound result.
	TolerateNotFound bool
}

// Result is a successful (or tolerated not-found) upstream response.
type Result struct {
	Status   int
	Body     json.RawMessage
	NotFound bool
	Variant  Variant
}

// Decode unmarshals the response body into v.
func (r Result) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Attempt records the outcome of one variant within a logical call.
// Status zero means no HTTP response was received.
type Attempt struct {
	Variant Variant
	Status  int
}

func (a Attempt) String() string {
	if a.Status == 0 {
		return fmt.Sprintf("%s %s=transport", a.Variant.URL(), a.Variant.Auth)
	}
	return fmt.Sprintf("%s %s=%d", a.Variant.URL(), a.Variant.Auth, a.Status)
}

func describeAttempts(attempts []Attempt) []string {
	out := make([]string, 0, len(attempts))
	for _, attempt := range attempts {
		out = append(out, attempt.String())
	}
	return out
}

// Gateway hides upstream route, host and auth ambiguity behind Call.
type Gateway struct {
	routes        Routes
	apiKey        string
	apiKeyHeader  string
	maxRetries    int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	client        *http.Client
	log           *slog.Logger
	metrics       gatewayMetrics
	sleep         func(context.Context, time.Duration) error
}

// New constructs a Gateway.
func New(cfg Config) *Gateway {
	if len(cfg.Routes.BaseURLs) == 0 {
		cfg.Routes.BaseURLs = []string{DefaultBaseURL}
	}
	if strings.TrimSpace(cfg.APIKeyHeader) == "" {
		cfg.APIKeyHeader = DefaultAPIKeyHeader
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = defaultMaxRetryDelay
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		routes:        cfg.Routes,
		apiKey:        strings.TrimSpace(cfg.APIKey),
		apiKeyHeader:  cfg.APIKeyHeader,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
		maxRetryDelay: cfg.MaxRetryDelay,
		client:        client,
		log:           log,
		metrics:       newGatewayMetrics(),
		sleep:         sleepContext,
	}
}

// Call tries every request variant for req.Path until one succeeds.
//
// 2xx returns immediately. 429/5xx and transport errors are retried on the
// same variant before moving on. 404 and other 4xx move on to the next
// variant. When every variant fails the most specific failure is returned;
// if only 404s were seen and req.TolerateNotFound is set, a NotFound result
// is returned instead of an error.
func (g *Gateway) Call(ctx context.Context, req Request) (Result, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	var payload []byte
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return Result{}, fmt.Errorf("encode upstream request body: %w", err)
		}
		payload = raw
	}

	ctx, span := startCallSpan(ctx, method, req.Path)
	defer span.End()

	variants := g.routes.Variants(req.Path, g.apiKey != "")
	attempts := make([]Attempt, 0, len(variants))
	var best *StatusError
	var notFound *StatusError

	for i, variant := range variants {
		result, err := g.try(ctx, method, variant, req.Query, payload)
		if err == nil {
			g.metrics.recordCall(ctx, method, "success", i+1)
			span.SetVariant(i, variant)
			if i > 0 {
				g.log.InfoContext(ctx, "upstream call succeeded on fallback variant",
					"method", method, "path", req.Path, "variant", i, "url", variant.URL(), "auth", variant.Auth.String())
			}
			return result, nil
		}

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			statusErr = &StatusError{Method: method, URL: variant.URL(), Err: err}
		}
		attempts = append(attempts, Attempt{Variant: variant, Status: statusErr.Status})

		if ctxErr := ctx.Err(); ctxErr != nil {
			g.metrics.recordCall(ctx, method, "canceled", i+1)
			span.RecordError(ctxErr)
			return Result{}, &StatusError{Method: method, URL: variant.URL(), Err: ctxErr}
		}

		if statusErr.NotFound() {
			if notFound == nil {
				notFound = statusErr
			}
			continue
		}
		if best == nil || specificity(statusErr.Status) > specificity(best.Status) {
			best = statusErr
		}
	}

	if best == nil && notFound != nil && req.TolerateNotFound {
		g.metrics.recordCall(ctx, method, "not_found", len(variants))
		return Result{Status: http.StatusNotFound, NotFound: true}, nil
	}

	failure := best
	if failure == nil {
		failure = notFound
	}
	if failure == nil {
		failure = &StatusError{Method: method, URL: req.Path, Err: errors.New("no request variants configured")}
	}
	g.metrics.recordCall(ctx, method, "failure", len(variants))
	span.RecordError(failure)
	g.log.WarnContext(ctx, "upstream call exhausted all variants",
		"method", method, "path", req.Path, "status", failure.Status, "attempts", describeAttempts(attempts), "error", failure)
	return Result{}, failure
}

// try issues one variant, retrying transient failures in place.
func (g *Gateway) try(ctx context.Context, method string, variant Variant, query url.Values, payload []byte) (Result, error) {
	target := variant.URL()
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		result, retryAfter, err := g.do(ctx, method, variant, target, payload)
		g.metrics.recordAttempt(ctx, method, variant, StatusOf(err), err == nil)
		if err == nil {
			return result, nil
		}

		var statusErr *StatusError
		if !errors.As(err, &statusErr) || !statusErr.Transient() {
			g.log.DebugContext(ctx, "upstream variant rejected", "method", method, "url", target, "auth", variant.Auth.String(), "status", StatusOf(err))
			return Result{}, err
		}
		if attempt >= g.maxRetries || ctx.Err() != nil {
			return Result{}, err
		}

		delay := g.backoff(retryAfter)
		g.log.DebugContext(ctx, "retrying transient upstream failure",
			"method", method, "url", target, "auth", variant.Auth.String(), "status", statusErr.Status, "attempt", attempt+1, "delay", delay)
		if sleepErr := g.sleep(ctx, delay); sleepErr != nil {
			return Result{}, err
		}
	}
}

func (g *Gateway) do(ctx context.Context, method string, variant Variant, target string, payload []byte) (Result, string, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return Result{}, "", fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if variant.Auth == AuthWithKey && g.apiKey != "" {
		req.Header.Set(g.apiKeyHeader, g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Result{}, "", &StatusError{Method: method, URL: variant.URL(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, "", &StatusError{Method: method, URL: variant.URL(), Status: 0, Err: fmt.Errorf("read response: %w", err)}
	}
	normalized := normalizeBody(raw)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{Status: resp.StatusCode, Body: normalized, Variant: variant}, "", nil
	}
	return Result{}, resp.Header.Get("Retry-After"), &StatusError{
		Method: method,
		URL:    variant.URL(),
		Status: resp.StatusCode,
		Body:   truncateBody(string(raw)),
	}
}

// normalizeBody keeps JSON bodies as-is and wraps anything else as {"raw": text}.
func normalizeBody(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("{}")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	wrapped, err := json.Marshal(map[string]string{"raw": string(trimmed)})
	if err != nil {
		return json.RawMessage("{}")
	}
	return wrapped
}

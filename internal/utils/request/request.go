package request

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/songzhibin97/alertflux/internal/observability"
)

// Request is the process wide HTTP client.
// resty's own retry stays disabled: Fetcher and the go-binance quote share Retry.
var Request = NewClient(15 * time.Second)

// NewClient creates a resty client honoring the proxy environment variables.
func NewClient(timeout time.Duration) *resty.Client {
	return resty.New().SetTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment, // 通用适配环境变量
	}).SetTimeout(timeout)
}

// Descriptor describes a single upstream call
type Descriptor struct {
	Method  string
	URL     string
	Query   map[string]string
	Headers map[string]string
	Body    any
}

// Fetcher performs JSON upstream calls through the retry executor
type Fetcher struct {
	client  *resty.Client
	policy  Policy
	logger  *slog.Logger
	metrics *observability.Metrics
}

type Option func(*Fetcher)

// WithPolicy sets the default retry policy.
func WithPolicy(p Policy) Option {
	return func(f *Fetcher) {
		f.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMetrics records attempts and exhausted budgets per host.
func WithMetrics(m *observability.Metrics) Option {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

func NewFetcher(client *resty.Client, opts ...Option) *Fetcher {
	if client == nil {
		client = Request
	}

	f := &Fetcher{
		client: client,
		policy: DefaultPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch calls the upstream with the default policy and decodes the body into out.
func (f *Fetcher) Fetch(ctx context.Context, d Descriptor, out any) error {
	return f.FetchWithPolicy(ctx, d, f.policy, out)
}

// FetchWithPolicy calls the upstream until it returns a decodable success
// response or the attempt budget is spent. Exhaustion yields a *FetchError
// wrapping the last cause.
func (f *Fetcher) FetchWithPolicy(ctx context.Context, d Descriptor, p Policy, out any) error {
	host := hostOf(d.URL)
	attempts := 0

	err := Retry(ctx, p, func(ctx context.Context) error {
		attempts++
		f.metrics.UpstreamAttempt(host)

		err := f.do(ctx, d, out)
		if err != nil {
			f.logger.Debug("upstream attempt failed", "url", d.URL, "attempt", attempts, "err", err)
		}
		return err
	})
	if err != nil {
		f.metrics.UpstreamFailure(host)
		return &FetchError{URL: d.URL, Attempts: attempts, Err: err}
	}
	return nil
}

func (f *Fetcher) do(ctx context.Context, d Descriptor, out any) error {
	req := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json")

	if len(d.Query) > 0 {
		req.SetQueryParams(d.Query)
	}
	if len(d.Headers) > 0 {
		req.SetHeaders(d.Headers)
	}
	if d.Body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(d.Body)
	}

	method := d.Method
	if method == "" {
		method = http.MethodGet
	}

	resp, err := req.Execute(method, d.URL)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}

	if !resp.IsSuccess() {
		return &StatusError{StatusCode: resp.StatusCode(), Body: resp.Body()}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &MalformedError{URL: d.URL, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

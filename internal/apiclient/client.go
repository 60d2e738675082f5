package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/admindash/internal/logger"
	"github.com/wolfeidau/admindash/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/publicsuffix"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 16 << 20

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
	CacheDir  string // empty keeps the HTTP cache in memory
	NoCache   bool
	UserAgent string
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		Timeout:   15 * time.Second,
		UserAgent: "admindash",
	}
}

// Option customises a Client.
type Option func(*Client)

// WithBaseTransport replaces the innermost round tripper, mostly for tests.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// WithBearerToken also sends the stored token as an Authorization header,
// for backends reached without cookies.
func WithBearerToken() Option {
	return func(c *Client) { c.bearer = true }
}

// Client talks to the admin REST backend. The session travels in the
// cookie jar; the token is only sent when WithBearerToken is set.
type Client struct {
	baseURL   *url.URL
	userAgent string
	base      http.RoundTripper
	bearer    bool
	cache     *responseCache

	mu    sync.RWMutex
	jar   *cookiejar.Jar
	token string
	http  *http.Client
}

// New creates a client for cfg.ServerURL.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}

	baseURL, err := url.Parse(strings.TrimRight(cfg.ServerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("server URL must be http or https: %s", cfg.ServerURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	c := &Client{
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		base:      http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}

	jar, err := newJar()
	if err != nil {
		return nil, err
	}
	c.jar = jar

	var transport http.RoundTripper = c.base
	if !cfg.NoCache {
		c.cache = newResponseCache(cfg.CacheDir)
		transport = newCachingTransport(c.cache, transport)
	}
	transport = telemetry.NewMetricsTransport(transport)
	transport = logger.NewRoundTripper(log.Logger, transport)

	c.http = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		Jar:       jar,
	}

	return c, nil
}

// BaseURL returns the server URL requests are resolved against.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// UseCredential installs a previously stored token and cookies.
func (c *Client) UseCredential(token string, cookies []*http.Cookie) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	if len(cookies) > 0 {
		c.jar.SetCookies(c.baseURL, cookies)
	}
}

// Cookies returns the cookies the jar holds for the server.
func (c *Client) Cookies() []*http.Cookie {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.jar.Cookies(c.baseURL)
}

// ResetCredential drops the token and every cookie.
func (c *Client) ResetCredential() {
	c.mu.Lock()
	defer c.mu.Unlock()

	jar, err := newJar()
	if err != nil {
		// cookiejar.New only fails on invalid options
		log.Error().Err(err).Msg("failed to reset cookie jar")
		return
	}
	hc := *c.http
	hc.Jar = jar

	c.token = ""
	c.jar = jar
	c.http = &hc
}

// PurgeCache drops every cached response, so nothing fetched under a
// session outlives it.
func (c *Client) PurgeCache() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Purge()
}

// Do sends body (JSON encoded when non-nil) to path and returns the raw
// response body of a 2xx response. Anything else is returned as *Error.
func (c *Client) Do(ctx context.Context, method, path string, body any) (_ []byte, err error) {
	op := method + " " + path

	ctx, span := telemetry.Tracer().Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer func() { telemetry.End(span, err) }()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Op: op, Message: "failed to encode request", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Op: op, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	telemetry.Inject(req)

	c.mu.RLock()
	token := c.token
	httpClient := c.http
	c.mu.RUnlock()

	if c.bearer && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(op, resp.StatusCode, data)
	}

	return data, nil
}

func (c *Client) resolve(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

func newJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}

package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/condoplane/condoplane/pkg/observability"
	"github.com/condoplane/condoplane/pkg/registry"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the registry's discovery endpoint.
	BaseURL string
	// Token, when set, is sent as a bearer credential on every call.
	Token string
	// Timeout bounds each registry call. Defaults to 10s.
	Timeout time.Duration
	// CacheTTL is how long a discovered URL is served without a fresh
	// registry query. Defaults to 60s.
	CacheTTL time.Duration
	// CacheSize bounds the number of cached service URLs. Defaults to 128.
	CacheSize int
	// HTTPClient overrides the transport, for tests. The default client
	// traces outgoing calls through otelhttp.
	HTTPClient *http.Client
}

// Result is the structured outcome of a best-effort registry call.
type Result struct {
	Success bool
	Error   string
}

func failure(format string, args ...interface{}) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Client talks to the service registry on behalf of one running service.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	cache      *lru.LRU[string, string]
	group      singleflight.Group
	logger     *observability.Logger
	stats      *observability.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithMetrics records cache and heartbeat activity on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.stats = m }
}

// NewClient creates a discovery client.
func NewClient(cfg Config, logger *observability.Logger, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("discovery base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid discovery base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 60 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 128
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		cache:      lru.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RegisterSelf registers this service with the registry. Failure is
// reported, not raised, so the caller decides whether running
// unregistered is fatal.
func (c *Client) RegisterSelf(ctx context.Context, name, serviceURL string, metadata map[string]any) Result {
	if metadata == nil {
		metadata = map[string]any{}
	}
	body := map[string]any{
		"service_name": name,
		"service_url":  serviceURL,
		"status":       registry.StatusUp,
		"metadata":     metadata,
	}

	if err := c.call(ctx, http.MethodPost, c.baseURL+"/register", body, nil); err != nil {
		c.logger.WithError(err).WithField("service", name).Warn("service registration failed")
		return failure("registration failed: %v", err)
	}

	c.logger.WithField("service", name).Info("service registered")
	return Result{Success: true}
}

// Heartbeat refreshes this service's liveness. Failures are logged and
// surfaced but never raised: the loop retries on its next tick.
func (c *Client) Heartbeat(ctx context.Context, name string, status registry.Status) Result {
	if status == "" {
		status = registry.StatusUp
	}
	body := map[string]any{
		"service_name": name,
		"status":       status,
	}

	if err := c.call(ctx, http.MethodPut, c.baseURL+"/heartbeat", body, nil); err != nil {
		c.stats.HeartbeatFailure()
		c.logger.WithError(err).WithField("service", name).Warn("heartbeat failed")
		return failure("heartbeat failed: %v", err)
	}
	return Result{Success: true}
}

// Deregister removes this service from the registry.
func (c *Client) Deregister(ctx context.Context, name string) Result {
	target := c.baseURL + "/?service=" + url.QueryEscape(name)
	if err := c.call(ctx, http.MethodDelete, target, nil, nil); err != nil {
		c.logger.WithError(err).WithField("service", name).Warn("deregistration failed")
		return failure("deregistration failed: %v", err)
	}
	c.cache.Remove(name)
	return Result{Success: true}
}

// Discover resolves name to a URL. A live cache entry answers without a
// registry query; otherwise one query runs (concurrent misses for the
// same name are collapsed) and a successful answer repopulates the
// cache. ok is false when the service is absent or not UP.
func (c *Client) Discover(ctx context.Context, name string) (serviceURL string, ok bool, err error) {
	if cached, hit := c.cache.Get(name); hit {
		c.stats.DiscoveryCacheHit()
		return cached, true, nil
	}
	c.stats.DiscoveryCacheMiss()

	resolved, err, _ := c.group.Do(name, func() (interface{}, error) {
		var payload struct {
			Service registry.ServiceInstance `json:"service"`
		}

		target := c.baseURL + "/?service=" + url.QueryEscape(name)
		if err := c.call(ctx, http.MethodGet, target, nil, &payload); err != nil {
			return "", err
		}
		return payload.Service.URL, nil
	})
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("discovery of %q failed: %w", name, err)
	}

	serviceURL = resolved.(string)
	if serviceURL == "" {
		return "", false, nil
	}
	c.cache.Add(name, serviceURL)
	return serviceURL, true, nil
}

// Apps returns the registry's full legacy discovery document.
func (c *Client) Apps(ctx context.Context) (registry.LegacyDocument, error) {
	var doc registry.LegacyDocument
	if err := c.call(ctx, http.MethodGet, c.baseURL+"/apps", nil, &doc); err != nil {
		return registry.LegacyDocument{}, fmt.Errorf("failed to fetch apps: %w", err)
	}
	return doc, nil
}

// FlushCache drops every cached URL unconditionally.
func (c *Client) FlushCache() {
	c.cache.Purge()
}

// statusError carries a non-2xx registry response.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("registry returned %d: %s", e.code, e.message)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusNotFound
}

// call performs one registry request under the client timeout and
// decodes a 2xx JSON body into out when out is non-nil.
func (c *Client) call(ctx context.Context, method, target string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		if data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); err == nil {
			json.Unmarshal(data, &payload)
		}
		return &statusError{code: resp.StatusCode, message: payload.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

const maxErrorBody = 64 << 10

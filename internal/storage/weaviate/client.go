package weaviate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"bookrec/internal/config"
	"bookrec/internal/metrics"
	"bookrec/internal/storage/shaping"
)

// ErrUpstream wraps every transport, auth or non-2xx failure of the vector service.
var ErrUpstream = errors.New("weaviate upstream error")

// StatusError is a non-2xx reply. It unwraps to ErrUpstream.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

// Client talks to the Weaviate REST and GraphQL endpoints.
// It holds no per-call state and is safe to share between goroutines.
type Client struct {
	cfg     config.WeaviateConfig
	client  *http.Client
	logger  *logrus.Logger
	baseURL string
	once    sync.Once
}

func New(cfg config.WeaviateConfig, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		client: newHTTPClient(cfg),
	}
}

func newHTTPClient(cfg config.WeaviateConfig) *http.Client {
	t := &http.Transport{
		MaxIdleConns:       100,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
		ForceAttemptHTTP2:  true,
	}
	return &http.Client{Transport: t, Timeout: cfg.Timeout}
}

// ClassName is the class every query of this app targets.
func (c *Client) ClassName() string { return c.cfg.ClassName }

func (c *Client) BaseURL() string {
	c.once.Do(func() {
		base := strings.TrimRight(c.cfg.URL, "/")
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			base = "https://" + base
		}
		c.baseURL = base + "/v1"
	})
	return c.baseURL
}

// do sends one request. Transport failures are wrapped in ErrUpstream; the status code is
// returned as is so callers decide what counts as success.
func (c *Client) do(ctx context.Context, method, path, endpoint string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(buf)

		if c.logger.IsLevelEnabled(logrus.DebugLevel) {
			c.logger.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"body":     string(buf),
			}).Debug("weaviate.request")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.EmbeddingKey != "" {
		req.Header.Set("X-OpenAI-Api-Key", c.cfg.EmbeddingKey)
	}

	start := time.Now()
	res, err := c.client.Do(req)
	metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(endpoint).Inc()
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrUpstream, endpoint, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(endpoint).Inc()
		return nil, res.StatusCode, fmt.Errorf("%w: read %s body: %w", ErrUpstream, endpoint, err)
	}

	if c.logger.IsLevelEnabled(logrus.DebugLevel) {
		c.logger.WithFields(logrus.Fields{
			"endpoint":      endpoint,
			"status":        res.StatusCode,
			"response_body": string(data),
		}).Debug("weaviate.response")
	}
	return data, res.StatusCode, nil
}

func (c *Client) expectOK(endpoint string, data []byte, code int) error {
	if code >= 200 && code < 300 {
		return nil
	}
	metrics.UpstreamErrorsTotal.WithLabelValues(endpoint).Inc()
	return &StatusError{Endpoint: endpoint, Code: code, Body: strings.TrimSpace(string(data))}
}

// GraphQL posts a query to /v1/graphql and returns the raw body.
func (c *Client) GraphQL(ctx context.Context, query string) ([]byte, error) {
	data, code, err := c.do(ctx, http.MethodPost, "/graphql", "graphql", map[string]string{"query": query})
	if err != nil {
		return nil, err
	}
	if err := c.expectOK("graphql", data, code); err != nil {
		return nil, err
	}
	return data, nil
}

// Ready checks /v1/.well-known/ready.
func (c *Client) Ready(ctx context.Context) error {
	data, code, err := c.do(ctx, http.MethodGet, "/.well-known/ready", "ready", nil)
	if err != nil {
		return err
	}
	return c.expectOK("ready", data, code)
}

// Count returns the number of objects stored for class.
func (c *Client) Count(ctx context.Context, class string) (int, error) {
	data, err := c.GraphQL(ctx, AggregateCount(class))
	if err != nil {
		return 0, err
	}
	return shaping.ShapeCount(data, class)
}

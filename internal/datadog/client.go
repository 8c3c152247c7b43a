// Package datadog is a thin client for the Datadog v1 API built on the
// ddhttp executor.
package datadog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/policyinsight/ddops/internal/config"
	"github.com/policyinsight/ddops/internal/ddhttp"
	"github.com/policyinsight/ddops/internal/logging"
)

const (
	// KeysURL is where application keys and their scopes are managed.
	KeysURL = "https://app.datadoghq.com/organization-settings/application-keys"
	// APIKeysURL is where API keys are managed.
	APIKeysURL = "https://app.datadoghq.com/organization-settings/api-keys"

	validationTimeout = 10 * time.Second
)

// Client talks to one Datadog site with one pair of keys.
type Client struct {
	baseURL string
	apiKey  string
	appKey  string
	timeout time.Duration
	retries int
	exec    *ddhttp.Executor
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithExecutor replaces the executor built from settings.
func WithExecutor(e *ddhttp.Executor) Option {
	return func(c *Client) { c.exec = e }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a client from settings.
func NewClient(s *config.Settings, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(s.BaseURL(), "/"),
		apiKey:  s.APIKey,
		appKey:  s.AppKey,
		timeout: s.HTTPTimeout,
		retries: s.HTTPRetries,
		logger:  logging.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.exec == nil {
		c.exec = ddhttp.NewExecutor(
			ddhttp.WithMaxBodySize(s.HTTPMaxBodySize),
			ddhttp.WithLogger(c.logger),
		)
	}
	return c
}

// BaseURL returns the API root, e.g. https://api.datadoghq.com/api/v1.
func (c *Client) BaseURL() string { return c.baseURL }

// URL joins path onto the API root.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Headers returns the authentication headers sent with every call.
func (c *Client) Headers() map[string]string {
	return map[string]string{
		"DD-API-KEY":         c.apiKey,
		"DD-APPLICATION-KEY": c.appKey,
		"Content-Type":       "application/json",
	}
}

// Do sends method to path and returns the decoded JSON body.
func (c *Client) Do(ctx context.Context, method, path string, payload any) (any, error) {
	return c.exec.DoJSON(ctx, ddhttp.Request{
		Method:  method,
		URL:     c.URL(path),
		Headers: c.Headers(),
		Payload: payload,
		Timeout: c.timeout,
		Retries: c.retries,
	})
}

package datadog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/policyinsight/ddops/internal/config"
	"github.com/policyinsight/ddops/internal/datadog/fake"
	"github.com/policyinsight/ddops/internal/ddhttp"
	"github.com/policyinsight/ddops/internal/logging"
)

func newTestClient(t *testing.T, apiKey, appKey string) (*fake.API, *Client) {
	t.Helper()
	api := fake.New("good-api", "good-app")
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	exec := ddhttp.NewExecutor(
		ddhttp.WithRetryPolicy(ddhttp.RetryPolicy{
			Backoff: ddhttp.ExponentialBackoff(nil),
			Sleep:   func(context.Context, time.Duration) error { return nil },
		}),
		ddhttp.WithLogger(logging.Discard()),
	)
	settings := &config.Settings{APIKey: apiKey, AppKey: appKey, APIURL: srv.URL, HTTPRetries: 1}
	return api, NewClient(settings, WithExecutor(exec), WithLogger(logging.Discard()))
}

func TestClient_URLAndHeaders(t *testing.T) {
	c := NewClient(&config.Settings{Site: "datadoghq.eu", APIKey: "k", AppKey: "a"})
	if got := c.BaseURL(); got != "https://api.datadoghq.eu/api/v1" {
		t.Errorf("BaseURL() = %q", got)
	}
	if got := c.URL("monitor"); got != "https://api.datadoghq.eu/api/v1/monitor" {
		t.Errorf("URL() = %q", got)
	}
	h := c.Headers()
	if h["DD-API-KEY"] != "k" || h["DD-APPLICATION-KEY"] != "a" || h["Content-Type"] != "application/json" {
		t.Errorf("Headers() = %v", h)
	}
}

func TestClient_DoRoundTrip(t *testing.T) {
	api, c := newTestClient(t, "good-api", "good-app")
	ctx := context.Background()

	created, err := c.Do(ctx, http.MethodPost, "/monitor", map[string]any{"name": "Latency"})
	if err != nil {
		t.Fatalf("Do(POST) unexpected error: %v", err)
	}
	id := created.(map[string]any)["id"]
	if id == nil {
		t.Fatalf("Do(POST) returned no id: %v", created)
	}

	if _, err := c.Do(ctx, http.MethodPut, "/monitor/1001", map[string]any{"name": "Latency v2"}); err != nil {
		t.Fatalf("Do(PUT) unexpected error: %v", err)
	}
	got, err := c.Do(ctx, http.MethodGet, "/monitor/1001", nil)
	if err != nil {
		t.Fatalf("Do(GET) unexpected error: %v", err)
	}
	if name := got.(map[string]any)["name"]; name != "Latency v2" {
		t.Errorf("name = %v, want Latency v2", name)
	}
	if api.Count(fake.Monitors) != 1 {
		t.Errorf("monitors = %d, want 1", api.Count(fake.Monitors))
	}

	_, err = c.Do(ctx, http.MethodGet, "/monitor/999", nil)
	if !ddhttp.IsStatus(err, http.StatusNotFound) {
		t.Errorf("Do(GET missing) error = %v, want 404", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	_, c := newTestClient(t, "good-api", "whatever")
	if err := c.ValidateAPIKey(context.Background()); err != nil {
		t.Errorf("ValidateAPIKey() unexpected error: %v", err)
	}

	_, c = newTestClient(t, "bad-api", "good-app")
	err := c.ValidateAPIKey(context.Background())
	if err == nil {
		t.Fatal("ValidateAPIKey() expected error for a wrong key")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), APIKeysURL) {
		t.Errorf("error should name the status and the API keys page: %v", err)
	}
}

func TestValidateAPIKey_InvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"valid": false}`))
	}))
	defer srv.Close()

	c := NewClient(&config.Settings{APIURL: srv.URL, APIKey: "k"}, WithLogger(logging.Discard()))
	if err := c.ValidateAPIKey(context.Background()); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("ValidateAPIKey() error = %v, want ErrInvalidAPIKey", err)
	}
}

func TestValidateAppKey(t *testing.T) {
	_, c := newTestClient(t, "good-api", "good-app")
	if err := c.ValidateKeys(context.Background()); err != nil {
		t.Errorf("ValidateKeys() unexpected error: %v", err)
	}

	_, c = newTestClient(t, "good-api", "bad-app")
	err := c.ValidateKeys(context.Background())
	if !IsPermission(err) {
		t.Fatalf("ValidateKeys() error = %v, want PermissionError", err)
	}
	msg := err.Error()
	for _, want := range []string{"lacks required permissions", "monitors_read, monitors_write", "slo_read, slo_write", KeysURL} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestQueryMetrics(t *testing.T) {
	api, c := newTestClient(t, "good-api", "good-app")
	api.SetMetrics("trace.http.request", "llm.tokens.total")

	now := time.Now()
	names, err := c.QueryMetrics(context.Background(), now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("QueryMetrics() unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "trace.http.request" {
		t.Errorf("QueryMetrics() = %v", names)
	}

	_, c = newTestClient(t, "good-api", "bad-app")
	if _, err := c.QueryMetrics(context.Background(), now.Add(-time.Hour), now); !ddhttp.IsStatus(err, http.StatusForbidden) {
		t.Errorf("QueryMetrics() error = %v, want 403", err)
	}
}

func TestPermissionError(t *testing.T) {
	apiErr := &ddhttp.APIError{Method: "GET", URL: "u", StatusCode: 403, BodyPreview: `{"errors":["Forbidden"]}`}

	err := AsPermissionError(apiErr, "https://api.datadoghq.com/api/v1/dashboard", ReadScopes)
	want := "403 Forbidden accessing https://api.datadoghq.com/api/v1/dashboard.\n" +
		"Required scopes:\n  - monitors_read\n  - dashboards_read\n  - slo_read\n" +
		"\nUpdate your Application key at:\n" + KeysURL +
		"\n\nResponse details: {\"errors\":[\"Forbidden\"]}"
	if err.Error() != want {
		t.Errorf("Error() =\n%s\nwant\n%s", err.Error(), want)
	}
	if !errors.Is(err, apiErr) {
		t.Error("PermissionError should unwrap to the APIError")
	}

	other := &ddhttp.APIError{StatusCode: 500}
	if got := AsPermissionError(other, "x", ReadScopes); got != error(other) {
		t.Errorf("AsPermissionError(500) = %v, want unchanged", got)
	}
}

package assets

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/policyinsight/ddops/internal/config"
	"github.com/policyinsight/ddops/internal/datadog"
	"github.com/policyinsight/ddops/internal/datadog/fake"
	"github.com/policyinsight/ddops/internal/ddhttp"
	"github.com/policyinsight/ddops/internal/logging"
)

const (
	testAPIKey = "test-api-key"
	testAppKey = "test-app-key"
)

// newFakeDatadog starts an in-memory Datadog API and returns a client wired
// to it. Retries are immediate.
func newFakeDatadog(t *testing.T) (*fake.API, *datadog.Client) {
	t.Helper()
	api := fake.New(testAPIKey, testAppKey)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	settings := &config.Settings{
		APIKey:          testAPIKey,
		AppKey:          testAppKey,
		APIURL:          srv.URL,
		HTTPTimeout:     5 * time.Second,
		HTTPRetries:     2,
		HTTPMaxBodySize: 1 << 20,
		PageSize:        2,
	}
	exec := ddhttp.NewExecutor(
		ddhttp.WithRetryPolicy(ddhttp.RetryPolicy{
			Backoff: ddhttp.ExponentialBackoff(nil),
			Sleep:   func(context.Context, time.Duration) error { return nil },
		}),
		ddhttp.WithLogger(logging.Discard()),
	)
	return api, datadog.NewClient(settings, datadog.WithExecutor(exec), datadog.WithLogger(logging.Discard()))
}

func newTestUpserter(client API) *Upserter {
	return NewUpserter(client, WithPageSize(2), WithUpserterLogger(logging.Discard()))
}

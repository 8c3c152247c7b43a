package datadog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/policyinsight/ddops/internal/ddhttp"
)

// QueryMetrics lists the metric names that reported between from and to.
func (c *Client) QueryMetrics(ctx context.Context, from, to time.Time) ([]string, error) {
	q := url.Values{}
	q.Set("from", strconv.FormatInt(from.Unix(), 10))
	q.Set("to", strconv.FormatInt(to.Unix(), 10))

	body, err := c.exec.DoJSON(ctx, ddhttp.Request{
		Method:  http.MethodGet,
		URL:     c.URL("/metrics?" + q.Encode()),
		Headers: c.Headers(),
		Timeout: validationTimeout,
		Retries: 1,
	})
	if err != nil {
		return nil, err
	}

	obj, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected metrics response: %T", body)
	}
	raw, _ := obj["metrics"].([]any)
	names := make([]string, 0, len(raw))
	for _, m := range raw {
		if s, ok := m.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

package datadog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/policyinsight/ddops/internal/ddhttp"
)

// ErrInvalidAPIKey is returned when /validate reports the key as invalid.
var ErrInvalidAPIKey = errors.New("API key validation failed")

// ValidateAPIKey checks the API key alone against /validate.
func (c *Client) ValidateAPIKey(ctx context.Context) error {
	body, err := c.exec.DoJSON(ctx, ddhttp.Request{
		Method:  http.MethodGet,
		URL:     c.URL("/validate"),
		Headers: map[string]string{"DD-API-KEY": c.apiKey},
		Timeout: validationTimeout,
		Retries: 1,
	})
	if err != nil {
		if ddhttp.IsStatus(err, http.StatusForbidden) {
			return fmt.Errorf("API key is invalid or unauthorized (403). Check your API key at: %s: %w", APIKeysURL, err)
		}
		return fmt.Errorf("%w: %w", ErrInvalidAPIKey, err)
	}

	obj, _ := body.(map[string]any)
	if valid, _ := obj["valid"].(bool); !valid {
		return fmt.Errorf("%w: %v", ErrInvalidAPIKey, body)
	}
	return nil
}

// ValidateAppKey checks the application key with a minimal monitor listing.
// A 403 becomes a PermissionError naming the scopes apply needs.
func (c *Client) ValidateAppKey(ctx context.Context) error {
	_, err := c.exec.DoJSON(ctx, ddhttp.Request{
		Method:  http.MethodGet,
		URL:     c.URL("/monitor?page=0&page_size=1"),
		Headers: c.Headers(),
		Timeout: validationTimeout,
		Retries: 1,
	})
	if err == nil {
		return nil
	}
	if ddhttp.IsStatus(err, http.StatusForbidden) {
		return &PermissionError{Scopes: WriteScopes, Err: err}
	}
	return fmt.Errorf("application key validation failed: %w", err)
}

// ValidateKeys runs both key checks, API key first.
func (c *Client) ValidateKeys(ctx context.Context) error {
	if err := c.ValidateAPIKey(ctx); err != nil {
		return err
	}
	return c.ValidateAppKey(ctx)
}

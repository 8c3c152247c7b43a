package datadog

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/policyinsight/ddops/internal/ddhttp"
)

var (
	// ReadScopes are needed to export assets.
	ReadScopes = []string{"monitors_read", "dashboards_read", "slo_read"}
	// WriteScopes are needed to apply assets.
	WriteScopes = []string{
		"monitors_read, monitors_write",
		"dashboards_read, dashboards_write",
		"slo_read, slo_write",
	}
)

// PermissionError is a 403 translated into the scopes the application key
// is missing.
type PermissionError struct {
	Endpoint string
	Scopes   []string
	Err      error
}

func (e *PermissionError) Error() string {
	var b strings.Builder
	if e.Endpoint != "" {
		fmt.Fprintf(&b, "403 Forbidden accessing %s.\n", e.Endpoint)
	} else {
		b.WriteString("Application key lacks required permissions (403 Forbidden).\n")
	}
	b.WriteString("Required scopes:\n")
	for _, s := range e.Scopes {
		fmt.Fprintf(&b, "  - %s\n", s)
	}
	b.WriteString("\nUpdate your Application key at:\n")
	b.WriteString(KeysURL)

	var apiErr *ddhttp.APIError
	if errors.As(e.Err, &apiErr) && apiErr.BodyPreview != "" {
		b.WriteString("\n\nResponse details: ")
		b.WriteString(apiErr.BodyPreview)
	}
	return b.String()
}

func (e *PermissionError) Unwrap() error { return e.Err }

// AsPermissionError wraps err in a PermissionError when it is a 403 and
// returns it unchanged otherwise.
func AsPermissionError(err error, endpoint string, scopes []string) error {
	if !ddhttp.IsStatus(err, http.StatusForbidden) {
		return err
	}
	return &PermissionError{Endpoint: endpoint, Scopes: scopes, Err: err}
}

// IsPermission reports whether err carries a PermissionError.
func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

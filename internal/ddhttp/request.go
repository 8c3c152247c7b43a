// Package ddhttp is a small JSON-over-HTTP executor: one attempt, a retry
// decorator with exponential backoff, and strict response validation.
package ddhttp

import (
	"context"
	"net/http"
	"time"
)

// Request describes a single logical call. Retries is the retry budget: a
// persistently failing request is attempted Retries+1 times.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Payload any    // JSON-encoded when non-nil
	Body    []byte // sent verbatim when Payload is nil (e.g. multipart uploads)
	Timeout time.Duration
	Retries int
}

// Response is the envelope of one attempt. Body holds the parsed JSON once the
// response has been validated; Raw is the bounded raw body.
type Response struct {
	StatusCode  int
	ContentType string
	Header      http.Header
	Body        any
	Raw         []byte
}

// AttemptFunc performs one attempt of a request. It returns the response
// envelope whatever its status; err is reserved for transport failures.
type AttemptFunc func(ctx context.Context, req Request) (*Response, error)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

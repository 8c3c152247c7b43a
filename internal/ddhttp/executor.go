package ddhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/policyinsight/ddops/internal/logging"
)

const (
	defaultMaxBodySize = 10 * 1024 * 1024 // 10MB
	defaultTimeout     = 20 * time.Second
)

// Executor runs requests through WithRetry and Validate.
type Executor struct {
	client  Doer
	policy  RetryPolicy
	maxBody int64
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithClient sets the underlying HTTP client.
func WithClient(c Doer) Option {
	return func(e *Executor) { e.client = c }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Executor) { e.policy = p }
}

// WithMaxBodySize bounds how much of a response body is read.
func WithMaxBodySize(n int64) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxBody = n
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor builds an Executor with the default retry policy, a plain
// *http.Client and a 10MB body limit unless overridden.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		client:  &http.Client{},
		policy:  DefaultRetryPolicy(),
		maxBody: defaultMaxBodySize,
		logger:  logging.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.policy.OnRetry == nil {
		e.policy.OnRetry = e.logRetry
	}
	return e
}

// Attempt performs a single try of req: no retry, no validation.
func (e *Executor) Attempt(ctx context.Context, req Request) (*Response, error) {
	body := req.Body
	if req.Payload != nil {
		encoded, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, &APIError{Method: req.Method, URL: req.URL, Message: "encoding payload", Err: err}
		}
		body = encoded
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reader)
	if err != nil {
		return nil, &APIError{Method: req.Method, URL: req.URL, Message: "building request", Err: err}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Payload != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody+1))
	if err != nil {
		return nil, err
	}
	out := &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header,
		Raw:         raw,
	}
	if int64(len(raw)) > e.maxBody {
		return nil, &APIError{
			Method:      req.Method,
			URL:         req.URL,
			StatusCode:  out.StatusCode,
			ContentType: out.ContentType,
			Message:     fmt.Sprintf("response body exceeds %d bytes", e.maxBody),
		}
	}
	return out, nil
}

// Do sends req with retries and returns the validated response. Every
// failure is an *APIError.
func (e *Executor) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := WithRetry(e.Attempt, e.policy)(ctx, req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, &APIError{Method: req.Method, URL: req.URL, Err: err}
	}
	if err := Validate(req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// DoJSON is Do returning only the parsed body.
func (e *Executor) DoJSON(ctx context.Context, req Request) (any, error) {
	resp, err := e.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Validate requires a 2xx status, a JSON content-type and a parseable JSON
// body, which it stores in resp.Body. Numbers decode as json.Number.
func Validate(req Request, resp *Response) error {
	text := string(resp.Raw)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Method:      req.Method,
			URL:         req.URL,
			StatusCode:  resp.StatusCode,
			ContentType: resp.ContentType,
			BodyPreview: Preview(text, PreviewLength),
		}
	}

	if !strings.Contains(strings.ToLower(resp.ContentType), "application/json") {
		return &APIError{
			Method:      req.Method,
			URL:         req.URL,
			StatusCode:  resp.StatusCode,
			ContentType: resp.ContentType,
			Message:     fmt.Sprintf("expected JSON response, got %q", resp.ContentType),
			BodyPreview: Preview(text, PreviewLength),
		}
	}

	body, err := decodeJSON(resp.Raw)
	if err != nil {
		return &APIError{
			Method:      req.Method,
			URL:         req.URL,
			StatusCode:  resp.StatusCode,
			ContentType: resp.ContentType,
			Message:     "invalid JSON response",
			Err:         err,
			BodyPreview: Preview(text, PreviewLength),
		}
	}
	resp.Body = body
	return nil
}

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

func (e *Executor) logRetry(req Request, attempt, status int, err error, wait time.Duration) {
	args := []any{"method", req.Method, "url", req.URL, "attempt", attempt + 1, "wait", wait}
	if status != 0 {
		args = append(args, "status", status)
	}
	if err != nil {
		args = append(args, "error", err)
	}
	e.logger.Warn("retrying request", args...)
}

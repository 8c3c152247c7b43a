// Package docapi talks to the document-processing service: PDF upload, job
// status polling, report retrieval and Q&A.
package docapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/policyinsight/ddops/internal/ddhttp"
	"github.com/policyinsight/ddops/internal/logging"
)

// Job statuses reported by the status endpoint.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

var (
	// ErrJobFailed is returned by Wait when the job ends in FAILED.
	ErrJobFailed = errors.New("job failed")
	// ErrPollTimeout is returned by Wait when the job is still running at the deadline.
	ErrPollTimeout = errors.New("status poll timeout")
)

// SamplePDF is the smallest document the upload endpoint accepts.
var SamplePDF = []byte("%PDF-1.4\n1 0 obj\n<<\n/Type /Catalog\n>>\nendobj\nxref\n0 1\ntrailer\n<<\n/Size 1\n>>\nstartxref\n9\n%%EOF")

// Job identifies an uploaded document.
type Job struct {
	ID    string
	Token string
}

// JobStatus is the body of the status endpoint.
type JobStatus struct {
	Status       string
	ErrorMessage string
}

// Client is a document API client.
type Client struct {
	baseURL string
	exec    *ddhttp.Executor
	timeout time.Duration
	retries int
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithExecutor replaces the default executor.
func WithExecutor(e *ddhttp.Executor) Option {
	return func(c *Client) { c.exec = e }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries sets the retry budget of every request. The default is 0.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 10 * time.Second,
		logger:  logging.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.exec == nil {
		c.exec = ddhttp.NewExecutor(ddhttp.WithLogger(c.logger))
	}
	return c
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) documentURL(id, suffix string) string {
	return c.baseURL + "/api/documents/" + url.PathEscape(id) + suffix
}

// Upload posts data as a multipart "file" part and returns the created job.
// Anything other than 202 Accepted is an error.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (*Job, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req := ddhttp.Request{
		Method:  http.MethodPost,
		URL:     c.baseURL + "/api/documents/upload",
		Headers: map[string]string{"Content-Type": mw.FormDataContentType()},
		Body:    buf.Bytes(),
		Timeout: c.timeout,
		Retries: c.retries,
	}
	resp, err := c.exec.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusAccepted {
		return nil, &ddhttp.APIError{
			Method:      req.Method,
			URL:         req.URL,
			StatusCode:  resp.StatusCode,
			ContentType: resp.ContentType,
			Message:     "upload not accepted",
			BodyPreview: ddhttp.Preview(string(resp.Raw), ddhttp.PreviewLength),
		}
	}

	obj, _ := resp.Body.(map[string]any)
	job := &Job{}
	job.ID, _ = obj["jobId"].(string)
	job.Token, _ = obj["token"].(string)
	if job.ID == "" {
		return nil, fmt.Errorf("upload response has no jobId: %s", ddhttp.Preview(string(resp.Raw), ddhttp.PreviewLength))
	}
	return job, nil
}

// Status fetches the current status of job.
func (c *Client) Status(ctx context.Context, job *Job) (*JobStatus, error) {
	body, err := c.get(ctx, job, "/status")
	if err != nil {
		return nil, err
	}
	obj, _ := body.(map[string]any)
	st := &JobStatus{}
	st.Status, _ = obj["status"].(string)
	st.ErrorMessage, _ = obj["errorMessage"].(string)
	return st, nil
}

// Wait polls Status every interval until the job succeeds, fails or timeout
// elapses.
func (c *Client) Wait(ctx context.Context, job *Job, interval, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w for jobId=%s", ErrPollTimeout, job.ID)
		}
		st, err := c.Status(ctx, job)
		if err != nil {
			return fmt.Errorf("polling status of %s: %w", job.ID, err)
		}
		switch st.Status {
		case StatusSuccess:
			return nil
		case StatusFailed:
			msg := st.ErrorMessage
			if msg == "" {
				msg = "Unknown error"
			}
			return fmt.Errorf("%w: %s", ErrJobFailed, msg)
		}
		c.logger.Debug("job still running", "jobId", job.ID, "status", st.Status)
		if err := ddhttp.SleepContext(ctx, interval); err != nil {
			return err
		}
	}
}

// Report fetches the report JSON of a finished job.
func (c *Client) Report(ctx context.Context, job *Job) (map[string]any, error) {
	body, err := c.get(ctx, job, "/report-json")
	if err != nil {
		return nil, err
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected report response: %T", body)
	}
	return obj, nil
}

// Ask posts a question about a document.
func (c *Client) Ask(ctx context.Context, job *Job, question string) (any, error) {
	headers := map[string]string{"Content-Type": "application/json"}
	if job.Token != "" {
		headers["X-Job-Token"] = job.Token
	}
	return c.exec.DoJSON(ctx, ddhttp.Request{
		Method:  http.MethodPost,
		URL:     c.documentURL(job.ID, "/qa"),
		Headers: headers,
		Payload: map[string]string{"question": question},
		Timeout: c.timeout,
		Retries: c.retries,
	})
}

func (c *Client) get(ctx context.Context, job *Job, suffix string) (any, error) {
	return c.exec.DoJSON(ctx, ddhttp.Request{
		Method:  http.MethodGet,
		URL:     c.documentURL(job.ID, suffix),
		Headers: map[string]string{"X-Job-Token": job.Token},
		Timeout: c.timeout,
		Retries: c.retries,
	})
}

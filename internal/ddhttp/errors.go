package ddhttp

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// PreviewLength is the number of characters of a response body kept in errors.
const PreviewLength = 300

// APIError describes a failed request with enough context to diagnose it
// without dumping the whole response body.
type APIError struct {
	Method      string
	URL         string
	StatusCode  int // 0 when no response was received
	ContentType string
	BodyPreview string
	Message     string
	Err         error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.URL)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " -> %d", e.StatusCode)
	}
	if e.ContentType != "" {
		fmt.Fprintf(&b, " (Content-Type: %s)", e.ContentType)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.BodyPreview != "" {
		b.WriteString("\nResponse body preview: ")
		b.WriteString(e.BodyPreview)
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// Preview returns the first n characters of text, with "..." appended when it
// was truncated. It never splits a UTF-8 sequence.
func Preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos] + "..."
		}
		i++
	}
	return text
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, code int) bool {
	return err != nil && StatusCode(err) == code
}

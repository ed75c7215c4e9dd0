package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-vocab-client/internal/envelope"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string // server supplied message, or the status text
	Body       []byte

	sessionExpired bool
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %s: status=%d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Unwrap maps the status onto the sentinels in internal/errors.
func (e *APIError) Unwrap() []error {
	if e == nil {
		return nil
	}
	var out []error
	switch e.StatusCode {
	case http.StatusUnauthorized:
		out = append(out, errs.ErrUnauthorized)
	case http.StatusNotFound:
		out = append(out, errs.ErrNotFound)
	default:
		out = append(out, errs.ErrHTTP)
	}
	if e.sessionExpired {
		out = append(out, errs.ErrSessionExpired)
	}
	return out
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsClientError reports a 4xx response.
func IsClientError(err error) bool {
	code := StatusCode(err)
	return code >= 400 && code < 500
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	msg, ok := envelope.FirstString(body, []string{"errors", "0", "message"}, []string{"message"}, []string{"error"})
	if !ok {
		msg = http.StatusText(status)
	}
	return &APIError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Message:    msg,
		Body:       body,
	}
}

func networkError(method, path string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", method, path, errs.ErrNetwork, err)
}

// IsTransient reports a failure where the server never answered, so the session is left alone.
func IsTransient(err error) bool {
	return errors.Is(err, errs.ErrNetwork) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

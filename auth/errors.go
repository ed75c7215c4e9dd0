package auth

import (
	"errors"

	"github.com/jrsteele09/go-vocab-client/httpclient"
	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
)

// Kind classifies an auth failure the way the UI presents it.
type Kind int

const (
	KindInvalidCredentials Kind = iota + 1
	KindValidation
	KindSessionExpired
	KindNetwork
	KindNotFound
	KindHTTP
	KindInvalidResponse
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindValidation:
		return "validation"
	case KindSessionExpired:
		return "session_expired"
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not_found"
	case KindHTTP:
		return "http"
	case KindInvalidResponse:
		return "invalid_response"
	}
	return "unknown"
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidCredentials:
		return errs.ErrInvalidCredentials
	case KindValidation:
		return errs.ErrValidation
	case KindSessionExpired:
		return errs.ErrSessionExpired
	case KindNetwork:
		return errs.ErrNetwork
	case KindNotFound:
		return errs.ErrNotFound
	case KindInvalidResponse:
		return errs.ErrInvalidResponse
	}
	return errs.ErrHTTP
}

const networkMessage = "Network error. Please check your connection and try again."

// Error is what the auth service returns. Message is safe to show to the user.
type Error struct {
	Op      string
	Kind    Kind
	Message string
	Field   string // first rejected field, validation errors only
	Err     error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return "[" + e.Op + "] " + e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// UserMessage returns the message to show for err.
func UserMessage(err error) string {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, errs.ErrNetwork) {
		return networkMessage
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// classify turns a transport error into an *Error. clientKind is used for 4xx responses.
func classify(op string, err error, clientKind Kind, fallback string) *Error {
	if err == nil {
		return nil
	}
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr
	}

	e := &Error{Op: op, Err: err}
	var apiErr *httpclient.APIError
	switch {
	case errors.As(err, &apiErr):
		e.Message = apiErr.Message
		switch {
		case errors.Is(err, errs.ErrSessionExpired):
			e.Kind = KindSessionExpired
		case apiErr.StatusCode == 404 && clientKind != KindInvalidCredentials:
			e.Kind = KindNotFound
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			e.Kind = clientKind
			if clientKind == KindValidation {
				if field, msg, ok := firstFieldError(apiErr.Body); ok {
					e.Field, e.Message = field, msg
				}
			}
		default:
			e.Kind = KindHTTP
		}
	case errors.Is(err, errs.ErrSessionExpired):
		e.Kind = KindSessionExpired
		e.Message = "Your session has expired. Please log in again."
	case errors.Is(err, errs.ErrNetwork):
		e.Kind = KindNetwork
		e.Message = networkMessage
	case errors.Is(err, errs.ErrInvalidResponse):
		e.Kind = KindInvalidResponse
	default:
		e.Kind = KindHTTP
	}
	if e.Message == "" {
		e.Message = fallback
	}
	return e
}

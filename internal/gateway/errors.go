package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized      = errors.New("authorization failure")
	ErrValidation        = errors.New("request rejected")
	ErrNotFound          = errors.New("resource not found")
	ErrServer            = errors.New("remote service error")
	ErrNetworkTimeout    = errors.New("network timeout")
	ErrUnreachable       = errors.New("remote service unreachable")
	ErrCanceled          = errors.New("request canceled")
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError is a non-2xx response, returned to the caller unmodified.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrValidation:
		return e.Status >= 400 && e.Status < 500 && e.Status != http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrServer:
		return e.Status >= 500
	}
	return false
}

// TransportError is a failure before any response status was received.
type TransportError struct {
	Method string
	Path   string
	Kind   error
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Method, e.Path, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindAuthorization
	KindValidation
	KindNotFound
	KindServer
	KindTimeout
	KindUnreachable
	KindCanceled
	KindMalformed
	KindUnknown
)

var kindNames = map[ErrorKind]string{
	KindNone:          "none",
	KindAuthorization: "authorization",
	KindValidation:    "validation",
	KindNotFound:      "not_found",
	KindServer:        "server",
	KindTimeout:       "timeout",
	KindUnreachable:   "unreachable",
	KindCanceled:      "canceled",
	KindMalformed:     "malformed",
	KindUnknown:       "unknown",
}

func (k ErrorKind) String() string {
	return kindNames[k]
}

// MessageKey is the localization key a UI uses for an inline error message.
func (k ErrorKind) MessageKey() string {
	return "error." + k.String()
}

// Classify maps any error returned through the gateway to the kind a UI reports.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnauthorized):
		return KindAuthorization
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrServer):
		return KindServer
	case errors.Is(err, ErrNetworkTimeout):
		return KindTimeout
	case errors.Is(err, ErrUnreachable):
		return KindUnreachable
	case errors.Is(err, ErrCanceled):
		return KindCanceled
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformed
	}
	return KindUnknown
}

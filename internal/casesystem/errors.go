package casesystem

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FailureKind classifies why a call to the case system failed.
type FailureKind string

const (
	AuthFailure       FailureKind = "auth"
	ValidationFailure FailureKind = "validation"
	ServerFailure     FailureKind = "server"
	NetworkFailure    FailureKind = "network"
	UnknownFailure    FailureKind = "unknown"
)

var (
	// ErrAPIKeyRequired is returned by New when no bearer credential is configured.
	ErrAPIKeyRequired = errors.New("casesystem: API key is required")

	// ErrMalformedResponse is returned when a 2xx body cannot be decoded into the expected shape.
	ErrMalformedResponse = errors.New("casesystem: malformed response")
)

// APIError is a non-2xx answer from the case system.
type APIError struct {
	StatusCode int         `json:"-"`
	Kind       FailureKind `json:"-"`
	Title      string      `json:"title,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("casesystem: %s (status=%d)", e.Title, e.StatusCode)
	}
	if e.Detail != "" {
		return fmt.Sprintf("casesystem: %s (status=%d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("casesystem: http status %d", e.StatusCode)
}

// KindForStatus maps an HTTP status to a failure kind.
func KindForStatus(status int) FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return AuthFailure
	case status >= 400 && status < 500:
		return ValidationFailure
	case status >= 500 && status <= 599:
		return ServerFailure
	default:
		return UnknownFailure
	}
}

// Classify maps any error returned by the client to a failure kind.
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Kind != "" {
			return apiErr.Kind
		}
		return KindForStatus(apiErr.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NetworkFailure
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrMalformedResponse) {
		return UnknownFailure
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NetworkFailure
	}
	return UnknownFailure
}

package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so transports can map it to a status code.
type Kind string

const (
	KindMalformedRequest  Kind = "malformed_request"
	KindInvalidDataURL    Kind = "invalid_data_url"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindPayloadTooLarge   Kind = "payload_too_large"
	KindTranscodeFailed   Kind = "transcode_failed"
	KindInvalidPrompt     Kind = "invalid_prompt"
	KindMissingImage      Kind = "missing_image"
	KindInvalidOption     Kind = "invalid_option"

	KindUpstreamEmptyResult Kind = "upstream_empty_result"
	KindUpstreamTimeout     Kind = "upstream_timeout"
	KindUpstreamAuth        Kind = "upstream_auth_error"
	KindUpstreamRateLimited Kind = "upstream_rate_limited"
	KindUpstreamGeneric     Kind = "upstream_error"
)

// Error is the typed failure returned by the decoding and upstream layers.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error whose status derives from its kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Status: statusFor(kind), Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	e := New(kind, format, args...)
	e.Err = err
	return e
}

// Upstream builds an upstream failure carrying the status reported by the service.
func Upstream(kind Kind, status int, message string, err error) *Error {
	if status < 400 || status > 599 {
		status = statusFor(kind)
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Kind: kind, Status: status, Message: message, Err: err}
}

// IsClientError reports whether kind is a validation failure detected before
// any upstream call.
func IsClientError(kind Kind) bool {
	return statusFor(kind) == http.StatusBadRequest
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUpstreamGeneric for untyped errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUpstreamGeneric
}

// StatusOf maps err to the HTTP status the transport should answer with.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		if e.Status != 0 {
			return e.Status
		}
		return statusFor(e.Kind)
	}
	return http.StatusInternalServerError
}

func statusFor(kind Kind) int {
	switch kind {
	case KindMalformedRequest, KindInvalidDataURL, KindUnsupportedFormat, KindPayloadTooLarge,
		KindTranscodeFailed, KindInvalidPrompt, KindMissingImage, KindInvalidOption:
		return http.StatusBadRequest
	case KindUpstreamAuth:
		return http.StatusUnauthorized
	case KindUpstreamRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamEmptyResult:
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

package backend

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Kind classifies every failure the client can report.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindConnectivity
	KindTimeout
	KindCanceled
	KindAuthentication
	KindAccessDenied
	KindNotFound
	KindBackend
	KindRequestFailed
	KindMalformedResponse
	KindValidation
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindConfiguration:     "configuration",
	KindConnectivity:      "connectivity",
	KindTimeout:           "timeout",
	KindCanceled:          "canceled",
	KindAuthentication:    "authentication",
	KindAccessDenied:      "access_denied",
	KindNotFound:          "not_found",
	KindBackend:           "backend",
	KindRequestFailed:     "request_failed",
	KindMalformedResponse: "malformed_response",
	KindValidation:        "validation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

const unknownBackendError = "Unknown backend error"

// Error is the single error type returned by Client. Kind selects the
// category; the remaining fields carry whatever that category needs.
type Error struct {
	Kind Kind
	// Resource is the human name of what was requested, e.g. "project".
	Resource string
	// Status is the HTTP status code, zero when no response was received.
	Status int
	// Detail is the backend-provided message for KindBackend, or extra
	// context for KindValidation and KindConfiguration.
	Detail string
	// Timeout is the request budget, set for KindTimeout.
	Timeout time.Duration
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConfiguration:
		if e.Detail != "" {
			return e.Detail
		}
		return "backend client is not configured"
	case KindConnectivity:
		return "Cannot reach backend API. Check cluster connectivity."
	case KindTimeout:
		return fmt.Sprintf("Request timed out after %s. Backend may be overloaded.", e.Timeout)
	case KindCanceled:
		return "Request was cancelled before the backend responded."
	case KindAuthentication:
		return "Authentication failed. BOT_TOKEN may be invalid or expired."
	case KindAccessDenied:
		return fmt.Sprintf("Access denied. User does not have permission for this %s.", e.resource())
	case KindNotFound:
		return fmt.Sprintf("%s not found", capitalize(e.resource()))
	case KindBackend:
		detail := e.Detail
		if detail == "" {
			detail = unknownBackendError
		}
		return fmt.Sprintf("Backend API error: %s", detail)
	case KindRequestFailed:
		return fmt.Sprintf("Request failed with status %d", e.Status)
	case KindMalformedResponse:
		return fmt.Sprintf("Backend returned a malformed %s response", e.resource())
	case KindValidation:
		return e.Detail
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "unknown error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) resource() string {
	if e.Resource == "" {
		return "resource"
	}
	return strings.TrimSpace(e.Resource)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// KindOf reports the category of err, or KindUnknown when err is not (and
// does not wrap) a *Error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func configurationError(detail string) *Error {
	return &Error{Kind: KindConfiguration, Detail: detail}
}

func validationError(detail string) *Error {
	return &Error{Kind: KindValidation, Detail: detail}
}

// pathError is a validation failure of a workspace path.
func pathError(detail string) *Error {
	return &Error{Kind: KindValidation, Resource: "path", Detail: detail}
}

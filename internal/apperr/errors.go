package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure in the proxy pipeline
type Kind int

const (
	KindUnexpected Kind = iota
	KindRouting
	KindValidation
	KindUpstreamFetch
	KindTokenNotFound
	KindUpstreamGraphQL
	KindProjectNotFound
)

var kindNames = map[Kind]string{
	KindUnexpected:      "unexpected",
	KindRouting:         "routing",
	KindValidation:      "validation",
	KindUpstreamFetch:   "upstream_fetch",
	KindTokenNotFound:   "token_not_found",
	KindUpstreamGraphQL: "upstream_graphql",
	KindProjectNotFound: "project_not_found",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// StatusCode returns the HTTP status a failure of this kind is answered with
func (k Kind) StatusCode() int {
	switch k {
	case KindRouting, KindProjectNotFound:
		return http.StatusNotFound
	case KindValidation, KindUpstreamGraphQL:
		return http.StatusBadRequest
	case KindUpstreamFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the base error type for the proxy. Message is what the caller
// sees in the response body; Cause is kept for logs and errors.Is/As.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Body, when set, replaces Message as a JSON response body.
	Body []byte
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status for this error
func (e *Error) StatusCode() int {
	return e.Kind.StatusCode()
}

// New creates a new Error
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Wrap wraps an existing error with an Error
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// NotFound returns an error for a path that matches no route
func NotFound() *Error {
	return New(KindRouting, "Not Found")
}

// Validation returns an error for a malformed inbound request
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// UpstreamFetch returns an error for a non-success upstream response
func UpstreamFetch(message string, cause error) *Error {
	return Wrap(KindUpstreamFetch, message, cause)
}

// TokenNotFound returns an error when no extraction strategy located a token
func TokenNotFound(message string, cause error) *Error {
	return Wrap(KindTokenNotFound, message, cause)
}

// UpstreamGraphQL returns an error carrying the upstream GraphQL errors array
func UpstreamGraphQL(errorsJSON []byte) *Error {
	return &Error{
		Kind:    KindUpstreamGraphQL,
		Message: "upstream GraphQL returned errors",
		Body:    errorsJSON,
	}
}

// ProjectNotFound returns an error for a GraphQL response without a project
func ProjectNotFound(message string) *Error {
	return New(KindProjectNotFound, message)
}

// Unexpected wraps any other failure; the cause text is surfaced to the caller
func Unexpected(prefix string, cause error) *Error {
	msg := prefix
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", prefix, cause)
	}
	return Wrap(KindUnexpected, msg, cause)
}

// KindOf extracts the Kind from an error
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnexpected
}

// StatusCode extracts the HTTP status from an error
func StatusCode(err error) int {
	return KindOf(err).StatusCode()
}

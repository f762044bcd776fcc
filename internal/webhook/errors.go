// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package webhook

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidArgument is returned when the receiver is called in a way that breaks its contract.
	// It signals a programming error and is never turned into a client response.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Kind classifies the failures of the pipeline.
//
//go:generate ${TOOLS_BIN}/stringer -type=Kind -trimprefix Kind
type Kind int

const (
	KindInternal Kind = iota
	KindInsecureTransport
	KindMissingOrAmbiguousCredential
	KindNotConfigured
	KindInvalidCredential
	KindBadBody
	KindUnsupportedMethod
	KindDispatchFailure
)

// StatusCode returns the HTTP status associated with k. NotConfigured and InvalidCredential
// share 401 so a caller cannot probe which receiver instances exist.
func (k Kind) StatusCode() int {
	switch k {
	case KindInsecureTransport, KindMissingOrAmbiguousCredential, KindBadBody:
		return http.StatusBadRequest
	case KindNotConfigured, KindInvalidCredential:
		return http.StatusUnauthorized
	case KindUnsupportedMethod:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error is a pipeline failure that maps to exactly one HTTP response.
type Error struct {
	Kind    Kind
	Message string
	// Status overrides the status derived from Kind. Only dispatch failures set it.
	Status int

	err error
}

// NewError returns an Error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError returns an Error of the given kind wrapping err.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

// DispatchError returns a dispatch failure answered with status.
func DispatchError(status int, message string, err error) *Error {
	return &Error{Kind: KindDispatchFailure, Message: message, Status: status, err: err}
}

// BadBody returns a KindBadBody error with a formatted message.
func BadBody(format string, args ...any) *Error {
	return NewError(KindBadBody, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches any *Error of the same kind, so errors.Is(err, NewError(KindBadBody, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// StatusCode returns the HTTP status for e.
func (e *Error) StatusCode() int {
	if e.Kind == KindDispatchFailure && e.Status >= 400 && e.Status <= 599 {
		return e.Status
	}
	return e.Kind.StatusCode()
}

// ErrorResponse converts err into the response sent to the client. Errors that are not an *Error
// become a generic 500 so internal details never leak.
func ErrorResponse(err error) Response {
	var webhookErr *Error
	if !errors.As(err, &webhookErr) {
		webhookErr = WrapError(KindInternal, "error processing webhook message", err)
	}

	status := webhookErr.StatusCode()
	return Response{
		StatusCode: status,
		Body: map[string]any{
			"statusCode": status,
			"error":      http.StatusText(status),
			"message":    webhookErr.Message,
		},
	}
}

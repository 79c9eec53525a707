package query

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind classifies a failed query. All kinds are surfaced the same way: the
// message lands in the session error slot.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindServer
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport_failure"
	case KindServer:
		return "server_error"
	case KindMalformed:
		return "malformed_response"
	default:
		return "unknown"
	}
}

const (
	GenericServerMessage = "Network response was not ok"
	MalformedMessage     = "Invalid response format from server"
	FallbackMessage      = "Failed to get response. Please try again."
)

// Error is returned by Client implementations for every failed query.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (http %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func transportError(cause error) *Error {
	msg := ""
	if cause != nil {
		msg = strings.TrimSpace(cause.Error())
	}
	if msg == "" {
		msg = FallbackMessage
	}
	return &Error{Kind: KindTransport, Message: msg, cause: cause}
}

func serverError(status int, message string) *Error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = GenericServerMessage
	}
	return &Error{Kind: KindServer, Status: status, Message: message}
}

func malformedError(cause error) *Error {
	return &Error{Kind: KindMalformed, Message: MalformedMessage, cause: cause}
}

// NewMalformed builds a MalformedResponse error for callers that validate a
// response themselves.
func NewMalformed(reason string) *Error {
	return malformedError(errors.New(reason))
}

// UserMessage returns the text to show for err: the Message of a query
// Error, otherwise the generic fallback.
func UserMessage(err error) string {
	var qerr *Error
	if errors.As(err, &qerr) && strings.TrimSpace(qerr.Message) != "" {
		return qerr.Message
	}
	return FallbackMessage
}

// KindOf reports the Kind of err, or 0 when err is not a query Error.
func KindOf(err error) Kind {
	var qerr *Error
	if errors.As(err, &qerr) {
		return qerr.Kind
	}
	return 0
}

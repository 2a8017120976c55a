package executor

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies execution failures for exit-code mapping and
// rendering.
type ErrorKind string

const (
	// Unreachable: the host could not be contacted at the transport level.
	Unreachable ErrorKind = "unreachable"
	// AuthRejected: the server refused the session token.
	AuthRejected ErrorKind = "auth-rejected"
	// ClientError: the server rejected the request itself (HTTP 4xx).
	ClientError ErrorKind = "client-error"
	// ServerError: the operation failed on the server (HTTP 5xx).
	ServerError ErrorKind = "server-error"
	// Cancelled: the invocation was interrupted locally.
	Cancelled ErrorKind = "cancelled"
	// StreamDecodeError: the response stream carried a malformed frame.
	StreamDecodeError ErrorKind = "stream-decode-error"
)

// ExecutionError is a classified request failure. Argument values never
// appear in it; the message describes the failure, not the input.
type ExecutionError struct {
	Kind    ErrorKind
	Host    string
	Status  int
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	switch e.Kind {
	case Unreachable:
		return fmt.Sprintf("host %s is unreachable", e.Host)
	case AuthRejected:
		return fmt.Sprintf("session for %s was rejected; run: hostctl auth %s <username>", e.Host, e.Host)
	case ClientError, ServerError:
		if e.Message != "" {
			return fmt.Sprintf("server returned HTTP %d: %s", e.Status, e.Message)
		}
		return fmt.Sprintf("server returned HTTP %d %s", e.Status, http.StatusText(e.Status))
	case Cancelled:
		return "operation cancelled"
	case StreamDecodeError:
		return fmt.Sprintf("malformed response stream: %s", e.Message)
	}
	return e.Message
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// classifyStatus maps a non-2xx response to an ExecutionError kind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return AuthRejected
	case status >= 500:
		return ServerError
	default:
		return ClientError
	}
}

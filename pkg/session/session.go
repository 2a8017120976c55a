// Package session manages authenticated identities for remote hosts.
//
// One Session exists per host, keyed by the case-normalized hostname, and
// is persisted in a durable per-user store (JSON file or OS keyring). The
// Manager drives the login handshake and the per-host state machine:
//
//	Unauthenticated → Authenticating → Authenticated → (Expired | Authenticated)
//
// Tokens are opaque. Expiry is detected reactively: an authenticated
// session whose token the API rejects transitions to Expired, and the
// caller is told to re-authenticate; nothing retries silently.
package session

import (
	"fmt"
	"strings"
	"time"
)

// State is the per-host authentication state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateExpired         State = "expired"
)

// Session is the persisted authenticated identity for one host.
type Session struct {
	// Host is the case-normalized hostname, the identity key.
	Host string `json:"host"`
	// Username that obtained the token.
	Username string `json:"username"`
	// Token is the opaque bearer token. Never logged in cleartext.
	Token string `json:"token"`
	// Default marks the session used when no host is given.
	Default bool `json:"default"`
	// State of the session.
	State State `json:"state"`
	// ObtainedAt is when the token was issued to us.
	ObtainedAt time.Time `json:"obtained_at"`
	// ExpiresHint is advisory only, extracted from the token when it
	// happens to be a JWT with an exp claim. Zero when unknown. Expiry
	// detection stays reactive regardless.
	ExpiresHint time.Time `json:"expires_hint,omitempty"`
}

// Valid reports whether the session is usable for requests.
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && s.State == StateAuthenticated
}

// NormalizeHost canonicalizes a hostname for use as a session key.
// Normalization is idempotent.
func NormalizeHost(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}

// AuthErrorKind classifies authentication failures.
type AuthErrorKind string

const (
	// Rejected: the server refused the credentials or the token.
	Rejected AuthErrorKind = "rejected"
	// Unreachable: the host could not be contacted.
	Unreachable AuthErrorKind = "unreachable"
	// ProtocolMismatch: the host answered with something that is not the
	// expected auth protocol (wrong response shape, incompatible version).
	ProtocolMismatch AuthErrorKind = "protocol-mismatch"
	// NoSession: no usable session exists for the requested host.
	NoSession AuthErrorKind = "no-session"
)

// AuthError is a classified authentication failure. The message never
// contains credentials or tokens.
type AuthError struct {
	Kind    AuthErrorKind
	Host    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Host != "" {
		return fmt.Sprintf("auth %s: %s: %s", e.Host, e.Kind, msg)
	}
	return fmt.Sprintf("auth: %s: %s", e.Kind, msg)
}

func (e *AuthError) Unwrap() error { return e.Err }

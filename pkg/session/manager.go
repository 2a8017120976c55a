package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Manager owns the session store and drives the login handshake. It is the
// only component that mutates persisted sessions; the executor reports
// auth rejections back through MarkExpired. State changes are atomic per
// call: a cancelled invocation never leaves a half-written store.
type Manager struct {
	store    Store
	sessions map[string]*Session

	// HTTPClient used for the auth endpoints.
	HTTPClient *http.Client
	// BaseURL computes the API base for a host; defaults to
	// "https://<host>/api".
	BaseURL func(host string) string
	// MinServerVersion is the oldest server this client speaks to; empty
	// disables the version handshake.
	MinServerVersion string
}

// NewManager loads the store and returns a Manager over it.
func NewManager(store Store) (*Manager, error) {
	sessions, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Manager{
		store:      store,
		sessions:   sessions,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    DefaultBaseURL,
	}, nil
}

// DefaultBaseURL maps a bare hostname to its API base. Hosts that already
// carry a scheme are used as-is (plus the API path), so test servers can
// use plain http.
func DefaultBaseURL(host string) string {
	if strings.Contains(host, "://") {
		return strings.TrimSuffix(host, "/") + "/api"
	}
	return "https://" + host + "/api"
}

// loginRequest is the login endpoint's JSON body.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Hostname string `json:"hostname"`
}

// loginResponse is the expected success shape.
type loginResponse struct {
	Token string `json:"token"`
}

// Login performs the credential handshake for host and, on success,
// persists the session (marked default when it is the first one). On any
// failure the store is left unchanged and the error is classified as
// Rejected, Unreachable, or ProtocolMismatch. The password never appears
// in errors or logs.
func (m *Manager) Login(ctx context.Context, host, username, password string) (*Session, error) {
	host = NormalizeHost(host)
	if host == "" {
		return nil, &AuthError{Kind: ProtocolMismatch, Message: "empty hostname"}
	}

	body, err := json.Marshal(loginRequest{Username: username, Password: password, Hostname: host})
	if err != nil {
		return nil, fmt.Errorf("encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL(host)+"/login", bytes.NewReader(body))
	if err != nil {
		return nil, &AuthError{Kind: ProtocolMismatch, Host: host, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return nil, &AuthError{Kind: Unreachable, Host: host, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Kind: Rejected, Host: host, Message: "invalid credentials"}
	case resp.StatusCode != http.StatusOK:
		return nil, &AuthError{Kind: ProtocolMismatch, Host: host,
			Message: fmt.Sprintf("login endpoint returned HTTP %d", resp.StatusCode)}
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil || lr.Token == "" {
		return nil, &AuthError{Kind: ProtocolMismatch, Host: host,
			Message: "login response carried no token"}
	}

	sess := &Session{
		Host:        host,
		Username:    username,
		Token:       lr.Token,
		State:       StateAuthenticated,
		ObtainedAt:  time.Now(),
		ExpiresHint: expiresHint(lr.Token),
		Default:     !m.hasDefault(),
	}

	m.sessions[host] = sess
	if err := m.store.Save(m.sessions); err != nil {
		delete(m.sessions, host)
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return sess, nil
}

// Resolve returns the session for host, or the default session when host
// is empty. Missing or expired sessions fail with NoSession and a message
// telling the user to authenticate.
func (m *Manager) Resolve(host string) (*Session, error) {
	if host != "" {
		host = NormalizeHost(host)
		sess, ok := m.sessions[host]
		if !ok {
			return nil, &AuthError{Kind: NoSession, Host: host,
				Message: "not authenticated; run: hostctl auth " + host + " <username>"}
		}
		if sess.State == StateExpired {
			return nil, &AuthError{Kind: NoSession, Host: host,
				Message: "session expired; run: hostctl auth " + host + " " + sess.Username}
		}
		return sess, nil
	}

	for _, sess := range m.sessions {
		if sess.Default {
			if sess.State == StateExpired {
				return nil, &AuthError{Kind: NoSession, Host: sess.Host,
					Message: "session expired; run: hostctl auth " + sess.Host + " " + sess.Username}
			}
			return sess, nil
		}
	}
	return nil, &AuthError{Kind: NoSession,
		Message: "no session; run: hostctl auth <host> <username>"}
}

// MarkExpired transitions the host's session to Expired and persists the
// change. Called by the executor when the API rejects the token; callers
// are told to re-authenticate rather than the manager retrying.
func (m *Manager) MarkExpired(host string) error {
	host = NormalizeHost(host)
	sess, ok := m.sessions[host]
	if !ok || sess.State == StateExpired {
		return nil
	}
	sess.State = StateExpired
	return m.store.Save(m.sessions)
}

// SetDefault marks host's session as the default one.
func (m *Manager) SetDefault(host string) error {
	host = NormalizeHost(host)
	target, ok := m.sessions[host]
	if !ok {
		return &AuthError{Kind: NoSession, Host: host, Message: "not authenticated"}
	}
	for _, sess := range m.sessions {
		sess.Default = false
	}
	target.Default = true
	return m.store.Save(m.sessions)
}

// Sessions returns the loaded sessions. The caller must not mutate them.
func (m *Manager) Sessions() map[string]*Session {
	return m.sessions
}

// versionsResponse is the handshake endpoint's shape.
type versionsResponse struct {
	API struct {
		Version string `json:"version"`
	} `json:"api"`
}

// Handshake verifies the session against the server and checks the server
// version against MinServerVersion. An auth rejection marks the session
// expired; a too-old server is a ProtocolMismatch.
func (m *Manager) Handshake(ctx context.Context, sess *Session) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.BaseURL(sess.Host)+"/versions", nil)
	if err != nil {
		return "", &AuthError{Kind: ProtocolMismatch, Host: sess.Host, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return "", &AuthError{Kind: Unreachable, Host: sess.Host, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_ = m.MarkExpired(sess.Host)
		return "", &AuthError{Kind: Rejected, Host: sess.Host, Message: "token rejected"}
	case resp.StatusCode != http.StatusOK:
		return "", &AuthError{Kind: ProtocolMismatch, Host: sess.Host,
			Message: fmt.Sprintf("version endpoint returned HTTP %d", resp.StatusCode)}
	}

	var vr versionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return "", &AuthError{Kind: ProtocolMismatch, Host: sess.Host,
			Message: "unparseable version response"}
	}

	if m.MinServerVersion != "" && versionLess(vr.API.Version, m.MinServerVersion) {
		return vr.API.Version, &AuthError{Kind: ProtocolMismatch, Host: sess.Host,
			Message: fmt.Sprintf("server version %s is older than the required %s", vr.API.Version, m.MinServerVersion)}
	}
	return vr.API.Version, nil
}

// hasDefault reports whether any session is marked default.
func (m *Manager) hasDefault() bool {
	for _, sess := range m.sessions {
		if sess.Default {
			return true
		}
	}
	return false
}

// expiresHint extracts the exp claim when the opaque token happens to be a
// JWT. Inspection only: the signature is never validated and the hint is
// advisory, expiry detection stays reactive.
func expiresHint(token string) time.Time {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return time.Time{}
	}
	if exp, ok := claims["exp"].(float64); ok {
		return time.Unix(int64(exp), 0)
	}
	return time.Time{}
}

// versionLess compares dotted numeric versions, true when a < b. Missing
// segments count as zero; non-numeric segments compare as strings.
func versionLess(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		av, bv := "0", "0"
		if i < len(as) && as[i] != "" {
			av = as[i]
		}
		if i < len(bs) && bs[i] != "" {
			bv = bs[i]
		}
		an, aerr := strconv.Atoi(av)
		bn, berr := strconv.Atoi(bv)
		if aerr == nil && berr == nil {
			if an != bn {
				return an < bn
			}
			continue
		}
		if av != bv {
			return av < bv
		}
	}
	return false
}

// Package executor turns a resolved RequestContext into an HTTP request
// against the remote API and exposes the response as an event stream.
//
// Placement of argument values follows the schema: endpoint template
// parameters land in the path, explicit placements are honoured, and the
// rest go in the query string for GET/DELETE or in a JSON body otherwise.
// Redacted values are never placed in the URL. Non-streaming responses are
// wrapped into a single-event stream so every execution exposes the same
// consumer contract.
package executor

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hostctl/hostctl/internal/resolver"
	"github.com/hostctl/hostctl/pkg/actionsmap"
	"github.com/hostctl/hostctl/pkg/redact"
	"github.com/hostctl/hostctl/pkg/session"
	"github.com/hostctl/hostctl/pkg/stream"
)

// Executor issues API requests for resolved actions.
type Executor struct {
	// HTTPClient used for all requests.
	HTTPClient *http.Client
	// BaseURL computes the API base for a host.
	BaseURL func(host string) string
	// OnAuthRejected is called when the server refuses the session token,
	// so the session manager can mark it expired. Optional.
	OnAuthRejected func(host string)
}

// Config configures an Executor.
type Config struct {
	// Timeout for non-streaming requests. Streaming requests are bounded
	// by their context instead. Defaults to 5 minutes.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// BaseURL computes the API base for a host. Required.
	BaseURL func(host string) string
}

// New creates an Executor.
func New(cfg Config) *Executor {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Executor{
		HTTPClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		BaseURL:    cfg.BaseURL,
	}
}

// Execute performs the action in rc and returns its event stream. For
// streaming actions the stream follows the server push; otherwise it
// carries the single terminal event of the response. A non-nil error means
// the request never produced a stream.
func (e *Executor) Execute(ctx context.Context, rc *resolver.RequestContext) (*stream.Stream, error) {
	host := rc.Session.Host

	if rc.Action.Streams && rc.Action.StreamTransport == actionsmap.TransportWebSocket {
		return e.executeWS(ctx, rc)
	}

	req, err := e.buildRequest(ctx, rc)
	if err != nil {
		return nil, err
	}

	client := e.HTTPClient
	if rc.Action.Streams {
		// Streaming responses outlive any fixed timeout; the context and
		// the stream's Close bound them instead.
		c := *client
		c.Timeout = 0
		client = &c
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &ExecutionError{Kind: Cancelled, Host: host, Err: err}
		}
		return nil, &ExecutionError{Kind: Unreachable, Host: host, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		return nil, e.errorFromResponse(host, rc.Session.Token, resp)
	}

	if rc.Action.Streams {
		dec := stream.NewSSEDecoder(resp.Body)
		return stream.Go(ctx, dec, func() { _ = resp.Body.Close() }), nil
	}

	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExecutionError{Kind: Unreachable, Host: host, Err: err}
	}
	return stream.Single(resultEvent(body)), nil
}

// Follow opens the server's standing operation event stream, used by the
// logs command. The stream runs until the server closes it or the context
// is cancelled.
func (e *Executor) Follow(ctx context.Context, sess *session.Session) (*stream.Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.BaseURL(sess.Host)+"/sse", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+sess.Token)

	client := *e.HTTPClient
	client.Timeout = 0

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &ExecutionError{Kind: Cancelled, Host: sess.Host, Err: err}
		}
		return nil, &ExecutionError{Kind: Unreachable, Host: sess.Host, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		return nil, e.errorFromResponse(sess.Host, sess.Token, resp)
	}

	dec := stream.NewSSEDecoder(resp.Body)
	return stream.Go(ctx, dec, func() { _ = resp.Body.Close() }), nil
}

// executeWS runs a WebSocket-transport streaming action.
func (e *Executor) executeWS(ctx context.Context, rc *resolver.RequestContext) (*stream.Stream, error) {
	host := rc.Session.Host

	target, err := e.buildURL(rc)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+rc.Session.Token)

	reader, err := stream.DialWS(ctx, target, headers)
	if err != nil {
		var he *stream.HandshakeError
		if errors.As(err, &he) {
			kind := classifyStatus(he.StatusCode)
			if kind == AuthRejected && e.OnAuthRejected != nil {
				e.OnAuthRejected(host)
			}
			return nil, &ExecutionError{Kind: kind, Host: host, Status: he.StatusCode}
		}
		if ctx.Err() != nil {
			return nil, &ExecutionError{Kind: Cancelled, Host: host, Err: err}
		}
		return nil, &ExecutionError{Kind: Unreachable, Host: host, Err: err}
	}
	return stream.Go(ctx, reader, func() { _ = reader.Close() }), nil
}

// buildRequest assembles the HTTP request for rc: path substitution, query
// placement, JSON body, and the bearer token.
func (e *Executor) buildRequest(ctx context.Context, rc *resolver.RequestContext) (*http.Request, error) {
	target, err := e.buildURL(rc)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	contentType := ""
	if bodyArgs := e.bodyArguments(rc); len(bodyArgs) > 0 {
		encoded, err := json.Marshal(bodyArgs)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, rc.Action.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+rc.Session.Token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// buildURL substitutes endpoint template parameters and appends query
// placements. Redacted values never reach the URL: the schema parser
// rejects redacted endpoint parameters and query placement excludes them.
func (e *Executor) buildURL(rc *resolver.RequestContext) (string, error) {
	endpoint := rc.Action.Endpoint
	for _, name := range actionsmap.EndpointParams(endpoint) {
		if !rc.Provided(name) {
			return "", &ExecutionError{Kind: ClientError, Host: rc.Session.Host,
				Message: fmt.Sprintf("endpoint parameter %q has no value", name)}
		}
		value := formatValue(rc.Args[name])
		endpoint = strings.ReplaceAll(endpoint, "{"+name+"}", url.PathEscape(value))
	}

	query := url.Values{}
	for _, arg := range rc.Action.Arguments {
		if !rc.Provided(arg.Name) || !e.placedInQuery(rc.Action, arg) {
			continue
		}
		switch v := rc.Args[arg.Name].(type) {
		case []string:
			for _, item := range v {
				query.Add(arg.Name, item)
			}
		default:
			query.Set(arg.Name, formatValue(v))
		}
	}

	target := e.BaseURL(rc.Session.Host) + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target, nil
}

// bodyArguments collects the provided values destined for the JSON body.
func (e *Executor) bodyArguments(rc *resolver.RequestContext) map[string]interface{} {
	out := map[string]interface{}{}
	for _, arg := range rc.Action.Arguments {
		if !rc.Provided(arg.Name) {
			continue
		}
		if e.placedInPath(rc.Action, arg) || e.placedInQuery(rc.Action, arg) {
			continue
		}
		out[arg.Name] = rc.Args[arg.Name]
	}
	return out
}

// placedInPath reports whether arg fills an endpoint template parameter.
func (e *Executor) placedInPath(action *actionsmap.ActionSpec, arg *actionsmap.ArgumentSpec) bool {
	if arg.Place == actionsmap.PlacePath {
		return true
	}
	if arg.Place != actionsmap.PlaceAuto {
		return false
	}
	for _, name := range actionsmap.EndpointParams(action.Endpoint) {
		if name == arg.Name {
			return true
		}
	}
	return false
}

// placedInQuery reports whether arg belongs in the query string. Redacted
// arguments never do; with automatic placement only bodyless methods use
// the query.
func (e *Executor) placedInQuery(action *actionsmap.ActionSpec, arg *actionsmap.ArgumentSpec) bool {
	if arg.Redact || e.placedInPath(action, arg) {
		return false
	}
	switch arg.Place {
	case actionsmap.PlaceQuery:
		return true
	case actionsmap.PlaceAuto:
		return action.Method == http.MethodGet || action.Method == http.MethodDelete
	}
	return false
}

// errorFromResponse classifies a non-2xx response. The body's "error"
// field, when present, becomes the message, with the session token
// scrubbed in case the server echoed the request back.
func (e *Executor) errorFromResponse(host, token string, resp *http.Response) *ExecutionError {
	kind := classifyStatus(resp.StatusCode)
	if kind == AuthRejected && e.OnAuthRejected != nil {
		e.OnAuthRejected(host)
	}

	message := ""
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024)); err == nil {
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			message = redact.String(payload.Error, token)
		}
	}
	return &ExecutionError{Kind: kind, Host: host, Status: resp.StatusCode, Message: message}
}

// resultEvent wraps a plain response body into the terminal event of a
// single-event stream.
func resultEvent(body []byte) stream.Event {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return stream.Event{Type: stream.EventEnd, Time: time.Now()}
	}
	return stream.Event{
		Type:    stream.EventResult,
		Payload: json.RawMessage(trimmed),
		Time:    time.Now(),
	}
}

// formatValue renders a typed argument value for URL placement.
func formatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ",")
	default:
		return fmt.Sprint(t)
	}
}

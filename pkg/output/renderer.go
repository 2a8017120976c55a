// Package output renders execution event streams for the terminal.
//
// A Renderer consumes the ordered event sequence of one action: progress
// and warnings as they arrive, then the terminal result or error. Four
// modes are provided: human (leveled, colored lines), json, yaml, and
// plain (line-oriented key/value output for shell scripting). All rendering
// goes through this boundary; nothing else in the client writes action
// output.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/hostctl/hostctl/pkg/stream"
)

// Renderer consumes one action's event sequence.
type Renderer interface {
	// Event renders one event. Events arrive in stream order and the
	// terminal event is the last call.
	Event(ev stream.Event) error
	// Name returns the mode name ("human", "json", "yaml", "plain").
	Name() string
}

// Modes lists the supported renderer mode names.
func Modes() []string {
	return []string{"human", "json", "yaml", "plain"}
}

// New creates the renderer for mode, writing to w (and warnings to errw
// for the machine-readable modes, keeping stdout parseable).
func New(mode string, w, errw io.Writer) (Renderer, error) {
	switch strings.ToLower(mode) {
	case "", "human":
		return NewHuman(w), nil
	case "json":
		return NewJSON(w, errw), nil
	case "yaml":
		return NewYAML(w, errw), nil
	case "plain":
		return NewPlain(w, errw), nil
	}
	return nil, fmt.Errorf("unknown output mode %q (expected one of: %s)",
		mode, strings.Join(Modes(), ", "))
}

// Consume drains the stream through r and returns the terminal event. A
// stream that ends without a terminal event (early Close) yields a
// synthesized error event so callers always get a classification.
func Consume(s *stream.Stream, r Renderer) (stream.Event, error) {
	var last stream.Event
	seen := false
	for ev := range s.Events() {
		if err := r.Event(ev); err != nil {
			s.Close()
			return last, err
		}
		last = ev
		seen = true
	}
	if !seen || !last.Terminal() {
		return stream.Errorf("stream ended unexpectedly"), nil
	}
	return last, nil
}

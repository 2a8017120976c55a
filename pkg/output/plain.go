package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hostctl/hostctl/pkg/stream"
)

// Plain renders line-oriented output for shell scripting: nested keys are
// prefixed with one "#" per depth level and scalars stand on their own
// line. Warnings go to stderr.
type Plain struct {
	w    io.Writer
	errw io.Writer
}

// NewPlain creates the plain renderer.
func NewPlain(w, errw io.Writer) *Plain {
	return &Plain{w: w, errw: errw}
}

// Name implements Renderer.
func (p *Plain) Name() string { return "plain" }

// Event implements Renderer.
func (p *Plain) Event(ev stream.Event) error {
	switch ev.Type {
	case stream.EventWarning:
		fmt.Fprintln(p.errw, "warning:", ev.Message)
	case stream.EventError:
		fmt.Fprintln(p.errw, "error:", ev.Message)
	case stream.EventResult:
		p.result(ev.Payload)
	}
	return nil
}

func (p *Plain) result(payload json.RawMessage) {
	var data interface{}
	if err := json.Unmarshal(payload, &data); err != nil {
		fmt.Fprintln(p.w, string(payload))
		return
	}
	p.value(data, 1)
}

// value walks the document; depth drives the "#" prefix of key lines.
func (p *Plain) value(v interface{}, depth int) {
	switch t := v.(type) {
	case map[string]interface{}:
		for _, key := range sortedKeys(t) {
			fmt.Fprintf(p.w, "%s%s\n", hashes(depth), key)
			p.value(t[key], depth+1)
		}
	case []interface{}:
		for _, item := range t {
			p.value(item, depth)
		}
	default:
		fmt.Fprintln(p.w, scalar(t))
	}
}

func hashes(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += "#"
	}
	return out
}

package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hostctl/hostctl/pkg/stream"
)

// JSON prints the terminal payload as an indented JSON document on stdout.
// Progress is dropped and warnings go to stderr so stdout stays parseable.
type JSON struct {
	w    io.Writer
	errw io.Writer
}

// NewJSON creates the json renderer.
func NewJSON(w, errw io.Writer) *JSON {
	return &JSON{w: w, errw: errw}
}

// Name implements Renderer.
func (j *JSON) Name() string { return "json" }

// Event implements Renderer.
func (j *JSON) Event(ev stream.Event) error {
	switch ev.Type {
	case stream.EventWarning:
		fmt.Fprintln(j.errw, "warning:", ev.Message)
	case stream.EventResult, stream.EventError:
		return j.document(ev)
	}
	return nil
}

func (j *JSON) document(ev stream.Event) error {
	var data interface{}
	if len(ev.Payload) > 0 && json.Unmarshal(ev.Payload, &data) == nil {
		// payload reused below
	} else if ev.Type == stream.EventError {
		data = map[string]interface{}{"error": ev.Message}
	} else {
		data = string(ev.Payload)
	}

	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/hostctl/hostctl/pkg/stream"
)

// YAML prints the terminal payload as a YAML document on stdout. Warnings
// go to stderr, like the json renderer.
type YAML struct {
	w    io.Writer
	errw io.Writer
}

// NewYAML creates the yaml renderer.
func NewYAML(w, errw io.Writer) *YAML {
	return &YAML{w: w, errw: errw}
}

// Name implements Renderer.
func (y *YAML) Name() string { return "yaml" }

// Event implements Renderer.
func (y *YAML) Event(ev stream.Event) error {
	switch ev.Type {
	case stream.EventWarning:
		fmt.Fprintln(y.errw, "warning:", ev.Message)
	case stream.EventResult, stream.EventError:
		return y.document(ev)
	}
	return nil
}

func (y *YAML) document(ev stream.Event) error {
	var data interface{}
	if len(ev.Payload) > 0 && json.Unmarshal(ev.Payload, &data) == nil {
		// payload reused below
	} else if ev.Type == stream.EventError {
		data = map[string]interface{}{"error": ev.Message}
	} else {
		data = string(ev.Payload)
	}

	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode yaml output: %w", err)
	}
	_, err = y.w.Write(out)
	return err
}

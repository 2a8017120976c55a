package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hostctl/hostctl/pkg/stream"
)

// render feeds evs through r in order.
func render(t *testing.T, r Renderer, evs ...stream.Event) {
	t.Helper()
	for _, ev := range evs {
		if err := r.Event(ev); err != nil {
			t.Fatalf("Event(%s) error = %v", ev.Type, err)
		}
	}
}

func TestNewRendererModes(t *testing.T) {
	var out, errOut bytes.Buffer
	for _, mode := range Modes() {
		r, err := New(mode, &out, &errOut)
		if err != nil {
			t.Errorf("New(%q) error = %v", mode, err)
			continue
		}
		if r.Name() != mode {
			t.Errorf("New(%q).Name() = %q", mode, r.Name())
		}
	}
	if _, err := New("", &out, &errOut); err != nil {
		t.Errorf("New(\"\") should default to human, got %v", err)
	}
	if _, err := New("xml", &out, &errOut); err == nil {
		t.Error("New(xml) should fail")
	}
}

func TestHumanSuppressesHeartbeats(t *testing.T) {
	var out bytes.Buffer
	r := NewHuman(&out)
	render(t, r,
		stream.Event{Type: stream.EventProgress, Message: ""},
		stream.Event{Type: stream.EventProgress, Message: "installing"},
		stream.Event{Type: stream.EventEnd},
	)

	text := out.String()
	if !strings.Contains(text, "installing") {
		t.Errorf("progress line missing: %q", text)
	}
	if strings.Count(text, "\n") != 2 {
		t.Errorf("empty-message progress should be suppressed:\n%s", text)
	}
}

func TestHumanResult(t *testing.T) {
	var out bytes.Buffer
	r := NewHuman(&out)
	render(t, r, stream.Event{
		Type:    stream.EventResult,
		Payload: json.RawMessage(`{"users":[{"name":"alice","quota":512},{"name":"bob"}],"total":2}`),
	})

	text := out.String()
	for _, want := range []string{"users:", "name: alice", "quota: 512", "total: 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("human result missing %q:\n%s", want, text)
		}
	}
}

func TestJSONRenderer(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewJSON(&out, &errOut)
	render(t, r,
		stream.Event{Type: stream.EventProgress, Message: "working"},
		stream.Event{Type: stream.EventWarning, Message: "careful"},
		stream.Event{Type: stream.EventResult, Payload: json.RawMessage(`{"ok":true}`)},
	)

	var doc map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, out.String())
	}
	if doc["ok"] != true {
		t.Errorf("doc = %v", doc)
	}
	if !strings.Contains(errOut.String(), "careful") {
		t.Errorf("warning should go to stderr, got %q", errOut.String())
	}
	if strings.Contains(out.String(), "working") {
		t.Error("progress must not pollute JSON stdout")
	}
}

func TestJSONRendererError(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewJSON(&out, &errOut)
	render(t, r, stream.Event{Type: stream.EventError, Message: "disk full"})

	var doc map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("stdout is not JSON: %v", err)
	}
	if doc["error"] != "disk full" {
		t.Errorf("doc = %v", doc)
	}
}

func TestPlainRenderer(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewPlain(&out, &errOut)
	render(t, r, stream.Event{
		Type:    stream.EventResult,
		Payload: json.RawMessage(`{"domains":{"example.org":{"certificate":"valid"}},"count":1}`),
	})

	text := out.String()
	for _, want := range []string{"#count\n1\n", "#domains\n##example.org\n###certificate\nvalid\n"} {
		if !strings.Contains(text, want) {
			t.Errorf("plain output missing %q:\n%s", want, text)
		}
	}
}

func TestYAMLRenderer(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewYAML(&out, &errOut)
	render(t, r, stream.Event{
		Type:    stream.EventResult,
		Payload: json.RawMessage(`{"name":"alice","quota":512}`),
	})

	text := out.String()
	if !strings.Contains(text, "name: alice") || !strings.Contains(text, "quota: 512") {
		t.Errorf("yaml output = %q", text)
	}
}

func TestConsume(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewJSON(&out, &errOut)

	final, err := Consume(stream.Single(stream.Event{
		Type:    stream.EventResult,
		Payload: json.RawMessage(`{}`),
	}), r)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if final.Type != stream.EventResult {
		t.Errorf("final = %s, want result", final.Type)
	}
}

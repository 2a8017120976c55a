package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/pterm/pterm"

	"github.com/hostctl/hostctl/pkg/stream"
)

// Human renders leveled, colored lines via pterm. Heartbeats and
// empty-message progress events are suppressed.
type Human struct {
	w        io.Writer
	info     pterm.PrefixPrinter
	warning  pterm.PrefixPrinter
	errorP   pterm.PrefixPrinter
	successP pterm.PrefixPrinter
}

// NewHuman creates the human renderer.
func NewHuman(w io.Writer) *Human {
	return &Human{
		w:        w,
		info:     *pterm.Info.WithWriter(w),
		warning:  *pterm.Warning.WithWriter(w),
		errorP:   *pterm.Error.WithWriter(w),
		successP: *pterm.Success.WithWriter(w),
	}
}

// Name implements Renderer.
func (h *Human) Name() string { return "human" }

// Event implements Renderer.
func (h *Human) Event(ev stream.Event) error {
	switch ev.Type {
	case stream.EventProgress:
		if ev.Message != "" {
			h.info.Println(ev.Message)
		}
	case stream.EventWarning:
		h.warning.Println(ev.Message)
	case stream.EventError:
		if ev.Message != "" {
			h.errorP.Println(ev.Message)
		} else {
			h.errorP.Println("operation failed")
		}
	case stream.EventResult:
		h.result(ev.Payload)
	case stream.EventEnd:
		h.successP.Println("done")
	}
	return nil
}

// result prints the payload as indented key/value lines, or verbatim when
// it is not a JSON document.
func (h *Human) result(payload json.RawMessage) {
	var data interface{}
	if err := json.Unmarshal(payload, &data); err != nil {
		fmt.Fprintln(h.w, string(payload))
		return
	}
	h.value(data, 0)
}

func (h *Human) value(v interface{}, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	switch t := v.(type) {
	case map[string]interface{}:
		for _, key := range sortedKeys(t) {
			switch t[key].(type) {
			case map[string]interface{}, []interface{}:
				fmt.Fprintf(h.w, "%s%s:\n", indent, key)
				h.value(t[key], depth+1)
			default:
				fmt.Fprintf(h.w, "%s%s: %s\n", indent, key, scalar(t[key]))
			}
		}
	case []interface{}:
		for _, item := range t {
			switch item.(type) {
			case map[string]interface{}, []interface{}:
				fmt.Fprintf(h.w, "%s-\n", indent)
				h.value(item, depth+1)
			default:
				fmt.Fprintf(h.w, "%s- %s\n", indent, scalar(item))
			}
		}
	default:
		fmt.Fprintf(h.w, "%s%s\n", indent, scalar(t))
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; render integers without the
		// trailing ".0".
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

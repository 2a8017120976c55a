// Package actionsmap loads and validates the actions-map schema document
// that describes every remote action the server exposes.
//
// The actions map is a declarative document (YAML or JSON) organising
// actions into categories and optional subcategories. Each action names an
// HTTP method, an endpoint template, and a typed argument list. The package
// parses the document into an immutable ActionTree that the resolver and
// executor dispatch against; no reflection or code generation is involved.
//
// Loading is all-or-nothing: any structural violation fails with a
// SchemaError carrying the offending path, and no partially usable tree is
// ever returned.
package actionsmap

import (
	"fmt"
	"strings"
)

// Kind is the declared type of an argument value.
type Kind string

const (
	KindString   Kind = "string"
	KindInteger  Kind = "integer"
	KindBoolean  Kind = "boolean"
	KindEnum     Kind = "enum"
	KindPassword Kind = "password"
	KindPath     Kind = "path"
)

// knownKinds lists every kind the parser accepts.
var knownKinds = map[Kind]bool{
	KindString:   true,
	KindInteger:  true,
	KindBoolean:  true,
	KindEnum:     true,
	KindPassword: true,
	KindPath:     true,
}

// Placement says where a resolved argument value goes in the HTTP request.
type Placement string

const (
	PlaceAuto  Placement = ""
	PlacePath  Placement = "path"
	PlaceQuery Placement = "query"
	PlaceBody  Placement = "body"
)

// Transport selects the wire protocol for streaming actions.
type Transport string

const (
	TransportSSE       Transport = "sse"
	TransportWebSocket Transport = "websocket"
)

// ArgumentSpec describes one argument of an action.
type ArgumentSpec struct {
	// Name is the argument name as declared in the schema.
	Name string
	// Kind is the declared value type.
	Kind Kind
	// Positional arguments consume leading tokens in declared order;
	// the rest are named --flags.
	Positional bool
	// Required arguments must be supplied (or prompted for interactively).
	Required bool
	// Default fills the argument when omitted. Never set on required
	// arguments; the parser rejects that combination.
	Default string
	// HasDefault distinguishes an explicit empty default from no default.
	HasDefault bool
	// List arguments accumulate repeated flag occurrences in encounter order.
	List bool
	// Redact marks credential material: the value is never echoed, logged,
	// or included in diagnostics.
	Redact bool
	// Choices enumerates the allowed values for enum arguments.
	Choices []string
	// Help is the human-readable description shown in usage and prompts.
	Help string
	// Place overrides where the value lands in the request. When empty the
	// executor infers it: endpoint template parameters go in the path,
	// everything else in the query for GET/DELETE and the body otherwise.
	Place Placement
}

// ActionSpec is one invocable remote operation. Immutable once loaded.
type ActionSpec struct {
	// Path is the fully qualified dotted name, e.g. "user.create" or
	// "domain.cert.renew".
	Path string
	// Method is the HTTP method.
	Method string
	// Endpoint is the endpoint template relative to the API base,
	// e.g. "/users/{username}".
	Endpoint string
	// Help is the one-line description.
	Help string
	// Streams marks actions whose response is a server-push event stream.
	Streams bool
	// StreamTransport selects the stream framing; defaults to SSE.
	StreamTransport Transport
	// Arguments in declared order.
	Arguments []*ArgumentSpec
}

// Argument returns the argument with the given name, or nil.
func (a *ActionSpec) Argument(name string) *ArgumentSpec {
	for _, arg := range a.Arguments {
		if arg.Name == name {
			return arg
		}
	}
	return nil
}

// Positionals returns the positional arguments in declared order.
func (a *ActionSpec) Positionals() []*ArgumentSpec {
	var out []*ArgumentSpec
	for _, arg := range a.Arguments {
		if arg.Positional {
			out = append(out, arg)
		}
	}
	return out
}

// Subcategory groups actions one level below a category.
type Subcategory struct {
	Name    string
	Help    string
	Actions []*ActionSpec

	actionsByName map[string]*ActionSpec
}

// Action returns the named action, or nil.
func (s *Subcategory) Action(name string) *ActionSpec {
	return s.actionsByName[name]
}

// Category is the top level of the action hierarchy. A category holds
// actions directly and may hold subcategories; action and subcategory names
// share one sibling namespace.
type Category struct {
	Name          string
	Help          string
	Actions       []*ActionSpec
	Subcategories []*Subcategory

	actionsByName map[string]*ActionSpec
	subsByName    map[string]*Subcategory
}

// Action returns the named direct action, or nil.
func (c *Category) Action(name string) *ActionSpec {
	return c.actionsByName[name]
}

// Subcategory returns the named subcategory, or nil.
func (c *Category) Subcategory(name string) *Subcategory {
	return c.subsByName[name]
}

// ActionTree is the fully validated action hierarchy. It is built once per
// process by Load or Parse and read-only thereafter; command resolution
// never mutates it. Insertion order follows document order so help output
// matches the schema author's intent.
type ActionTree struct {
	// Version is the schema document version.
	Version int
	// Categories in document order.
	Categories []*Category

	catsByName map[string]*Category
}

// Category returns the named category, or nil.
func (t *ActionTree) Category(name string) *Category {
	return t.catsByName[name]
}

// ActionCount returns the total number of actions in the tree.
func (t *ActionTree) ActionCount() int {
	n := 0
	for _, c := range t.Categories {
		n += len(c.Actions)
		for _, s := range c.Subcategories {
			n += len(s.Actions)
		}
	}
	return n
}

// Lookup returns the action at the given dotted path, or nil.
func (t *ActionTree) Lookup(path string) *ActionSpec {
	parts := strings.Split(path, ".")
	cat := t.Category(parts[0])
	if cat == nil {
		return nil
	}
	switch len(parts) {
	case 2:
		return cat.Action(parts[1])
	case 3:
		sub := cat.Subcategory(parts[1])
		if sub == nil {
			return nil
		}
		return sub.Action(parts[2])
	default:
		return nil
	}
}

// SchemaError reports a structural violation in the actions-map document.
// Path names the offending category, action, or argument in dotted form.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("actions map: %s", e.Reason)
	}
	return fmt.Sprintf("actions map: %s: %s", e.Path, e.Reason)
}

func schemaErrorf(path, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

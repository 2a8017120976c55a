package actionsmap

import (
	"reflect"
	"strings"
	"testing"
)

const sampleDoc = `
version: 1
categories:
  user:
    help: Manage users
    actions:
      list:
        help: List users
        method: GET
        endpoint: /users
      create:
        help: Create a user
        method: POST
        endpoint: /users
        arguments:
          username:
            positional: true
            required: true
          password:
            type: password
            required: true
          quota:
            type: integer
            default: "0"
  domain:
    help: Manage domains
    actions:
      add:
        method: POST
        endpoint: /domains
        stream: true
        arguments:
          domain:
            positional: true
            required: true
    subcategories:
      cert:
        help: Certificates
        actions:
          renew:
            method: POST
            endpoint: /domains/{domain}/cert/renew
            stream: true
            arguments:
              domain:
                positional: true
                required: true
              force:
                type: boolean
`

func TestParseSample(t *testing.T) {
	tree, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if tree.Version != 1 {
		t.Errorf("Version = %d, want 1", tree.Version)
	}
	if got := tree.ActionCount(); got != 4 {
		t.Errorf("ActionCount() = %d, want 4", got)
	}

	action := tree.Lookup("user.create")
	if action == nil {
		t.Fatal("Lookup(user.create) = nil")
	}
	if action.Method != "POST" || action.Endpoint != "/users" {
		t.Errorf("user.create = %s %s, want POST /users", action.Method, action.Endpoint)
	}

	pw := action.Argument("password")
	if pw == nil || !pw.Redact {
		t.Error("password argument should be redacted")
	}

	quota := action.Argument("quota")
	if quota == nil || !quota.HasDefault || quota.Default != "0" {
		t.Errorf("quota argument default not carried: %+v", quota)
	}

	renew := tree.Lookup("domain.cert.renew")
	if renew == nil {
		t.Fatal("Lookup(domain.cert.renew) = nil")
	}
	if !renew.Streams {
		t.Error("domain.cert.renew should stream")
	}
	if renew.StreamTransport != TransportSSE {
		t.Errorf("StreamTransport = %q, want sse default", renew.StreamTransport)
	}
}

func TestParsePreservesDocumentOrder(t *testing.T) {
	tree, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var cats []string
	for _, c := range tree.Categories {
		cats = append(cats, c.Name)
	}
	if want := []string{"user", "domain"}; !reflect.DeepEqual(cats, want) {
		t.Errorf("category order = %v, want %v", cats, want)
	}

	var actions []string
	for _, a := range tree.Category("user").Actions {
		actions = append(actions, a.Path)
	}
	if want := []string{"user.list", "user.create"}; !reflect.DeepEqual(actions, want) {
		t.Errorf("action order = %v, want %v", actions, want)
	}
}

func TestParseDeterministic(t *testing.T) {
	first, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	second, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if first.ActionCount() != second.ActionCount() {
		t.Fatalf("action counts differ: %d vs %d", first.ActionCount(), second.ActionCount())
	}
	for i, c := range first.Categories {
		if second.Categories[i].Name != c.Name {
			t.Errorf("category %d differs: %s vs %s", i, c.Name, second.Categories[i].Name)
		}
	}
}

func TestParseViolations(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantPath string
	}{
		{
			name: "duplicate sibling action and subcategory",
			doc: `
categories:
  domain:
    actions:
      cert:
        method: GET
        endpoint: /x
    subcategories:
      cert:
        actions: {}
`,
			wantPath: "domain.cert",
		},
		{
			name: "unknown argument type",
			doc: `
categories:
  user:
    actions:
      create:
        method: POST
        endpoint: /users
        arguments:
          age:
            type: float
`,
			wantPath: "user.create.age",
		},
		{
			name: "required with default",
			doc: `
categories:
  user:
    actions:
      create:
        method: POST
        endpoint: /users
        arguments:
          name:
            required: true
            default: bob
`,
			wantPath: "user.create.name",
		},
		{
			name: "enum without choices",
			doc: `
categories:
  user:
    actions:
      create:
        method: POST
        endpoint: /users
        arguments:
          role:
            type: enum
`,
			wantPath: "user.create.role",
		},
		{
			name: "missing endpoint",
			doc: `
categories:
  user:
    actions:
      list:
        method: GET
`,
			wantPath: "user.list",
		},
		{
			name: "unsupported method",
			doc: `
categories:
  user:
    actions:
      list:
        method: TRACE
        endpoint: /users
`,
			wantPath: "user.list",
		},
		{
			name: "endpoint parameter without argument",
			doc: `
categories:
  user:
    actions:
      info:
        method: GET
        endpoint: /users/{username}
`,
			wantPath: "user.info",
		},
		{
			name: "redacted endpoint parameter",
			doc: `
categories:
  auth:
    actions:
      reset:
        method: POST
        endpoint: /reset/{token}
        arguments:
          token:
            type: password
            positional: true
            required: true
`,
			wantPath: "auth.reset",
		},
		{
			name: "redacted argument placed in the path",
			doc: `
categories:
  user:
    actions:
      create:
        method: POST
        endpoint: /users
        arguments:
          secret:
            redact: true
            in: path
`,
			wantPath: "user.create.secret",
		},
		{
			name: "positional list",
			doc: `
categories:
  user:
    actions:
      create:
        method: POST
        endpoint: /users
        arguments:
          groups:
            positional: true
            list: true
`,
			wantPath: "user.create.groups",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse([]byte(tt.doc))
			if tree != nil {
				t.Fatal("Parse() returned a tree for an invalid document")
			}
			schemaErr, ok := err.(*SchemaError)
			if !ok {
				t.Fatalf("Parse() error = %v, want *SchemaError", err)
			}
			if schemaErr.Path != tt.wantPath {
				t.Errorf("SchemaError.Path = %q, want %q", schemaErr.Path, tt.wantPath)
			}
		})
	}
}

func TestParseEmptyValueMapping(t *testing.T) {
	// A boolean key with no value must parse as an empty mapping.
	doc := `
categories:
  service:
    actions:
      restart:
        method: POST
        endpoint: /restart
        arguments:
          force:
`
	tree, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	arg := tree.Lookup("service.restart").Argument("force")
	if arg == nil || arg.Kind != KindString {
		t.Errorf("empty argument mapping should default to string, got %+v", arg)
	}
}

func TestEndpointParams(t *testing.T) {
	got := EndpointParams("/domains/{domain}/cert/{kind}")
	if want := []string{"domain", "kind"}; !reflect.DeepEqual(got, want) {
		t.Errorf("EndpointParams = %v, want %v", got, want)
	}
	if params := EndpointParams("/users"); len(params) != 0 {
		t.Errorf("EndpointParams(/users) = %v, want empty", params)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, doc := range []string{"", "42", "- a\n- b", "categories: []"} {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", strings.TrimSpace(doc))
		}
	}
}

package actionsmap

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// FromOpenAPI converts an OpenAPI 3.x document into an ActionTree, for
// servers that publish an OpenAPI spec instead of a native actions map.
// The first tag of an operation becomes its category (falling back to the
// first path segment); the operation ID becomes the action name. Path and
// query parameters and JSON request-body properties become arguments.
//
// Conversion applies the same validation as Parse: the result is a fully
// checked tree or a SchemaError.
func FromOpenAPI(ctx context.Context, data []byte) (*ActionTree, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("not an OpenAPI document: %v", err)}
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("OpenAPI validation failed: %v", err)}
	}

	tree := &ActionTree{Version: 1, catsByName: make(map[string]*Category)}

	paths := make([]string, 0, doc.Paths.Len())
	for p := range doc.Paths.Map() {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		item := doc.Paths.Value(p)
		for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			if err := addOpenAPIOperation(tree, method, p, op); err != nil {
				return nil, err
			}
		}
	}

	if len(tree.Categories) == 0 {
		return nil, &SchemaError{Reason: "OpenAPI document declares no operations"}
	}
	return tree, nil
}

func addOpenAPIOperation(tree *ActionTree, method, path string, op *openapi3.Operation) error {
	catName := ""
	if len(op.Tags) > 0 {
		catName = commandName(op.Tags[0])
	} else {
		for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
			if seg != "" && !strings.HasPrefix(seg, "{") {
				catName = commandName(seg)
				break
			}
		}
	}
	if catName == "" {
		return schemaErrorf(path, "operation has neither tags nor a literal path segment")
	}

	actionName := commandName(op.OperationID)
	if actionName == "" {
		actionName = strings.ToLower(method)
	}
	// Operation IDs commonly repeat the tag ("userList"); strip the prefix
	// so commands read "user list" rather than "user user-list".
	actionName = strings.TrimPrefix(actionName, catName+"-")

	actionPath := catName + "." + actionName
	spec := &ActionSpec{
		Path:            actionPath,
		Method:          method,
		Endpoint:        path,
		Help:            op.Summary,
		StreamTransport: TransportSSE,
	}
	if streams, ok := op.Extensions["x-cli-stream"].(bool); ok {
		spec.Streams = streams
	} else {
		spec.Streams = respondsWithEventStream(op)
	}

	for _, ref := range op.Parameters {
		p := ref.Value
		if p == nil || (p.In != openapi3.ParameterInPath && p.In != openapi3.ParameterInQuery) {
			continue
		}
		arg := &ArgumentSpec{
			Name:       p.Name,
			Kind:       schemaKind(p.Schema),
			Required:   p.Required,
			Positional: p.In == openapi3.ParameterInPath,
			Help:       p.Description,
			Place:      Placement(p.In),
		}
		if p.Schema != nil && p.Schema.Value != nil && p.Schema.Value.Format == "password" {
			arg.Kind = KindPassword
			arg.Redact = true
		}
		// Same rule as the native parser: no secrets in the URL.
		if arg.Redact && p.In == openapi3.ParameterInPath {
			return schemaErrorf(actionPath, "path parameter %q is redacted and cannot be placed in the URL", p.Name)
		}
		fillEnum(arg, p.Schema)
		spec.Arguments = append(spec.Arguments, arg)
	}

	if body := jsonBodySchema(op); body != nil {
		required := make(map[string]bool, len(body.Required))
		for _, name := range body.Required {
			required[name] = true
		}
		names := make([]string, 0, len(body.Properties))
		for name := range body.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			prop := body.Properties[name]
			arg := &ArgumentSpec{
				Name:     name,
				Kind:     schemaKind(prop),
				Required: required[name],
				Place:    PlaceBody,
			}
			if prop != nil && prop.Value != nil {
				arg.Help = prop.Value.Description
				if prop.Value.Default != nil {
					arg.HasDefault = !arg.Required
					arg.Default = fmt.Sprintf("%v", prop.Value.Default)
				}
				if prop.Value.Format == "password" {
					arg.Kind = KindPassword
					arg.Redact = true
				}
			}
			fillEnum(arg, prop)
			spec.Arguments = append(spec.Arguments, arg)
		}
	}

	cat := tree.catsByName[catName]
	if cat == nil {
		cat = &Category{
			Name:          catName,
			actionsByName: make(map[string]*ActionSpec),
			subsByName:    make(map[string]*Subcategory),
		}
		tree.Categories = append(tree.Categories, cat)
		tree.catsByName[catName] = cat
	}
	if cat.actionsByName[actionName] != nil {
		return schemaErrorf(actionPath, "duplicate sibling name")
	}
	cat.Actions = append(cat.Actions, spec)
	cat.actionsByName[actionName] = spec
	return nil
}

func jsonBodySchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil {
		return nil
	}
	return media.Schema.Value
}

func respondsWithEventStream(op *openapi3.Operation) bool {
	if op.Responses == nil {
		return false
	}
	for _, ref := range op.Responses.Map() {
		if ref.Value == nil {
			continue
		}
		if ref.Value.Content.Get("text/event-stream") != nil {
			return true
		}
	}
	return false
}

func schemaKind(ref *openapi3.SchemaRef) Kind {
	if ref == nil || ref.Value == nil || ref.Value.Type == nil {
		return KindString
	}
	if len(ref.Value.Enum) > 0 {
		return KindEnum
	}
	switch {
	case ref.Value.Type.Is(openapi3.TypeInteger):
		return KindInteger
	case ref.Value.Type.Is(openapi3.TypeBoolean):
		return KindBoolean
	default:
		return KindString
	}
}

func fillEnum(arg *ArgumentSpec, ref *openapi3.SchemaRef) {
	if ref == nil || ref.Value == nil || len(ref.Value.Enum) == 0 {
		return
	}
	arg.Kind = KindEnum
	for _, v := range ref.Value.Enum {
		arg.Choices = append(arg.Choices, fmt.Sprintf("%v", v))
	}
}

// commandName normalises a tag or operation ID into a command token:
// kebab-case, lowercase.
func commandName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, " ", "-")

	var b strings.Builder
	prevUpper := false
	for i, r := range s {
		upper := r >= 'A' && r <= 'Z'
		if i > 0 && upper && !prevUpper {
			b.WriteRune('-')
		}
		b.WriteRune(r)
		prevUpper = upper
	}
	return strings.ToLower(b.String())
}

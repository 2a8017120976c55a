package actionsmap

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse parses and validates an actions-map document. The document may be
// YAML or JSON (yaml.v3 accepts both). Parsing is strict: the first
// structural violation aborts with a SchemaError and no tree is returned.
func Parse(data []byte) (*ActionTree, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("not a structured document: %v", err)}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &SchemaError{Reason: "empty document"}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &SchemaError{Reason: "top level must be a mapping"}
	}

	tree := &ActionTree{catsByName: make(map[string]*Category)}

	err := eachPair(root, func(key string, value *yaml.Node) error {
		switch key {
		case "version":
			return value.Decode(&tree.Version)
		case "categories":
			return parseCategories(value, tree)
		default:
			// Unknown top-level fields are ignored so newer servers can
			// extend the document without breaking older clients.
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	if len(tree.Categories) == 0 {
		return nil, &SchemaError{Reason: "no categories declared"}
	}
	return tree, nil
}

func parseCategories(node *yaml.Node, tree *ActionTree) error {
	if node.Kind != yaml.MappingNode {
		return &SchemaError{Reason: "categories must be a mapping"}
	}
	return eachPair(node, func(name string, value *yaml.Node) error {
		if name == "" {
			return schemaErrorf("", "category with empty name")
		}
		if tree.catsByName[name] != nil {
			return schemaErrorf(name, "duplicate category")
		}
		cat := &Category{
			Name:          name,
			actionsByName: make(map[string]*ActionSpec),
			subsByName:    make(map[string]*Subcategory),
		}
		if err := parseCategory(value, cat); err != nil {
			return err
		}
		tree.Categories = append(tree.Categories, cat)
		tree.catsByName[name] = cat
		return nil
	})
}

func parseCategory(node *yaml.Node, cat *Category) error {
	if node.Kind != yaml.MappingNode {
		return schemaErrorf(cat.Name, "category must be a mapping")
	}
	return eachPair(node, func(key string, value *yaml.Node) error {
		switch key {
		case "help":
			return value.Decode(&cat.Help)
		case "actions":
			return eachPair(value, func(name string, action *yaml.Node) error {
				return addAction(cat, nil, name, action)
			})
		case "subcategories":
			return eachPair(value, func(name string, sub *yaml.Node) error {
				return addSubcategory(cat, name, sub)
			})
		default:
			return nil
		}
	})
}

func addSubcategory(cat *Category, name string, node *yaml.Node) error {
	path := cat.Name + "." + name
	if name == "" {
		return schemaErrorf(cat.Name, "subcategory with empty name")
	}
	// Action and subcategory names share one sibling namespace: the
	// resolver could not disambiguate them during the token walk.
	if cat.subsByName[name] != nil || cat.actionsByName[name] != nil {
		return schemaErrorf(path, "duplicate sibling name")
	}
	sub := &Subcategory{
		Name:          name,
		actionsByName: make(map[string]*ActionSpec),
	}
	err := eachPair(node, func(key string, value *yaml.Node) error {
		switch key {
		case "help":
			return value.Decode(&sub.Help)
		case "actions":
			return eachPair(value, func(aname string, action *yaml.Node) error {
				return addAction(cat, sub, aname, action)
			})
		default:
			return nil
		}
	})
	if err != nil {
		return err
	}
	cat.Subcategories = append(cat.Subcategories, sub)
	cat.subsByName[name] = sub
	return nil
}

func addAction(cat *Category, sub *Subcategory, name string, node *yaml.Node) error {
	parentPath := cat.Name
	if sub != nil {
		parentPath = cat.Name + "." + sub.Name
	}
	if name == "" {
		return schemaErrorf(parentPath, "action with empty name")
	}
	path := parentPath + "." + name

	if sub != nil {
		if sub.actionsByName[name] != nil {
			return schemaErrorf(path, "duplicate sibling name")
		}
	} else if cat.actionsByName[name] != nil || cat.subsByName[name] != nil {
		return schemaErrorf(path, "duplicate sibling name")
	}

	spec, err := parseAction(path, node)
	if err != nil {
		return err
	}

	if sub != nil {
		sub.Actions = append(sub.Actions, spec)
		sub.actionsByName[name] = spec
	} else {
		cat.Actions = append(cat.Actions, spec)
		cat.actionsByName[name] = spec
	}
	return nil
}

func parseAction(path string, node *yaml.Node) (*ActionSpec, error) {
	if node.Kind != yaml.MappingNode {
		return nil, schemaErrorf(path, "action must be a mapping")
	}
	spec := &ActionSpec{Path: path, StreamTransport: TransportSSE}

	err := eachPair(node, func(key string, value *yaml.Node) error {
		switch key {
		case "help":
			return value.Decode(&spec.Help)
		case "method":
			return value.Decode(&spec.Method)
		case "endpoint":
			return value.Decode(&spec.Endpoint)
		case "stream":
			return value.Decode(&spec.Streams)
		case "transport":
			var t string
			if err := value.Decode(&t); err != nil {
				return err
			}
			switch Transport(t) {
			case TransportSSE, TransportWebSocket:
				spec.StreamTransport = Transport(t)
			default:
				return schemaErrorf(path, "unknown stream transport %q", t)
			}
			return nil
		case "arguments":
			return eachPair(value, func(argName string, arg *yaml.Node) error {
				parsed, err := parseArgument(path, argName, arg)
				if err != nil {
					return err
				}
				if spec.Argument(argName) != nil {
					return schemaErrorf(path+"."+argName, "duplicate argument")
				}
				spec.Arguments = append(spec.Arguments, parsed)
				return nil
			})
		default:
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	spec.Method = strings.ToUpper(spec.Method)
	switch spec.Method {
	case "GET", "POST", "PUT", "PATCH", "DELETE":
	case "":
		return nil, schemaErrorf(path, "missing method")
	default:
		return nil, schemaErrorf(path, "unsupported method %q", spec.Method)
	}
	if spec.Endpoint == "" {
		return nil, schemaErrorf(path, "missing endpoint")
	}

	// Every endpoint template parameter must be fillable from an argument,
	// otherwise no invocation of the action could ever build a request.
	for _, param := range EndpointParams(spec.Endpoint) {
		arg := spec.Argument(param)
		if arg == nil {
			return nil, schemaErrorf(path, "endpoint parameter {%s} has no matching argument", param)
		}
		// A redacted value in the URL would leak it to logs and proxies.
		if arg.Redact {
			return nil, schemaErrorf(path, "endpoint parameter {%s} is redacted and cannot be placed in the URL", param)
		}
	}

	return spec, nil
}

func parseArgument(actionPath, name string, node *yaml.Node) (*ArgumentSpec, error) {
	path := actionPath + "." + name
	if name == "" {
		return nil, schemaErrorf(actionPath, "argument with empty name")
	}
	arg := &ArgumentSpec{Name: name, Kind: KindString}

	err := eachPair(node, func(key string, value *yaml.Node) error {
		switch key {
		case "type":
			var k string
			if err := value.Decode(&k); err != nil {
				return err
			}
			arg.Kind = Kind(k)
			return nil
		case "positional":
			return value.Decode(&arg.Positional)
		case "required":
			return value.Decode(&arg.Required)
		case "default":
			arg.HasDefault = true
			return value.Decode(&arg.Default)
		case "list":
			return value.Decode(&arg.List)
		case "redact":
			return value.Decode(&arg.Redact)
		case "choices":
			return value.Decode(&arg.Choices)
		case "help":
			return value.Decode(&arg.Help)
		case "in":
			var p string
			if err := value.Decode(&p); err != nil {
				return err
			}
			switch Placement(p) {
			case PlacePath, PlaceQuery, PlaceBody:
				arg.Place = Placement(p)
			default:
				return schemaErrorf(path, "unknown placement %q", p)
			}
			return nil
		default:
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	if !knownKinds[arg.Kind] {
		return nil, schemaErrorf(path, "unknown argument type %q", arg.Kind)
	}
	if arg.Required && arg.HasDefault {
		return nil, schemaErrorf(path, "required argument declares a default")
	}
	if arg.Kind == KindEnum && len(arg.Choices) == 0 {
		return nil, schemaErrorf(path, "enum argument declares no choices")
	}
	if arg.Kind != KindEnum && len(arg.Choices) > 0 {
		return nil, schemaErrorf(path, "choices are only valid on enum arguments")
	}
	if arg.Positional && arg.List {
		return nil, schemaErrorf(path, "positional arguments cannot be lists")
	}
	// Password arguments are credential material by definition.
	if arg.Kind == KindPassword {
		arg.Redact = true
	}
	if arg.Redact && arg.Place == PlacePath {
		return nil, schemaErrorf(path, "redacted arguments cannot be placed in the URL")
	}
	return arg, nil
}

// eachPair iterates the key/value pairs of a mapping node in document
// order. A nil or empty node is treated as an empty mapping.
func eachPair(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node == nil || node.Kind == 0 {
		return nil
	}
	// A key with no value ("force:") is an empty mapping, not an error.
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return &SchemaError{Reason: fmt.Sprintf("expected a mapping at line %d", node.Line)}
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return &SchemaError{Reason: fmt.Sprintf("non-scalar mapping key at line %d", node.Content[i].Line)}
		}
		if err := fn(key, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

var endpointParamRe = regexp.MustCompile(`\{([^{}/]+)\}`)

// EndpointParams returns the template parameter names in an endpoint, in
// order of appearance.
func EndpointParams(endpoint string) []string {
	matches := endpointParamRe.FindAllStringSubmatch(endpoint, -1)
	params := make([]string, 0, len(matches))
	for _, m := range matches {
		params = append(params, m[1])
	}
	return params
}

// Package resolver maps a command-line token sequence onto the action
// tree and produces a validated RequestContext.
//
// Resolution is a pure lookup against the immutable ActionTree: leading
// positional tokens are matched greedily down the category/subcategory/
// action hierarchy, remaining tokens are parsed as the action's arguments,
// values are coerced to their declared kinds, and defaults fill omitted
// optionals. Nothing here talks to the network.
package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/hostctl/hostctl/pkg/actionsmap"
	"github.com/hostctl/hostctl/pkg/redact"
	"github.com/hostctl/hostctl/pkg/session"
)

// Prompter supplies values for required arguments missing in interactive
// mode. Implementations mirror the argument's type (hidden input for
// redacted arguments, choice selection for enums).
type Prompter interface {
	Ask(arg *actionsmap.ArgumentSpec) (string, error)
}

// Options controls resolution behavior.
type Options struct {
	// Interactive enables prompting for missing required arguments.
	// Non-interactive resolution fails with MissingRequired instead.
	Interactive bool
	// Prompter is consulted in interactive mode. Required when
	// Interactive is set.
	Prompter Prompter
}

// RequestContext is the immutable product of a successful resolution:
// the action plus its validated, coerced argument values. It is built per
// invocation and never persisted or reused.
type RequestContext struct {
	// Action being invoked.
	Action *actionsmap.ActionSpec
	// Args maps argument name to its typed value: string, int, bool, or
	// []string. Every declared argument has an entry; omitted optionals
	// carry their default or their kind's zero value.
	Args map[string]interface{}
	// Session is the authenticated identity the executor will use.
	// Attached by the caller after resolution.
	Session *session.Session

	provided map[string]bool
}

// Provided reports whether the argument was supplied by the user or
// filled from a declared default, as opposed to zero-filled. The executor
// only places provided values into the request.
func (rc *RequestContext) Provided(name string) bool {
	return rc.provided[name]
}

// Resolve walks tokens against the tree and parses the remainder as the
// matched action's arguments. On failure it returns a classified *Error
// naming the offending token or argument.
func Resolve(tree *actionsmap.ActionTree, tokens []string, opts Options) (*RequestContext, error) {
	action, rest, err := walk(tree, tokens)
	if err != nil {
		return nil, err
	}
	return resolveArgs(action, rest, opts)
}

// walk consumes leading tokens greedily down the hierarchy until an
// action is reached.
func walk(tree *actionsmap.ActionTree, tokens []string) (*actionsmap.ActionSpec, []string, error) {
	if len(tokens) == 0 {
		return nil, nil, &Error{Kind: UnknownAction, Argument: "", Reason: "no command given"}
	}

	cat := tree.Category(tokens[0])
	if cat == nil {
		return nil, nil, &Error{Kind: UnknownAction, Argument: tokens[0]}
	}
	if len(tokens) == 1 {
		return nil, nil, &Error{Kind: UnknownAction, Argument: tokens[0],
			Reason: "category needs an action"}
	}

	if action := cat.Action(tokens[1]); action != nil {
		return action, tokens[2:], nil
	}
	sub := cat.Subcategory(tokens[1])
	if sub == nil {
		return nil, nil, &Error{Kind: UnknownAction, Argument: tokens[0] + " " + tokens[1]}
	}
	if len(tokens) == 2 {
		return nil, nil, &Error{Kind: UnknownAction, Argument: tokens[0] + " " + tokens[1],
			Reason: "subcategory needs an action"}
	}
	if action := sub.Action(tokens[2]); action != nil {
		return action, tokens[3:], nil
	}
	return nil, nil, &Error{Kind: UnknownAction,
		Argument: tokens[0] + " " + tokens[1] + " " + tokens[2]}
}

// resolveArgs parses tokens as the action's arguments.
func resolveArgs(action *actionsmap.ActionSpec, tokens []string, opts Options) (*RequestContext, error) {
	fs := pflag.NewFlagSet(action.Path, pflag.ContinueOnError)
	fs.Usage = func() {}
	fs.SetOutput(discard{})

	// Every named argument is registered as a string (or string array for
	// lists) and coerced afterwards, so the resolver owns all value
	// errors; pflag only reports unknown flags. Booleans take their value
	// from the bare-flag form.
	lists := make(map[string]*[]string)
	for _, arg := range action.Arguments {
		if arg.Positional {
			continue
		}
		if arg.List {
			lists[arg.Name] = fs.StringArray(arg.Name, nil, arg.Help)
			continue
		}
		fs.String(arg.Name, "", arg.Help)
		if arg.Kind == actionsmap.KindBoolean {
			fs.Lookup(arg.Name).NoOptDefVal = "true"
		}
	}

	if err := fs.Parse(tokens); err != nil {
		return nil, &Error{Kind: UnknownArgument,
			Argument: flagNameFromError(err), Reason: err.Error()}
	}

	positionals := fs.Args()
	declared := action.Positionals()
	if len(positionals) > len(declared) {
		return nil, &Error{Kind: UnknownArgument,
			Argument: positionals[len(declared)], Reason: "unexpected extra argument"}
	}

	rc := &RequestContext{
		Action:   action,
		Args:     make(map[string]interface{}, len(action.Arguments)),
		provided: make(map[string]bool, len(action.Arguments)),
	}

	posIndex := 0
	for _, arg := range action.Arguments {
		var raw string
		var supplied bool

		switch {
		case arg.Positional:
			if posIndex < len(positionals) {
				raw, supplied = positionals[posIndex], true
				posIndex++
			}
		case arg.List:
			if values := *lists[arg.Name]; len(values) > 0 {
				coerced, err := coerceList(arg, values)
				if err != nil {
					return nil, err
				}
				rc.Args[arg.Name] = coerced
				rc.provided[arg.Name] = true
				continue
			}
		default:
			if fs.Changed(arg.Name) {
				raw, _ = fs.GetString(arg.Name)
				supplied = true
			}
		}

		if !supplied {
			value, filled, err := fillOmitted(arg, opts)
			if err != nil {
				return nil, err
			}
			if filled {
				rc.provided[arg.Name] = true
				rc.Args[arg.Name] = value
			} else {
				rc.Args[arg.Name] = zeroValue(arg)
			}
			continue
		}

		value, err := coerce(arg, raw)
		if err != nil {
			return nil, err
		}
		rc.Args[arg.Name] = value
		rc.provided[arg.Name] = true
	}

	return rc, nil
}

// fillOmitted resolves an argument the user did not supply: declared
// default, interactive prompt for required ones, or MissingRequired.
// filled is false when the argument stays at its zero value.
func fillOmitted(arg *actionsmap.ArgumentSpec, opts Options) (interface{}, bool, error) {
	if arg.HasDefault {
		value, err := coerce(arg, arg.Default)
		if err != nil {
			return nil, false, err
		}
		if arg.List {
			return []string{arg.Default}, true, nil
		}
		return value, true, nil
	}
	if !arg.Required {
		return nil, false, nil
	}
	if !opts.Interactive || opts.Prompter == nil {
		return nil, false, &Error{Kind: MissingRequired, Argument: arg.Name}
	}

	raw, err := opts.Prompter.Ask(arg)
	if err != nil {
		return nil, false, fmt.Errorf("prompt for %s: %w", arg.Name, err)
	}
	value, cerr := coerce(arg, raw)
	if cerr != nil {
		return nil, false, cerr
	}
	if arg.List {
		return []string{raw}, true, nil
	}
	return value, true, nil
}

// coerce converts a raw token to the argument's declared kind.
func coerce(arg *actionsmap.ArgumentSpec, raw string) (interface{}, error) {
	switch arg.Kind {
	case actionsmap.KindInteger:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &Error{Kind: InvalidValue, Argument: arg.Name,
				Reason: fmt.Sprintf("%q is not an integer", display(arg, raw))}
		}
		return n, nil

	case actionsmap.KindBoolean:
		switch raw {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no", "":
			return false, nil
		}
		return nil, &Error{Kind: InvalidValue, Argument: arg.Name,
			Reason: fmt.Sprintf("%q is not a boolean", display(arg, raw))}

	case actionsmap.KindEnum:
		// Membership is case-sensitive.
		for _, choice := range arg.Choices {
			if raw == choice {
				return raw, nil
			}
		}
		return nil, &Error{Kind: InvalidValue, Argument: arg.Name,
			Reason: fmt.Sprintf("must be one of: %s", strings.Join(arg.Choices, ", "))}

	default:
		// string, password, path
		return raw, nil
	}
}

// display renders a raw value for a diagnostic message. Redacted values
// are masked; they must never appear in errors or logs.
func display(arg *actionsmap.ArgumentSpec, raw string) string {
	if arg.Redact {
		return redact.Value(raw)
	}
	return raw
}

// coerceList validates each element of a list argument, preserving
// encounter order.
func coerceList(arg *actionsmap.ArgumentSpec, values []string) ([]string, error) {
	for _, v := range values {
		if _, err := coerce(arg, v); err != nil {
			return nil, err
		}
	}
	return append([]string(nil), values...), nil
}

// zeroValue is the placeholder for an omitted optional with no default,
// so the argument map has one entry per declared argument.
func zeroValue(arg *actionsmap.ArgumentSpec) interface{} {
	switch {
	case arg.List:
		return []string(nil)
	case arg.Kind == actionsmap.KindInteger:
		return 0
	case arg.Kind == actionsmap.KindBoolean:
		return false
	default:
		return ""
	}
}

// flagNameFromError extracts the flag name from a pflag parse error.
func flagNameFromError(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "--"); i >= 0 {
		name := msg[i+2:]
		if j := strings.IndexAny(name, " ="); j >= 0 {
			name = name[:j]
		}
		return name
	}
	return msg
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

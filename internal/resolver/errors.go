package resolver

import "fmt"

// ErrorKind classifies resolution failures.
type ErrorKind string

const (
	// UnknownAction: the token sequence does not reach an action.
	UnknownAction ErrorKind = "unknown-action"
	// UnknownArgument: a flag or extra token matches no declared argument.
	UnknownArgument ErrorKind = "unknown-argument"
	// MissingRequired: a required argument was not supplied
	// (non-interactive mode only; interactive mode prompts instead).
	MissingRequired ErrorKind = "missing-required"
	// InvalidValue: a value failed type coercion or enum membership.
	InvalidValue ErrorKind = "invalid-value"
)

// Error is a classified resolution failure naming the offending token or
// argument. Resolution errors indicate a usage problem and are never
// retried.
type Error struct {
	Kind     ErrorKind
	Argument string
	Reason   string
}

func (e *Error) Error() string {
	switch e.Kind {
	case UnknownAction:
		return fmt.Sprintf("unknown command %q", e.Argument)
	case UnknownArgument:
		return fmt.Sprintf("unknown argument %q", e.Argument)
	case MissingRequired:
		return fmt.Sprintf("missing required argument %q", e.Argument)
	case InvalidValue:
		return fmt.Sprintf("invalid value for %q: %s", e.Argument, e.Reason)
	}
	return fmt.Sprintf("resolution failed for %q: %s", e.Argument, e.Reason)
}

// Package prompt implements interactive argument collection using pterm.
//
// Prompts mirror the argument's declared type: free text for strings,
// masked input for redacted arguments, yes/no confirmation for booleans,
// single selection for enums, and validated numeric input for integers.
// In non-interactive environments prompting is disabled and callers fall
// back to their MissingRequired path.
package prompt

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/hostctl/hostctl/pkg/actionsmap"
)

// Prompter asks the user for argument values on the terminal. It
// implements the resolver's Prompter interface.
type Prompter struct {
	// DisableColor disables colored output.
	DisableColor bool
	// DisableInteractive disables prompts entirely (for tests and pipes).
	DisableInteractive bool
}

// New creates a Prompter. Prompts are disabled when stdin is not a
// terminal.
func New() *Prompter {
	return &Prompter{DisableInteractive: !IsTerminal(os.Stdin)}
}

// IsTerminal reports whether f is attached to a character device.
func IsTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Ask prompts for a single argument value and returns it in raw string
// form; the resolver coerces it afterwards. Redacted arguments use masked
// input and their value never reaches the screen or any error message.
func (p *Prompter) Ask(arg *actionsmap.ArgumentSpec) (string, error) {
	if p.DisableInteractive {
		return "", fmt.Errorf("input required for %s but prompts are disabled", arg.Name)
	}
	if p.DisableColor {
		pterm.DisableColor()
	}

	message := arg.Help
	if message == "" {
		message = arg.Name
	}

	switch {
	case arg.Redact:
		return p.secret(message)
	case arg.Kind == actionsmap.KindEnum:
		return p.choose(message, arg.Choices)
	case arg.Kind == actionsmap.KindBoolean:
		ok, err := pterm.DefaultInteractiveConfirm.Show(message)
		if err != nil {
			return "", fmt.Errorf("read confirmation: %w", err)
		}
		return strconv.FormatBool(ok), nil
	case arg.Kind == actionsmap.KindInteger:
		return p.number(message)
	default:
		return p.text(message)
	}
}

// AskSecret prompts for one masked value outside the schema-driven flow,
// such as the login password.
func (p *Prompter) AskSecret(message string) (string, error) {
	if p.DisableInteractive {
		return "", fmt.Errorf("input required but prompts are disabled")
	}
	if p.DisableColor {
		pterm.DisableColor()
	}
	return p.secret(message)
}

// text reads free-form input, re-asking until it is non-empty.
func (p *Prompter) text(message string) (string, error) {
	for {
		value, err := pterm.DefaultInteractiveTextInput.
			WithMultiLine(false).
			Show(message)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		value = strings.TrimSpace(value)
		if value != "" {
			return value, nil
		}
		pterm.Error.Println("a value is required")
	}
}

// secret reads masked input.
func (p *Prompter) secret(message string) (string, error) {
	for {
		value, err := pterm.DefaultInteractiveTextInput.
			WithMask("*").
			Show(message)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		if value != "" {
			return value, nil
		}
		pterm.Error.Println("a value is required")
	}
}

// choose presents the declared choices for selection.
func (p *Prompter) choose(message string, choices []string) (string, error) {
	value, err := pterm.DefaultInteractiveSelect.
		WithOptions(choices).
		Show(message)
	if err != nil {
		return "", fmt.Errorf("read selection: %w", err)
	}
	return value, nil
}

// number reads input until it parses as an integer.
func (p *Prompter) number(message string) (string, error) {
	for {
		value, err := pterm.DefaultInteractiveTextInput.
			WithMultiLine(false).
			Show(message)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		value = strings.TrimSpace(value)
		if _, err := strconv.Atoi(value); err == nil {
			return value, nil
		}
		pterm.Error.Println("please enter a valid number")
	}
}

// Package app wires the client together: configuration, session manager,
// schema loading, command tree, execution, and rendering.
//
// Exit codes: 0 success, 2 usage or resolution failure, 3 authentication
// failure, 4 network failure, 5 server-reported failure, 130 interrupted.
package app

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/hostctl/hostctl/internal/executor"
	"github.com/hostctl/hostctl/internal/prompt"
	"github.com/hostctl/hostctl/internal/resolver"
	"github.com/hostctl/hostctl/pkg/actionsmap"
	"github.com/hostctl/hostctl/pkg/config"
	"github.com/hostctl/hostctl/pkg/output"
	"github.com/hostctl/hostctl/pkg/session"
	"github.com/hostctl/hostctl/pkg/stream"
)

// fallbackSchema is the actions map bundled with the binary, used when the
// server's copy cannot be fetched.
//
//go:embed actionsmap.yml
var fallbackSchema []byte

// Exit codes.
const (
	ExitOK        = 0
	ExitUsage     = 2
	ExitAuth      = 3
	ExitNetwork   = 4
	ExitServer    = 5
	ExitInterrupt = 130
)

// App holds the wired components for one invocation.
type App struct {
	cfg     *config.Config
	manager *session.Manager
	tree    *actionsmap.ActionTree

	stdout io.Writer
	stderr io.Writer

	// Global flag values, bound in newRoot.
	host           string
	outputMode     string
	insecure       bool
	verbose        int
	nonInteractive bool
}

// Main runs the client and returns its exit code.
func Main() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := newApp(ctx, os.Stdout, os.Stderr)
	if err != nil {
		pterm.Error.Println(err)
		return classify(err)
	}

	root := app.newRoot()
	if err := root.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			pterm.Error.Println("interrupted")
			return ExitInterrupt
		}
		pterm.Error.Println(err)
		return classify(err)
	}
	return ExitOK
}

// newApp loads configuration, the session store, and the actions map. The
// context bounds the remote schema fetch so startup stays interruptible.
func newApp(ctx context.Context, stdout, stderr io.Writer) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := sessionStore(cfg)
	if err != nil {
		return nil, err
	}
	manager, err := session.NewManager(store)
	if err != nil {
		return nil, err
	}
	manager.MinServerVersion = cfg.MinServerVersion

	app := &App{
		cfg:     cfg,
		manager: manager,
		stdout:  stdout,
		stderr:  stderr,
	}

	tree, err := app.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	app.tree = tree
	return app, nil
}

// sessionStore selects the configured store backend.
func sessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.SessionStore {
	case "", "file":
		return session.NewFileStore("")
	case "keyring":
		return session.NewKeyringStore("", ""), nil
	}
	return nil, fmt.Errorf("unknown session store %q (expected file or keyring)", cfg.SessionStore)
}

// loadTree resolves the actions map: an explicit local file wins, then the
// schema published by the default host's server, then the bundled copy.
// The command tree must exist before flag parsing, so the remote source is
// keyed on the configured or default-session host rather than --host.
func (a *App) loadTree(ctx context.Context) (*actionsmap.ActionTree, error) {
	loader := actionsmap.NewLoader()
	loader.Warn = func(format string, args ...interface{}) {
		pterm.Warning.WithWriter(a.stderr).Printfln(format, args...)
	}

	if a.cfg.SchemaFile != "" {
		return loader.LoadFile(ctx, a.cfg.SchemaFile)
	}

	src := actionsmap.Source{Fallback: fallbackSchema}
	if sess, err := a.manager.Resolve(a.cfg.Host); err == nil {
		src.RemoteURL = session.DefaultBaseURL(sess.Host) + "/actionsmap"
		src.Headers = map[string]string{"Authorization": "Bearer " + sess.Token}
		src.CacheKey = sess.Host
	} else if a.cfg.SchemaURL != "" {
		src.RemoteURL = a.cfg.SchemaURL
		src.CacheKey = "override"
	}
	return loader.Load(ctx, src)
}

// newExecutor builds the executor after global flags are known.
func (a *App) newExecutor() *executor.Executor {
	exec := executor.New(executor.Config{
		InsecureSkipVerify: a.insecure || a.cfg.Insecure,
		BaseURL:            session.DefaultBaseURL,
	})
	exec.OnAuthRejected = func(host string) {
		_ = a.manager.MarkExpired(host)
	}
	return exec
}

// renderer builds the output renderer for the selected mode.
func (a *App) renderer() (output.Renderer, error) {
	mode := a.outputMode
	if mode == "" {
		mode = a.cfg.Output
	}
	return output.New(mode, a.stdout, a.stderr)
}

// targetSession resolves the session for the invocation, honoring --host
// over the configured default host.
func (a *App) targetSession() (*session.Session, error) {
	host := a.host
	if host == "" {
		host = a.cfg.Host
	}
	return a.manager.Resolve(host)
}

// runAction is the leaf handler: resolve tokens, execute, render.
func (a *App) runAction(cmd *cobra.Command, tokens []string) error {
	sess, err := a.targetSession()
	if err != nil {
		return err
	}

	if a.cfg.MinServerVersion != "" {
		if _, err := a.manager.Handshake(cmd.Context(), sess); err != nil {
			return err
		}
	}

	prompter := prompt.New()
	rc, err := resolver.Resolve(a.tree, tokens, resolver.Options{
		Interactive: !a.nonInteractive && !prompter.DisableInteractive,
		Prompter:    prompter,
	})
	if err != nil {
		return err
	}
	rc.Session = sess

	s, err := a.newExecutor().Execute(cmd.Context(), rc)
	if err != nil {
		return err
	}
	return a.render(cmd.Context(), s)
}

// render drains the stream through the renderer and maps the terminal
// event to an error for exit-code classification.
func (a *App) render(ctx context.Context, s *stream.Stream) error {
	r, err := a.renderer()
	if err != nil {
		s.Close()
		return err
	}

	final, err := output.Consume(s, r)
	if err != nil {
		return err
	}
	if final.Type == stream.EventError {
		if ctx.Err() != nil {
			return &executor.ExecutionError{Kind: executor.Cancelled}
		}
		// Already rendered; signal the failure without repeating it.
		return errSilentServerFailure
	}
	return nil
}

// errSilentServerFailure marks a failure the renderer already reported.
var errSilentServerFailure = errors.New("")

// classify maps an error to the exit code table.
func classify(err error) int {
	var resErr *resolver.Error
	if errors.As(err, &resErr) {
		return ExitUsage
	}

	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		if authErr.Kind == session.Unreachable {
			return ExitNetwork
		}
		return ExitAuth
	}

	var execErr *executor.ExecutionError
	if errors.As(err, &execErr) {
		switch execErr.Kind {
		case executor.AuthRejected:
			return ExitAuth
		case executor.Unreachable, executor.StreamDecodeError:
			return ExitNetwork
		case executor.Cancelled:
			return ExitInterrupt
		default:
			return ExitServer
		}
	}

	if errors.Is(err, errSilentServerFailure) {
		return ExitServer
	}

	var schemaErr *actionsmap.SchemaError
	if errors.As(err, &schemaErr) {
		return ExitServer
	}
	return 1
}

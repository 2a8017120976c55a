package app

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/hostctl/hostctl/internal/builder"
	"github.com/hostctl/hostctl/internal/prompt"
	"github.com/hostctl/hostctl/pkg/redact"
	"github.com/hostctl/hostctl/pkg/session"
)

// newRoot builds the full command tree: global flags, the auth and logs
// commands, and one command per schema action.
func (a *App) newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "hostctl",
		Short:         "Administer remote hosts from the command line",
		Long:          "hostctl drives a remote server-administration API.\nThe available commands are defined by the server's actions map.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.host, "host", "", "target host (defaults to the configured or default session host)")
	pf.StringVarP(&a.outputMode, "output", "o", "", "output mode: human, json, yaml, or plain")
	pf.BoolVarP(&a.insecure, "insecure", "k", false, "skip TLS certificate verification")
	pf.CountVarP(&a.verbose, "verbose", "v", "increase diagnostic verbosity")
	pf.BoolVar(&a.nonInteractive, "non-interactive", false, "never prompt; fail on missing required arguments")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if a.verbose > 0 {
			pterm.EnableDebugMessages()
		}
	}

	root.AddCommand(a.newAuthCmd())
	root.AddCommand(a.newLogsCmd())

	builder.New(a.tree, a.runAction).Attach(root)
	return root
}

// newAuthCmd builds the auth command: login, session check, and default
// selection.
func (a *App) newAuthCmd() *cobra.Command {
	var check, markDefault bool

	cmd := &cobra.Command{
		Use:   "auth <host> [<username> [<password>]]",
		Short: "Authenticate against a host",
		Long: "Authenticate against a host and store the session.\n" +
			"The password is prompted for when omitted. The first stored session\nbecomes the default host.",
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := args[0]

			if check {
				return a.checkSession(cmd, host)
			}
			if markDefault {
				if err := a.manager.SetDefault(host); err != nil {
					return err
				}
				pterm.Success.Printfln("%s is now the default host", session.NormalizeHost(host))
				return nil
			}

			if len(args) < 2 {
				return fmt.Errorf("a username is required to log in")
			}
			username := args[1]

			password := ""
			if len(args) == 3 {
				password = args[2]
			} else {
				p := prompt.New()
				if p.DisableInteractive || a.nonInteractive {
					return fmt.Errorf("a password is required in non-interactive mode")
				}
				var err error
				password, err = p.AskSecret("Password for " + username + "@" + host)
				if err != nil {
					return err
				}
			}

			sess, err := a.manager.Login(cmd.Context(), host, username, password)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("logged in to %s as %s", sess.Host, sess.Username)
			pterm.Debug.Printfln("stored session token %s", redact.Fingerprint(sess.Token))
			if sess.Default {
				pterm.Info.Printfln("%s is the default host", sess.Host)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "verify the stored session against the server")
	cmd.Flags().BoolVar(&markDefault, "default", false, "mark the host's session as the default")
	return cmd
}

// checkSession verifies a stored session with the version handshake.
func (a *App) checkSession(cmd *cobra.Command, host string) error {
	sess, err := a.manager.Resolve(host)
	if err != nil {
		return err
	}
	version, err := a.manager.Handshake(cmd.Context(), sess)
	if err != nil {
		return err
	}
	if version != "" {
		pterm.Success.Printfln("session for %s is valid (server version %s)", sess.Host, version)
	} else {
		pterm.Success.Printfln("session for %s is valid", sess.Host)
	}
	return nil
}

// newLogsCmd follows the server's event stream until interrupted.
func (a *App) newLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Follow the server's operation event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.targetSession()
			if err != nil {
				return err
			}
			s, err := a.newExecutor().Follow(cmd.Context(), sess)
			if err != nil {
				return err
			}
			return a.render(cmd.Context(), s)
		},
	}
}

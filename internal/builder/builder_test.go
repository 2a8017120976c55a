package builder

import (
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/hostctl/hostctl/pkg/actionsmap"
)

const testSchema = `
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
          nickname:
            positional: true
          password:
            type: password
            required: true
  domain:
    subcategories:
      cert:
        help: Certificates
        actions:
          renew:
            method: POST
            endpoint: /domains/{domain}/cert/renew
            arguments:
              domain:
                positional: true
                required: true
`

func buildRoot(t *testing.T, run RunFunc) *cobra.Command {
	t.Helper()
	tree, err := actionsmap.Parse([]byte(testSchema))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	root := &cobra.Command{Use: "hostctl", SilenceUsage: true, SilenceErrors: true}
	New(tree, run).Attach(root)
	return root
}

func TestAttachBuildsTree(t *testing.T) {
	root := buildRoot(t, func(cmd *cobra.Command, tokens []string) error { return nil })

	user, _, err := root.Find([]string{"user"})
	if err != nil || user.Name() != "user" {
		t.Fatalf("user command missing: %v", err)
	}
	if user.Short != "Manage users" {
		t.Errorf("user.Short = %q", user.Short)
	}

	leaf, _, err := root.Find([]string{"user", "create"})
	if err != nil || leaf.Name() != "create" {
		t.Fatalf("user create command missing: %v", err)
	}
	if !leaf.DisableFlagParsing {
		t.Error("action commands must not let cobra parse flags")
	}

	renew, _, err := root.Find([]string{"domain", "cert", "renew"})
	if err != nil || renew.Name() != "renew" {
		t.Fatalf("subcategory action missing: %v", err)
	}
}

func TestLeafHandsTokensToRunner(t *testing.T) {
	var got []string
	root := buildRoot(t, func(cmd *cobra.Command, tokens []string) error {
		got = tokens
		return nil
	})

	root.SetArgs([]string{"user", "create", "bob", "--password", "pw"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := []string{"user", "create", "bob", "--password", "pw"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("runner received %v, want %v", got, want)
	}
}

func TestUsageLine(t *testing.T) {
	root := buildRoot(t, func(cmd *cobra.Command, tokens []string) error { return nil })

	leaf, _, err := root.Find([]string{"user", "create"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	use := leaf.Use
	if !strings.Contains(use, "<username>") || !strings.Contains(use, "[nickname]") {
		t.Errorf("Use = %q, want required and optional positionals marked", use)
	}
	if !strings.Contains(use, "[flags]") {
		t.Errorf("Use = %q, want flags marker for named arguments", use)
	}
}

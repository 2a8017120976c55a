// Package builder converts an ActionTree into a Cobra command tree.
//
// Categories and subcategories become group commands; actions become leaf
// commands. Leaf commands disable Cobra's own flag parsing and hand their
// raw argument tokens to the resolver, which owns coercion and validation
// against the schema. Command order follows the schema document so help
// output matches the schema author's intent.
package builder

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hostctl/hostctl/pkg/actionsmap"
)

// RunFunc executes a resolved action. tokens is the dotted action path
// split into command words followed by the action's raw argument tokens.
type RunFunc func(cmd *cobra.Command, tokens []string) error

// Builder builds the command tree for one loaded ActionTree.
type Builder struct {
	tree *actionsmap.ActionTree
	run  RunFunc
}

// New creates a Builder; run is invoked for every leaf command.
func New(tree *actionsmap.ActionTree, run RunFunc) *Builder {
	return &Builder{tree: tree, run: run}
}

// Attach adds one command per category under root.
func (b *Builder) Attach(root *cobra.Command) {
	for _, cat := range b.tree.Categories {
		root.AddCommand(b.buildCategory(cat))
	}
}

func (b *Builder) buildCategory(cat *actionsmap.Category) *cobra.Command {
	cmd := &cobra.Command{
		Use:   cat.Name,
		Short: cat.Help,
	}
	for _, action := range cat.Actions {
		cmd.AddCommand(b.buildAction(action))
	}
	for _, sub := range cat.Subcategories {
		cmd.AddCommand(b.buildSubcategory(sub))
	}
	return cmd
}

func (b *Builder) buildSubcategory(sub *actionsmap.Subcategory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   sub.Name,
		Short: sub.Help,
	}
	for _, action := range sub.Actions {
		cmd.AddCommand(b.buildAction(action))
	}
	return cmd
}

func (b *Builder) buildAction(action *actionsmap.ActionSpec) *cobra.Command {
	words := strings.Split(action.Path, ".")
	name := words[len(words)-1]

	cmd := &cobra.Command{
		Use:   usageLine(name, action),
		Short: action.Help,
		// The resolver owns parsing: tokens pass through untouched so
		// coercion errors carry schema context instead of pflag context.
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && (args[0] == "--help" || args[0] == "-h") {
				return cmd.Help()
			}
			return b.run(cmd, append(words, args...))
		},
	}
	return cmd
}

// usageLine renders the one-line usage for an action: positionals in
// declared order, then a flags marker when named arguments exist.
func usageLine(name string, action *actionsmap.ActionSpec) string {
	var sb strings.Builder
	sb.WriteString(name)

	named := false
	for _, arg := range action.Arguments {
		if !arg.Positional {
			named = true
			continue
		}
		if arg.Required {
			sb.WriteString(" <" + arg.Name + ">")
		} else {
			sb.WriteString(" [" + arg.Name + "]")
		}
	}
	if named {
		sb.WriteString(" [flags]")
	}
	return sb.String()
}

package repl

import (
	"sort"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// CompleterFor builds tab completion from a command tree: subcommand names,
// then the long flags of the leaf command.
func CompleterFor(root *cobra.Command, skip ...string) *readline.PrefixCompleter {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	items := childItems(root, skipped)
	items = append(items, readline.PcItem("exit"), readline.PcItem("quit"))
	return readline.NewPrefixCompleter(items...)
}

func childItems(cmd *cobra.Command, skipped map[string]bool) []readline.PrefixCompleterInterface {
	var items []readline.PrefixCompleterInterface
	for _, child := range cmd.Commands() {
		if child.Hidden || skipped[child.Name()] || child.Name() == "completion" {
			continue
		}
		sub := childItems(child, skipped)
		if !child.HasSubCommands() {
			sub = flagItems(child)
		}
		items = append(items, readline.PcItem(child.Name(), sub...))
	}
	return items
}

func flagItems(cmd *cobra.Command) []readline.PrefixCompleterInterface {
	var names []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			names = append(names, "--"+f.Name)
		}
	})
	sort.Strings(names)

	items := make([]readline.PrefixCompleterInterface, len(names))
	for i, n := range names {
		items[i] = readline.PcItem(n)
	}
	return items
}

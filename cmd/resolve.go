package cmd

import (
	"github.com/spf13/cobra"

	"srclens.dev/pkg/srclens/internal/domain"
	m "srclens.dev/pkg/srclens/internal/model"
)

var resolveTargetFlag string

// resolveCmd represents the resolve command.
var resolveCmd = newResolveCmd()

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <snapshot>",
		Short: "Resolve captured DOM elements to their source location",
		Long: `Resolve the elements of a captured DOM snapshot (YAML or JSON) to the file
and line they were declared at.

A snapshot is either a document with a root element tree or a single element
with its parent chain. Elements carry their tag, attributes and own properties;
React fibers are read from the properties.

Without --target every element of the tree is resolved. Targets are element
paths as printed by this command, e.g. 0.1.2.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newWorkflow(cmd.Context(), cmd).Resolve(cmd.Context(), domain.ResolveArgs{
				Snapshot: m.Path(args[0]),
				Target:   resolveTargetFlag,
			})
		},
	}

	cmd.Flags().StringVarP(&resolveTargetFlag, "target", "t", "", "element path to resolve (default: all elements)")

	return cmd
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

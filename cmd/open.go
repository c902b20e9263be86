package cmd

import (
	"github.com/spf13/cobra"

	"srclens.dev/pkg/srclens/internal/domain"
)

var openLaunchFlag bool

// openCmd represents the open command.
var openCmd = newOpenCmd()

func newOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open <file:line>",
		Short: "Print (or launch) the editor link for a source location",
		Long: `Build the editor deep link for a source location such as src/App.jsx:12.

Relative files are joined to the project root (--project-root, or the nearest
directory with a package.json or .git). With --launch the link is handed to the
system URL opener.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newWorkflow(cmd.Context(), cmd).Open(cmd.Context(), domain.OpenArgs{
				Location: args[0],
				Launch:   openLaunchFlag,
			})
		},
	}

	cmd.Flags().BoolVarP(&openLaunchFlag, launchFlagName, "l", false, "open the link in the editor")

	return cmd
}

func init() {
	rootCmd.AddCommand(openCmd)
}

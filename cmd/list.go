package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"srclens.dev/pkg/srclens/internal/domain"
	m "srclens.dev/pkg/srclens/internal/model"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "List markup files and element counts",
		Long:  listLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := parsePaths(args)
			if len(paths) == 0 {
				paths = []m.Path{"./..."}
			}

			return newWorkflow(cmd.Context(), cmd).List(cmd.Context(), domain.ListArgs{
				Paths:    paths,
				Exclude:  viper.GetStringSlice(annotateExcludeKey),
				Parallel: viper.GetInt(annotateParallelKey),
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"srclens.dev/pkg/srclens/internal/domain"
	m "srclens.dev/pkg/srclens/internal/model"
)

var annotateDryRunFlag bool
var annotateOutFlag string
var annotateRootFlag string
var annotateNoCacheFlag bool
var annotateManifestFlag string

// annotateCmd represents the annotate command.
var annotateCmd = newAnnotateCmd()

func newAnnotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate [paths...]",
		Short: "Stamp source locations onto markup elements",
		Long:  annotateLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := parsePaths(args)
			if len(paths) == 0 {
				paths = []m.Path{"./..."}
			}

			return newWorkflow(cmd.Context(), cmd).Annotate(cmd.Context(), domain.AnnotateArgs{
				Paths:    paths,
				Exclude:  viper.GetStringSlice(annotateExcludeKey),
				Parallel: viper.GetInt(annotateParallelKey),
				Root:     m.Path(annotateRootFlag),
				OutDir:   m.Path(annotateOutFlag),
				DryRun:   annotateDryRunFlag,
				NoCache:  viper.GetBool(annotateNoCacheKey),
				Manifest: m.Path(viper.GetString(annotateManifestKey)),
			})
		},
	}

	configureAnnotateFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(annotateCmd)
}

func configureAnnotateFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&annotateDryRunFlag, "dry-run", "n", false, "print a diff instead of writing files")
	cmd.Flags().StringVarP(&annotateOutFlag, "out", "o", "", "write annotated files into this directory instead of in place")
	cmd.Flags().StringVar(&annotateRootFlag, "root", ".", "base directory mirrored under --out")

	cmd.Flags().BoolVar(&annotateNoCacheFlag, noCacheFlagName, viper.GetBool(annotateNoCacheKey), "re-annotate files the manifest marks as up to date")
	bindFlagToConfig(cmd.Flags().Lookup(noCacheFlagName), annotateNoCacheKey)

	cmd.Flags().StringVar(&annotateManifestFlag, manifestFlagName, viper.GetString(annotateManifestKey), "manifest recording annotated outputs")
	bindFlagToConfig(cmd.Flags().Lookup(manifestFlagName), annotateManifestKey)
}

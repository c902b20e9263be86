// Package cmd provides the root command and CLI setup for srclens.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"srclens.dev/pkg/srclens/internal/adapter"
	"srclens.dev/pkg/srclens/internal/controller"
	"srclens.dev/pkg/srclens/internal/domain"
	m "srclens.dev/pkg/srclens/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var markupAdapter adapter.MarkupFileAdapter
var manifestStore adapter.ManifestStore
var snapshotLoader adapter.SnapshotLoader
var editorLauncher adapter.EditorLauncher
var annotator domain.Annotator
var resolver domain.Resolver

// excludePatterns is a root-level flag that filters files for applicable commands.
var excludePatterns []string

var parallelFlag int
var projectRootFlag string
var editorFlag string
var verboseFlag bool
var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies. The editor formatter depends on flags
	// and is built per command.
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	markupAdapter = adapter.NewTreeSitterMarkupAdapter()
	manifestStore = adapter.NewYAMLManifestStore()
	snapshotLoader = adapter.NewYAMLSnapshotLoader()
	editorLauncher = adapter.NewLocalEditorLauncher()
	annotator = domain.NewAnnotator(markupAdapter)
	resolver = domain.NewResolver(domain.NewReactFiberAdapter())
}

const pathPatternsHelp = `Supports path patterns:
  - ./...          recursively scan current directory
  - ./src/...      recursively scan src directory
  - ./src ./app    scan multiple directories (not recursive)
  - src/App.jsx    a single file

JSX/JavaScript (.js .jsx .mjs .cjs), TSX and HTML files are processed.`

const rootLongDescription = `srclens finds the source file and line a rendered UI element was declared at.

At build time it stamps data-source-file and data-source-line attributes onto
every JSX, TSX and HTML element. At inspection time it resolves an element back
to its source, from those attributes or from React's debug records, and links
it into your editor.

` + pathPatternsHelp

const annotateLongDescription = `Annotate markup elements with their source location.

Files are rewritten in place unless --out or --dry-run is given. Annotating an
already annotated file is a no-op.

` + pathPatternsHelp

const listLongDescription = `List markup files and the number of elements they carry.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "srclens",
		Short:        "Source locations for rendered UI elements",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(annotateExcludeKey), "exclude files matching regex (can be repeated)")
	bindFlagToConfig(flags.Lookup(excludeFlagName), annotateExcludeKey)

	flags.IntVarP(&parallelFlag, parallelFlagName, "p", viper.GetInt(annotateParallelKey), "number of files processed in parallel")
	bindFlagToConfig(flags.Lookup(parallelFlagName), annotateParallelKey)

	flags.StringVar(&projectRootFlag, projectRootFlagName, viper.GetString(projectRootKey), "project root used to build absolute editor paths (default: detected)")
	bindFlagToConfig(flags.Lookup(projectRootFlagName), projectRootKey)

	flags.StringVar(&editorFlag, editorFlagName, viper.GetString(editorKey), "editor for deep links: vscode, webstorm, intellij, atom, sublime, cursor, windsurf (default: detected)")
	bindFlagToConfig(flags.Lookup(editorFlagName), editorKey)

	flags.BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(flags.Lookup(verboseFlagName), logVerboseKey)

	flags.StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(flags.Lookup(logFileFlagName), logFilenameKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}

// newFormatter builds the editor formatter from configuration, detecting the
// project root from the working directory when none is configured.
func newFormatter(ctx context.Context) domain.EditorFormatter {
	root := strings.TrimSpace(viper.GetString(projectRootKey))

	if root == "" {
		if detected, err := fsAdapter.FindProjectRoot(ctx, "."); err == nil {
			root = string(detected)
		} else {
			slog.Debug("No project root detected", "error", err)
		}
	}

	return domain.NewEditorFormatter(domain.EditorOptions{
		Editor:      viper.GetString(editorKey),
		ProjectRoot: root,
	})
}

// newWorkflow wires the shared adapters to a UI writing to cmd.
func newWorkflow(ctx context.Context, cmd *cobra.Command) domain.Workflow {
	return domain.NewWorkflow(
		fsAdapter,
		manifestStore,
		snapshotLoader,
		editorLauncher,
		controller.NewSimpleUI(cmd),
		annotator,
		resolver,
		newFormatter(ctx),
	)
}

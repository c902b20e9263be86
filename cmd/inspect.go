package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"srclens.dev/pkg/srclens/internal/controller"
	"srclens.dev/pkg/srclens/internal/domain"
	m "srclens.dev/pkg/srclens/internal/model"
)

// errNotInteractive is returned when inspect runs without a terminal.
var errNotInteractive = errors.New("inspect needs an interactive terminal, use resolve instead")

// inspectCmd represents the inspect command.
var inspectCmd = newInspectCmd()

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <snapshot>",
		Short: "Browse a captured DOM snapshot and resolve elements interactively",
		Long: `Open an interactive inspector over a captured DOM snapshot.

Move between elements with the arrow keys. Alt+Shift+O resolves the highlighted
element, Alt+Shift+L toggles inspection and o opens the last resolved source in
your editor.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !controller.IsTTY(cmd.OutOrStdout()) {
				return errNotInteractive
			}

			ctx := cmd.Context()

			doc, err := snapshotLoader.Load(ctx, m.Path(args[0]))
			if err != nil {
				slog.Error("Failed to load snapshot", "path", args[0], "error", err)
				return fmt.Errorf("load snapshot: %w", err)
			}

			session := domain.NewSession(resolver, newFormatter(ctx))
			inspector := controller.NewInspector(doc, editorLauncher, cmd.InOrStdin(), cmd.OutOrStdout())

			return inspector.Run(ctx, session)
		},
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

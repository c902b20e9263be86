package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"srclens.dev/pkg/srclens/internal/server"
)

const shutdownTimeout = 5 * time.Second

var serveAddrFlag string
var serveCacheSizeFlag int
var serveLaunchFlag bool

// serveCmd represents the serve command.
var serveCmd = newServeCmd()

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the transform endpoint and the inspection channel",
		Long: `Start the srclens HTTP server.

  POST /transform  annotate one compiled unit ({"filename", "code"})
  POST /resolve    resolve a captured element ({"element"})
  GET  /ws         websocket inspection channel for the browser shim
  GET  /healthz    liveness probe

Bundler plugins call /transform for every JSX, TSX or HTML unit; results are
cached by content.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			handler, err := newServeHandler(ctx)
			if err != nil {
				return err
			}

			srv := server.New(viper.GetString(serveAddrKey), server.NewMux(handler))

			cmd.Printf("srclens listening on http://%s\n", viper.GetString(serveAddrKey))

			return runServer(ctx, srv)
		},
	}

	configureServeFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func configureServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&serveAddrFlag, addrFlagName, viper.GetString(serveAddrKey), "listen address")
	bindFlagToConfig(cmd.Flags().Lookup(addrFlagName), serveAddrKey)

	cmd.Flags().IntVar(&serveCacheSizeFlag, cacheSizeFlagName, viper.GetInt(serveCacheSizeKey), "number of transform results kept in memory")
	bindFlagToConfig(cmd.Flags().Lookup(cacheSizeFlagName), serveCacheSizeKey)

	cmd.Flags().BoolVar(&serveLaunchFlag, launchFlagName, viper.GetBool(serveLaunchKey), "allow clients to open editor links on this machine")
	bindFlagToConfig(cmd.Flags().Lookup(launchFlagName), serveLaunchKey)
}

func newServeHandler(ctx context.Context) (*server.Handler, error) {
	opts := server.Options{
		Annotator: annotator,
		Resolver:  resolver,
		Formatter: newFormatter(ctx),
		CacheSize: viper.GetInt(serveCacheSizeKey),
	}

	if viper.GetBool(serveLaunchKey) {
		opts.Launcher = editorLauncher
	}

	handler, err := server.NewHandler(opts)
	if err != nil {
		slog.Error("Failed to create server handler", "error", err)
		return nil, fmt.Errorf("create server: %w", err)
	}

	return handler, nil
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, srv *server.Server) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down server", "error", err)
		return fmt.Errorf("shutdown: %w", err)
	}

	return <-errCh
}

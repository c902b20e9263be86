// Package server exposes the annotator and the resolver over HTTP: a transform
// endpoint for bundler plugins, a resolve endpoint and a websocket inspection
// channel for the browser shim.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"srclens.dev/pkg/srclens/internal/adapter"
	"srclens.dev/pkg/srclens/internal/domain"
)

// DefaultCacheSize is the number of transform results kept in memory.
const DefaultCacheSize = 512

const readHeaderTimeout = 10 * time.Second

// Server is the srclens HTTP server.
type Server struct {
	httpServer *http.Server
}

// New creates a server listening on addr.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("Starting srclens server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server stopped", "addr", s.httpServer.Addr, "error", err)
		return fmt.Errorf("serve %s: %w", s.httpServer.Addr, err)
	}

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Options configures a Handler.
type Options struct {
	Annotator domain.Annotator
	Resolver  domain.Resolver
	Formatter domain.EditorFormatter
	// Launcher opens editor links on request; nil disables launching.
	Launcher  adapter.EditorLauncher
	CacheSize int
}

// Handler serves the srclens endpoints.
type Handler struct {
	annotator domain.Annotator
	resolver  domain.Resolver
	formatter domain.EditorFormatter
	launcher  adapter.EditorLauncher
	cache     *lru.Cache[string, transformResponse]
}

// NewHandler validates opts and creates a Handler.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Annotator == nil || opts.Resolver == nil || opts.Formatter == nil {
		return nil, errors.New("server requires an annotator, a resolver and a formatter")
	}

	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}

	cache, err := lru.New[string, transformResponse](size)
	if err != nil {
		return nil, fmt.Errorf("create transform cache: %w", err)
	}

	return &Handler{
		annotator: opts.Annotator,
		resolver:  opts.Resolver,
		formatter: opts.Formatter,
		launcher:  opts.Launcher,
		cache:     cache,
	}, nil
}

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/acksell/seekr/collection"
	"github.com/acksell/seekr/config"
	"github.com/acksell/seekr/kvstore"
	"github.com/acksell/seekr/schema/clusters"
	"github.com/acksell/seekr/version"
)

// ServerConfig configures the API server.
type ServerConfig struct {
	// Config holds the listen address, storage and timeout settings.
	Config *config.Config
	// Logger receives request and storage logs. If nil, logs are discarded.
	Logger *slog.Logger
	// Banner receives the startup banner. Defaults to os.Stdout.
	Banner io.Writer
	// CollectionOptions are passed to every collection the server opens.
	CollectionOptions []collection.Option
}

// Server is the seekr HTTP API server. It owns the store for its whole
// lifetime and closes it on shutdown.
type Server struct {
	config     *config.Config
	logger     *slog.Logger
	banner     io.Writer
	store      *kvstore.Store
	clusters   *collection.Collection[clusters.Cluster, *clusters.Cluster]
	httpServer *http.Server
}

// NewServer opens the store described by cfg and prepares the API.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		cfg.Config = config.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Banner == nil {
		cfg.Banner = os.Stdout
	}

	store, err := kvstore.New(cfg.Config.StoreOptions(cfg.Logger))
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	return &Server{
		config:   cfg.Config,
		logger:   cfg.Logger,
		banner:   cfg.Banner,
		store:    store,
		clusters: collection.New[clusters.Cluster](store, clusters.Collection, cfg.CollectionOptions...),
	}, nil
}

// Handler returns the full HTTP handler: API routes behind the request
// timeout, request logging and CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	NewAPIHandler(s.clusters, s.logger).RegisterRoutes(mux)

	timeout := http.TimeoutHandler(mux, s.config.RequestTimeout, `{"error":"request timed out"}`)
	return corsMiddleware(loggingMiddleware(s.logger, timeout))
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		s.closeStore()
		return fmt.Errorf("listen on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then drains in-flight
// requests for at most the configured shutdown timeout and closes the
// store.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	s.printBanner(ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.closeStore()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.config.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the server and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := s.store.Close(); err != nil && !errors.Is(err, kvstore.ErrClosed) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Server) closeStore() {
	if err := s.store.Close(); err != nil && !errors.Is(err, kvstore.ErrClosed) {
		s.logger.Error("closing store", "error", err)
	}
}

func (s *Server) printBanner(addr string) {
	w := s.banner
	storage := s.config.Storage

	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║                    seekr cluster registry                    ║")
	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")
	fmt.Fprintf(w, "║  URL: %-55s║\n", truncate("http://"+addr, 55))
	fmt.Fprintf(w, "║  Version: %-51s║\n", truncate(version.Info(), 51))
	fmt.Fprintf(w, "║  Backend: %-51s║\n", truncate(storage.Backend, 51))
	switch {
	case storage.Backend == string(kvstore.BackendMemory), storage.Backend == string(kvstore.BackendBadger) && storage.InMemory:
		fmt.Fprintln(w, "║  Mode: In-memory (data will be lost on exit)                 ║")
	default:
		fmt.Fprintf(w, "║  Database: %-50s║\n", truncate(storage.Path, 50))
	}
	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")
	fmt.Fprintln(w, "║  Press Ctrl+C to stop                                        ║")
	fmt.Fprintln(w, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

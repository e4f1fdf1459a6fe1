package apiserver

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/cfsui/internal/cabinet"
	"github.com/vango-dev/cfsui/internal/config"
	"github.com/vango-dev/cfsui/internal/dev"
	"github.com/vango-dev/cfsui/internal/ui"
	"github.com/vango-dev/cfsui/pkg/assets"
	"github.com/vango-dev/cfsui/pkg/middleware"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRegistry sets the Prometheus registry metrics are registered with and
// served from. By default each server gets its own registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithDevServer enables the live reload endpoint and injects the reload
// client into the shell page.
func WithDevServer(d *dev.Server) Option {
	return func(s *Server) {
		s.dev = d
	}
}

// WithUIFiles replaces the embedded shell assets and templates, e.g. with
// the source directories during development.
func WithUIFiles(static, templates fs.FS) Option {
	return func(s *Server) {
		s.uiAssets = static
		s.uiTemplates = templates
	}
}

// Server serves the cabinet API, the UI shell and its assets.
type Server struct {
	cfg      *config.Config
	cabinet  *cabinet.Cabinet
	writer   cabinet.Writer
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *middleware.Metrics
	dev      *dev.Server

	uiAssets    fs.FS
	uiTemplates fs.FS
	assets      fs.FS
	resolver    assets.Resolver

	router     chi.Router
	httpServer *http.Server
}

// New creates a server for cab configured by cfg.
func New(cfg *config.Config, cab *cabinet.Cabinet, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		cabinet: cab,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "apiserver")
	if w, ok := cab.Store().(cabinet.Writer); ok && !cfg.Server.ReadOnly {
		s.writer = w
	}

	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if cfg.Metrics.Enabled {
		s.metrics = middleware.NewMetrics(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(s.registry),
		)
	}

	s.assets = s.uiAssets
	if cfg.Server.Assets != "" {
		s.assets = os.DirFS(cfg.Server.Assets)
	}
	if s.assets == nil {
		s.assets = ui.Assets()
	}
	if s.dev == nil {
		if m, err := assets.Load(s.assets, assets.ManifestFile); err == nil {
			s.resolver = assets.NewResolver(m, ui.AssetPrefix)
			s.logger.Info("asset manifest loaded", "entries", m.Len())
		}
	}

	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)

	// The reload socket outlives any request timeout.
	if s.dev != nil {
		r.Handle(dev.ReloadPath, s.dev.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
		if len(s.cfg.Server.CORSOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   s.cfg.Server.CORSOrigins,
				AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "traceparent"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		if s.metrics != nil {
			r.Use(s.metrics.Handler)
		}
		r.Use(middleware.OpenTelemetry(
			middleware.WithTracerName("cfsui/apiserver"),
			middleware.WithRequestFilter(func(r *http.Request) bool {
				return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
			}),
		))

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		if s.metrics != nil {
			r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		}
		r.Get("/assets/*", s.serveAsset)
		r.Head("/assets/*", s.serveAsset)

		r.Route(s.cfg.Server.APIRoot, func(r chi.Router) {
			s.protect(r)
			s.registerAPI(r)
		})
		r.Route(s.cfg.Server.Root, func(r chi.Router) {
			s.protect(r)
			r.Get("/", s.serveShell)
			r.Get("/*", s.serveShell)
		})
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, s.cfg.Server.Root+"/", http.StatusFound)
		})
	})

	return r
}

func (s *Server) protect(r chi.Router) {
	auth := s.cfg.Auth
	if !auth.Enabled() {
		return
	}
	r.Use(chimw.BasicAuth(auth.Realm, map[string]string{auth.Username: auth.Password}))
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Registry returns the Prometheus registry the server's metrics live in.
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// Metrics returns the server's collectors, or nil when metrics are disabled.
func (s *Server) Metrics() *middleware.Metrics { return s.metrics }

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String(), "ui", s.cfg.Server.Root, "api", s.cfg.Server.APIRoot)
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.dev != nil {
		s.dev.Stop()
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

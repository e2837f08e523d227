package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/vango-dev/elements/internal/logging"
	"github.com/vango-dev/elements/pkg/element"
	"github.com/vango-dev/elements/pkg/loader"
)

// Server serves the inspection API for one engine.
type Server struct {
	engine  *element.Engine
	loader  *loader.Loader
	config  *Config
	logger  *slog.Logger
	metrics http.Handler
	extra   []func(http.Handler) http.Handler

	router   chi.Router
	limiter  *rate.Limiter
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithMiddleware appends middleware that wraps every route, after
// request IDs are assigned.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Server) { s.extra = append(s.extra, mw...) }
}

// WithLoader sets the loader used by POST /documents. By default the
// server builds one over its engine.
func WithLoader(l *loader.Loader) Option {
	return func(s *Server) { s.loader = l }
}

// New creates a Server for engine. A nil config uses DefaultConfig.
func New(engine *element.Engine, config *Config, opts ...Option) *Server {
	config = config.withDefaults()
	s := &Server{
		engine:  engine,
		config:  config,
		logger:  slog.Default(),
		limiter: rate.NewLimiter(config.RateLimit, config.Burst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	if s.loader == nil {
		s.loader = loader.New(engine, loader.WithLogger(s.logger))
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.extra...)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, notFound("no route for "+r.URL.Path))
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/elements", s.handleElements)
	r.Get("/elements/{name}", s.handleElement)
	r.Get("/pending", s.handlePending)
	r.Get("/events", s.handleEvents)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(middleware.AllowContentType("application/json", "application/yaml", "application/x-yaml", "application/hcl", "text/plain"))
		r.Post("/definitions", s.handleDefine)
		r.Post("/declarations", s.handleDeclare)
		r.Post("/documents", s.handleDocument)
	})
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on the configured address until ctx is done, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ErrorLog:          logging.NewLogLogger(s.logger, slog.LevelWarn),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.WithoutCancel(ctx))
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Config returns the effective configuration.
func (s *Server) Config() *Config { return s.config }

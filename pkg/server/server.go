package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/lazyblog/pkg/deferred"
	"github.com/vango-dev/lazyblog/pkg/middleware"
	"github.com/vango-dev/lazyblog/pkg/navigation"
	"github.com/vango-dev/lazyblog/pkg/render"
	"github.com/vango-dev/lazyblog/pkg/router"
)

// Paths of the shell endpoints.
const (
	SocketPath = "/_shell/nav"
	ClientPath = "/_shell/client.js"
	HealthPath = "/healthz"
)

// Server serves documents and navigation sockets for one route table.
type Server struct {
	routes   *router.Router
	config   Config
	base     *slog.Logger
	logger   *slog.Logger
	renderer *render.Renderer
	upgrader websocket.Upgrader

	metrics  *middleware.Metrics
	gatherer prometheus.Gatherer
	tracing  bool

	title   func(*router.Match) string
	modules func() map[string]deferred.State
	page    render.PageData
	navOpts []navigation.Option

	handler    http.Handler
	httpServer *http.Server

	// sockets tracks open sockets so Shutdown can close them; hijacked
	// connections are not closed by http.Server.Shutdown.
	mu      sync.Mutex
	sockets map[*socket]struct{}
	closed  bool
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the configuration. Unset fields get defaults.
func WithConfig(c Config) Option {
	return func(s *Server) {
		s.config = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records HTTP, navigation and socket metrics in m and serves
// gatherer on the metrics path.
func WithMetrics(m *middleware.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithTracing enables the request tracing middleware.
func WithTracing(enabled bool) Option {
	return func(s *Server) {
		s.tracing = enabled
	}
}

// WithTitle sets the function computing the document title of a match.
func WithTitle(fn func(*router.Match) string) Option {
	return func(s *Server) {
		s.title = fn
	}
}

// WithModules exposes the module cache state on the health endpoint.
func WithModules(fn func() map[string]deferred.State) Option {
	return func(s *Server) {
		s.modules = fn
	}
}

// WithPage sets the document defaults: title, meta tags, styles. Body and
// Path are ignored.
func WithPage(page render.PageData) Option {
	return func(s *Server) {
		s.page = page
	}
}

// WithNavigationOptions adds options to every Navigator the server creates.
func WithNavigationOptions(opts ...navigation.Option) Option {
	return func(s *Server) {
		s.navOpts = append(s.navOpts, opts...)
	}
}

// New creates a server for routes.
func New(routes *router.Router, opts ...Option) (*Server, error) {
	if routes == nil {
		return nil, ErrNoRoutes
	}
	s := &Server{
		routes:  routes,
		config:  DefaultConfig(),
		logger:  slog.Default(),
		sockets: make(map[*socket]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.config = s.config.withDefaults()
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	s.base = s.logger
	s.logger = s.logger.With("component", "server")

	s.renderer = render.NewRenderer(render.RendererConfig{
		Pretty:       s.config.Pretty,
		ClientScript: ClientPath,
	})

	checkOrigin := s.config.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = sameHost
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin,
	}

	s.navOpts = append([]navigation.Option{navigation.WithLogger(s.base)}, s.navOpts...)
	if s.metrics != nil {
		s.navOpts = append(s.navOpts, navigation.WithObserver(s.metrics))
	}

	s.handler = s.buildHandler()
	return s, nil
}

func (s *Server) buildHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)
	if s.tracing {
		r.Use(middleware.Tracing(middleware.WithSpanFilter(func(r *http.Request) bool {
			return r.URL.Path != HealthPath && r.URL.Path != s.config.MetricsPath
		})))
	}
	if s.metrics != nil {
		r.Use(s.metrics.Handler)
	}

	r.Get(HealthPath, s.serveHealth)
	r.Get(ClientPath, serveClient)
	r.Head(ClientPath, serveClient)
	r.Get(SocketPath, s.serveSocket)
	if s.gatherer != nil {
		r.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/*", s.serveDocument)
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	srv := s.httpServer
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String(), "stream", s.config.Stream)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes the navigation sockets and gracefully stops the HTTP
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	s.closed = true
	sockets := make([]*socket, 0, len(s.sockets))
	for sock := range s.sockets {
		sockets = append(sockets, sock)
	}
	srv := s.httpServer
	s.mu.Unlock()

	for _, sock := range sockets {
		sock.close(websocket.CloseGoingAway, "server shutting down")
	}

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Config returns the effective configuration.
func (s *Server) Config() Config {
	return s.config
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Status  string            `json:"status"`
		Modules map[string]string `json:"modules,omitempty"`
	}{Status: "ok"}

	if s.modules != nil {
		states := s.modules()
		body.Modules = make(map[string]string, len(states))
		for k, st := range states {
			body.Modules[k] = st.String()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) documentTitle(m *router.Match) string {
	if s.title != nil {
		if t := s.title(m); t != "" {
			return t
		}
	}
	return s.page.Title
}

func (s *Server) pageData(path string, m *router.Match) render.PageData {
	page := s.page
	page.Path = path
	page.Title = s.documentTitle(m)
	page.Body = nil
	return page
}

// sameHost accepts sockets opened by pages of the same host, and clients
// that send no Origin header.
func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}

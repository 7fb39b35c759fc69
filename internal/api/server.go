// Package api exposes the index engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"whale-index-lab/internal/cache"
	"whale-index-lab/internal/config"
	"whale-index-lab/internal/logger"
	"whale-index-lab/internal/observability"
	"whale-index-lab/internal/service"
)

// requestTimeout bounds every /api request.
const requestTimeout = 30 * time.Second

// Options for creating a Server.
type Options struct {
	Service *service.Service
	Cache   *cache.Cache // optional; responses are computed per request without it
	Stream  http.Handler // optional WebSocket handler mounted at /ws/latest
	Metrics http.Handler // defaults to the Prometheus handler
	HTTP    config.HTTPConfig
	Name    string
	Logger  *logger.Logger
	Now     func() time.Time
}

// Server is the read-only HTTP API.
type Server struct {
	svc     *service.Service
	cache   *cache.Cache
	stream  http.Handler
	metrics http.Handler
	cfg     config.HTTPConfig
	name    string
	log     *logger.Logger
	now     func() time.Time

	limiter *rate.Limiter
	router  *mux.Router
	server  *http.Server
}

// NewServer creates a Server and registers its routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, errors.New("api: service is required")
	}
	s := &Server{
		svc:     opts.Service,
		cache:   opts.Cache,
		stream:  opts.Stream,
		metrics: opts.Metrics,
		cfg:     opts.HTTP,
		name:    opts.Name,
		log:     logger.OrNop(opts.Logger).Named("api"),
		now:     opts.Now,
	}
	if s.metrics == nil {
		s.metrics = observability.Handler()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.name == "" {
		s.name = "whale-index-lab"
	}
	if s.cfg.RateLimitRPS > 0 {
		burst := s.cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimitRPS), burst)
	}

	s.router = mux.NewRouter()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)

	s.router.HandleFunc("/", s.index).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	if s.stream != nil {
		s.router.Handle("/ws/latest", s.stream)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.Use(s.timeoutMiddleware)

	api.HandleFunc("/wai/latest", s.activityLatest).Methods(http.MethodGet)
	api.HandleFunc("/wai/history", s.activityHistory).Methods(http.MethodGet)
	api.HandleFunc("/wai/statistics", s.statistics).Methods(http.MethodGet)
	api.HandleFunc("/wai/comparison", s.comparison).Methods(http.MethodGet)
	api.HandleFunc("/wai/formula", s.formula).Methods(http.MethodGet)
	api.HandleFunc("/wii/latest", s.intentLatest).Methods(http.MethodGet)
	api.HandleFunc("/wii/history", s.intentHistory).Methods(http.MethodGet)
	api.HandleFunc("/signals/momentum", s.momentum).Methods(http.MethodGet)
	api.HandleFunc("/signals/confidence", s.confidence).Methods(http.MethodGet)
	api.HandleFunc("/backtest", s.backtest).Methods(http.MethodGet)
	api.HandleFunc("/analysis/lead-lag", s.leadLag).Methods(http.MethodGet)
	api.HandleFunc("/analysis/regime-detection", s.regimes).Methods(http.MethodGet)
	api.HandleFunc("/analysis/conditional-volatility", s.volatility).Methods(http.MethodGet)
	api.HandleFunc("/analysis/scientific-summary", s.summary).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no route for %s", r.URL.Path))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("http server listening", "addr", s.cfg.Addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Infow("shutting down http server")
	return s.server.Shutdown(shutdownCtx)
}

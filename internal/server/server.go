package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"instaweb/internal/config"
	"instaweb/internal/log"
	"instaweb/internal/service"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
	readHeaderTimeout       = 10 * time.Second
)

// Server is the public HTTP surface of the downloader.
type Server struct {
	address     string
	apiKey      string
	corsOrigins []string

	orch     *service.Orchestrator
	validate *validator.Validate
	logger   *zap.Logger
}

// New returns a new instance of the HTTP server.
func New(cfg *config.Config, orch *service.Orchestrator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		address:     cfg.Service.Address,
		apiKey:      cfg.Service.APIKey,
		corsOrigins: cfg.Transport.CORSAllowedOrigins,
		orch:        orch,
		validate:    newValidator(),
		logger:      logger.Named("http_server"),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(
		s.orch.Metrics().Handler,
		chiMiddleware.RequestID,
		log.Logger(s.logger, "access"),
		chiMiddleware.Recoverer,
	)
	if len(s.corsOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", apiKeyHeader},
			MaxAge:         300,
		}))
	}

	router.Get("/", s.index)
	router.Post("/start", s.start)
	router.Get("/events/{job_id}", s.events)
	router.Get("/download/{job_id}", s.download)
	router.Get("/healthz", s.healthz)
	router.Handle("/metrics", promhttp.HandlerFor(s.orch.Metrics().Gatherer(), promhttp.HandlerOpts{}))

	return router
}

// Run serves on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := http.Server{Handler: s.Handler(), ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		<-ctx.Done()
		s.logger.Info("shutdown signal received", zap.Error(ctx.Err()))
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		s.logger.Info("http server terminated")
	}()

	s.logger.Info("listening", zap.String("address", listener.Addr().String()))
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

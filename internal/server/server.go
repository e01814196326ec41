package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parking-lot/internal/parking"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(port string, useCase parking.UseCase, logger *slog.Logger, serviceName string) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "http"))

	router, err := NewRouter(useCase, logger, serviceName)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		logger:     logger,
	}, nil
}

// NewRouter wires the middleware stack and routes; it is separate from
// NewServer so tests can drive it through httptest.
func NewRouter(useCase parking.UseCase, logger *slog.Logger, serviceName string) (http.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	handler := NewHandler(useCase, logger, serviceName)

	httpMetrics := NewHTTPMetrics()
	registry, err := NewMetricsRegistry(useCase, httpMetrics, logger)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	r := chi.NewRouter()

	r.Use(RecoveryMiddleware(logger))
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(MetricsMiddleware(httpMetrics))
	r.Use(TracingMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	r.Route("/api/parking-lot", func(r chi.Router) {
		r.Post("/", handler.CreateParkingLot)
		r.Post("/park", handler.ParkVehicle)
		r.Post("/leave", handler.LeaveSlot)
		r.Get("/status", handler.GetStatus)
		r.Get("/report", handler.GetReport)
		r.Get("/types/{type}/count", handler.CountByType)
		r.Get("/plates/{parity}", handler.PlatesByParity)
		r.Get("/colors/{color}/registrations", handler.RegistrationsByColor)
		r.Get("/colors/{color}/slots", handler.SlotsByColor)
		r.Get("/find/{registration}", handler.FindByRegistration)
	})

	return r, nil
}

// Start blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", slog.String("url", s.URL()))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}

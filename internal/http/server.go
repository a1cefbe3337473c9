// Package http serves run metrics and a health check while a download run is in progress.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"spotifydlp/internal/core"
)

const (
	metricsNamespace = "spotifydlp"
	shutdownTimeout  = 10 * time.Second
)

type Server struct {
	config *core.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// Metrics records pipeline events on its own registry and implements core.MetricsRecorder.
type Metrics struct {
	registry       *prometheus.Registry
	RequestsTotal  *prometheus.CounterVec
	PagesTotal     *prometheus.CounterVec
	ItemsTotal     *prometheus.CounterVec
	DownloadsTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "catalog_requests_total",
				Help:      "Total number of catalog API requests",
			},
			[]string{"endpoint", "status"},
		),
		PagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "catalog_pages_total",
				Help:      "Total number of catalog pages read",
			},
			[]string{"entity"},
		),
		ItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "items_resolved_total",
				Help:      "Total number of items resolved from catalog entities",
			},
			[]string{"entity"},
		),
		DownloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "downloads_total",
				Help:      "Total number of download attempts by outcome",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.PagesTotal,
		m.ItemsTotal,
		m.DownloadsTotal,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordRequest(endpoint string, status int) {
	m.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func (m *Metrics) RecordPage(entity core.EntityType) {
	m.PagesTotal.WithLabelValues(string(entity)).Inc()
}

func (m *Metrics) RecordItems(entity core.EntityType, count int) {
	m.ItemsTotal.WithLabelValues(string(entity)).Add(float64(count))
}

func (m *Metrics) RecordDownload(status string) {
	m.DownloadsTotal.WithLabelValues(status).Inc()
}

func NewServer(config *core.ServerConfig, metrics *Metrics, logger *zap.Logger) *Server {
	return &Server{
		config: config,
		logger: logger,
		server: createHTTPServer(config, setupRoutes(metrics, logger)),
	}
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         config.MetricsAddr,
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func setupRoutes(metrics *Metrics, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok","service":"spotify-dlp"}`)); err != nil {
			logger.Debug("Failed to write health response", zap.Error(err))
		}
	})

	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	return mux
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting metrics server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Debug("Shutting down metrics server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown metrics server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}

	return nil
}

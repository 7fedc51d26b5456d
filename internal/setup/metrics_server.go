package setup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robalyx/retract/internal/metrics"
	"go.uber.org/zap"
)

// metricsServer serves Prometheus metrics and a health endpoint.
type metricsServer struct {
	srv      *http.Server
	listener net.Listener
}

func startMetricsServer(port int, collector *metrics.Collector, logger *zap.Logger) (*metricsServer, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		health := collector.Health()
		if health.Status == metrics.StatusCritical {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_, _ = fmt.Fprintln(w, health.Status)
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	logger.Info("Metrics server started", zap.String("addr", listener.Addr().String()))

	return &metricsServer{srv: srv, listener: listener}, nil
}

func (m *metricsServer) shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

// Package metrics exposes run progress to Prometheus: executed tests by
// fuzzer and result, skipped definitions by reason, and response times.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/waftester/contractfuzz/pkg/duration"
	"github.com/waftester/contractfuzz/pkg/pipeline"
	"github.com/waftester/contractfuzz/pkg/registry"
)

// Compile-time interface checks.
var (
	_ registry.Observer     = (*Collector)(nil)
	_ pipeline.SkipRecorder = (*Collector)(nil)
)

// Collector turns finalized records and skipped definitions into metrics.
// It registers into its own registry so tests and repeated runs never
// collide with the default one.
type Collector struct {
	registry *prometheus.Registry

	testsTotal          *prometheus.CounterVec
	skippedTotal        *prometheus.CounterVec
	responseTimeSeconds *prometheus.HistogramVec
}

// NewCollector creates and registers all metrics.
func NewCollector() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		testsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contractfuzz_tests_total",
				Help: "Total number of finalized test cases",
			},
			[]string{"fuzzer", "result"},
		),
		skippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contractfuzz_definitions_skipped_total",
				Help: "Custom test definitions that were not executed",
			},
			[]string{"fuzzer", "reason"},
		),
		responseTimeSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contractfuzz_response_time_seconds",
				Help:    "Response time distribution in seconds",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"fuzzer"},
		),
	}
	for _, col := range []prometheus.Collector{c.testsTotal, c.skippedTotal, c.responseTimeSeconds} {
		if err := c.registry.Register(col); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return c, nil
}

// Registry returns the registry the metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe implements registry.Observer.
func (c *Collector) Observe(rec registry.Record) {
	c.testsTotal.WithLabelValues(rec.Fuzzer, rec.Result.String()).Inc()
	if rec.Response != nil && rec.Response.Duration > 0 {
		c.responseTimeSeconds.WithLabelValues(rec.Fuzzer).Observe(rec.Response.Duration.Seconds())
	}
}

// DefinitionSkipped implements pipeline.SkipRecorder.
func (c *Collector) DefinitionSkipped(fuzzer, reason string) {
	c.skippedTotal.WithLabelValues(fuzzer, reason).Inc()
}

// Server serves the collector's metrics over HTTP.
type Server struct {
	srv *http.Server
	ln  net.Listener
	log *zap.Logger
}

// Serve starts serving /metrics on addr in the background.
func Serve(c *Collector, addr string, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	s := &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: duration.ReadHeader,
			WriteTimeout:      duration.Write,
		},
		ln:  ln,
		log: log,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", "http://"+ln.Addr().String()+"/metrics"))
	return s, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close shuts the server down.
func (s *Server) Close(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

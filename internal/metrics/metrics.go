package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/HannahMarsh/onion-circuit/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PEEL_TIME     = "onionPeelTime"
	LAYER_COUNT   = "onionLayerCounter"
	PAYLOAD_SIZE  = "onionPayloadSize"
	MSG_SENT      = "messagesSent"
	MSG_RECEIVED  = "messagesReceived"
	SEND_FAILURES = "sendFailures"
)

var registry = prometheus.NewRegistry()

var collectors = map[string]prometheus.Collector{
	PEEL_TIME: prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    PEEL_TIME,
		Help:    "Time spent peeling one layer, in seconds",
		Buckets: prometheus.DefBuckets,
	}),
	LAYER_COUNT: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: LAYER_COUNT,
			Help: "Number of layers handled by a relay, by final peel state",
		},
		[]string{"state"},
	),
	PAYLOAD_SIZE: prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    PAYLOAD_SIZE,
		Help:    "Size in bytes of payloads arriving at a relay",
		Buckets: prometheus.ExponentialBuckets(256, 2, 10),
	}),
	MSG_SENT: prometheus.NewCounter(prometheus.CounterOpts{
		Name: MSG_SENT,
		Help: "Number of messages a user handed to a first hop",
	}),
	MSG_RECEIVED: prometheus.NewCounter(prometheus.CounterOpts{
		Name: MSG_RECEIVED,
		Help: "Number of messages delivered to a user",
	}),
	SEND_FAILURES: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: SEND_FAILURES,
			Help: "Number of failed sends, by reason",
		},
		[]string{"reason"},
	),
}

// Collector exposes a collector by id, mostly for tests.
func Collector(id string) prometheus.Collector {
	return collectors[id]
}

func Observe(id string, value float64) {
	if collector, ok := collectors[id].(prometheus.Observer); ok {
		collector.Observe(value)
	} else {
		slog.Error("Failed to find observer", "id", id)
	}
}

func Inc(id string, labels ...any) {
	if len(labels) == 0 {
		if collector, ok := collectors[id].(prometheus.Counter); ok {
			collector.Inc()
		} else {
			slog.Error("Failed to find counter", "id", id)
		}
		return
	}
	if collector, ok := collectors[id].(*prometheus.CounterVec); ok {
		collector.WithLabelValues(utils.Map(labels, func(label any) string {
			return fmt.Sprintf("%v", label)
		})...).Inc()
	} else {
		slog.Error("Failed to find counterVec", "id", id)
	}
}

// Register adds the collectors to the exported registry. Registering twice is a no-op.
func Register(collectorIds ...string) {
	for _, id := range collectorIds {
		collector, ok := collectors[id]
		if !ok {
			slog.Error("Failed to find collector", "id", id)
			continue
		}
		if err := registry.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				slog.Error("Failed to register collector", "id", id, "err", err)
			}
		}
	}
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ServeMetrics exposes /metrics on prometheusPort until the returned shutdown is called.
func ServeMetrics(prometheusPort int, collectorIds ...string) (shutdown func()) {
	Register(collectorIds...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", prometheusPort),
		Handler: mux,
	}

	go func(server *http.Server) {
		slog.Info("Starting Prometheus server", "Addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start Prometheus server", "err", err)
		}
	}(server)

	return func() {
		slog.Info("Shutting down Prometheus server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Prometheus server forced to shutdown", "err", err)
		} else {
			slog.Info("Prometheus server gracefully stopped")
		}
	}
}

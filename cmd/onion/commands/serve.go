package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HannahMarsh/onion-circuit/config"
	"github.com/HannahMarsh/onion-circuit/internal/metrics"
	"github.com/HannahMarsh/onion-circuit/internal/onion/keys"
	"github.com/HannahMarsh/onion-circuit/internal/transport"
	"github.com/HannahMarsh/onion-circuit/pkg/utils"
	"github.com/pkg/errors"
)

var collectorIds = []string{
	metrics.PEEL_TIME, metrics.LAYER_COUNT, metrics.PAYLOAD_SIZE,
	metrics.MSG_SENT, metrics.MSG_RECEIVED, metrics.SEND_FAILURES,
}

// serve runs mux on port until SIGINT/SIGTERM or the global context ends.
// /metrics is mounted on mux, and on the dedicated Prometheus port when one is configured.
func serve(name string, port int, mux *http.ServeMux) error {
	cfg := config.GlobalConfig
	metrics.Register(collectorIds...)
	mux.Handle("/metrics", metrics.Handler())
	if cfg.PrometheusPort > 0 {
		shutdownMetrics := metrics.ServeMetrics(cfg.PrometheusPort, collectorIds...)
		defer shutdownMetrics()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", utils.ListenHost(cfg.Host), port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start HTTP server", "err", err)
			errs <- err
		}
	}()

	slog.Info("🌏 start "+name+"...", "address", server.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case v := <-quit:
		slog.Info("signal.Notify", "signal", v.String())
	case <-config.GlobalCtx.Done():
		slog.Info("ctx.Done")
	case runErr = <-errs:
	}
	config.GlobalCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "err", err)
	}
	return runErr
}

func openScheme() (keys.Scheme, error) {
	return keys.SchemeByName(config.GlobalConfig.Scheme)
}

// openTransport returns the configured transport. The AMQP transport is also returned
// on its own so the caller can consume its queue.
func openTransport() (transport.Transport, *transport.AMQPTransport, error) {
	cfg := config.GlobalConfig
	switch cfg.Transport.Kind {
	case "", "http":
		tr := transport.NewHTTPTransport(cfg.Host)
		tr.Client = &http.Client{Timeout: cfg.Transport.Timeout}
		return tr, nil, nil
	case "amqp":
		tr, err := transport.DialAMQP(cfg.Transport.AMQPURL)
		if err != nil {
			return nil, nil, err
		}
		return tr, tr, nil
	default:
		return nil, nil, errors.Errorf("unknown transport %q", cfg.Transport.Kind)
	}
}

// consume feeds the participant's AMQP queue into receive in the background.
func consume(tr *transport.AMQPTransport, address int, receive transport.ReceiveFunc) {
	if tr == nil {
		return
	}
	go func() {
		if err := tr.Consume(config.GlobalCtx, address, receive); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("AMQP consumer stopped", "queue", transport.QueueName(address), "err", err)
			config.GlobalCancel()
		}
	}()
}

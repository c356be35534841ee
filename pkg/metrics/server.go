package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jiayi-1994/tuplegen/pkg/logging"
)

const (
	// bindTimeout bounds the retries of a busy listen address
	bindTimeout = 10 * time.Second

	shutdownTimeout = 5 * time.Second
)

// Listen binds addr, retrying with exponential backoff while the address
// is busy (e.g. a previous run still releasing it).
func Listen(ctx context.Context, addr string, log *logging.Logger) (net.Listener, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = bindTimeout

	var ln net.Listener
	err := backoff.RetryNotify(func() error {
		var err error
		ln, err = net.Listen("tcp", addr)
		return err
	}, backoff.WithContext(bo, ctx), func(err error, d time.Duration) {
		log.Warn("Metrics listener bind failed, retrying", "address", addr, "error", err.Error(), "retryIn", d.String())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Handler returns the /metrics handler for Registry
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Serve registers the metrics and serves them on ln until ctx is done.
func Serve(ctx context.Context, ln net.Listener, log *logging.Logger) error {
	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		ReadHeaderTimeout: time.Second,
		Handler:           mux,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Metrics server listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down metrics server: %w", err)
	}
	log.Info("Metrics server stopped")
	return nil
}

// ListenAndServe binds addr and serves metrics until ctx is done.
func ListenAndServe(ctx context.Context, addr string, log *logging.Logger) error {
	ln, err := Listen(ctx, addr, log)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, log)
}

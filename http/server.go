package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/AwareRO/ipmap/http/handlers"
	"github.com/AwareRO/ipmap/metrics"
)

func RunServerWithMetrics(cfg *Config, router *httprouter.Router, collector metrics.Collector) {
	router.GET("/metrics", handlers.FromStdlib(collector.GetHttpHandler()))
	RunServer(cfg, router)
}

// RunServer serves until SIGHUP, SIGINT or SIGQUIT and then shuts down
// gracefully.
func RunServer(cfg *Config, handler http.Handler) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()

	if err := Serve(ctx, cfg, handler); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
		os.Exit(1)
	}
}

// Serve listens on cfg.Addr until ctx is done. Request contexts derive from
// ctx, so websocket sessions end when the server goes down.
func Serve(ctx context.Context, cfg *Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	log.Info().Str("addr", srv.Addr).Msg("Listening")

	errChan := make(chan error, 1)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP listen and serve")
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	gracefullCtx, cancelShutdown := context.WithTimeout(context.Background(), timeout)
	defer cancelShutdown()

	if err := srv.Shutdown(gracefullCtx); err != nil {
		return err
	}

	log.Info().Msg("gracefully stopped")

	return nil
}

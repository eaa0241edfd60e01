// Command checkengine is a demo CLI and embeddable HTTP server exercising
// pkg/engine end to end: submit a RunConfig, stream its events, inspect
// its result. Grounded on the teacher's pkg/server (cmd/server-equivalent
// wiring), trimmed to this engine's own domain (no gRPC/file-storage
// layers; auth is only an optional bearer-token check).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/checkrun-dev/engine/cmd/checkengine/httpapi"
	"github.com/checkrun-dev/engine/internal/config"
	"github.com/checkrun-dev/engine/internal/logger"
	"github.com/checkrun-dev/engine/internal/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "checkengine:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracer, err := tracing.NewProvider(ctx, tracing.Config{
		Enabled:     os.Getenv("CHECKRUN_TRACING_ENABLED") == "true",
		ServiceName: "checkengine",
		Endpoint:    os.Getenv("CHECKRUN_OTLP_ENDPOINT"),
		Insecure:    true,
		SampleRate:  1.0,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer tracer.Shutdown(context.Background())

	srv, err := httpapi.New(cfg, log, tracer)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).Msg("checkengine starting")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info().Str("signal", sig.String()).Msg("checkengine shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	}
}

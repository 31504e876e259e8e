package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/api"
	"github.com/roach88/rewind/internal/config"
	"github.com/roach88/rewind/internal/counter"
)

// ShutdownTimeout bounds graceful HTTP shutdown.
const ShutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP",
		Long: `Start an engine and expose it over HTTP.

The API accepts actions on /dispatch, streams snapshots on /events and
serves Prometheus metrics on /metrics. Unless the counter backend is
itself remote, the counter service is mounted under /counter.

Example:
  rewind serve --addr :8080
  rewind serve --journal ./rewind.db --counter-backend redis --redis-addr localhost:6379`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	addEngineFlags(cmd)

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, opts.Verbose, cmd.ErrOrStderr())

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("error releasing resources", "error", err)
		}
	}()

	apiOpts := []api.Option{
		api.WithLogger(logger),
		api.WithMount("/metrics", a.metrics.Handler()),
	}
	if cfg.Counter.Backend != config.BackendHTTP {
		apiOpts = append(apiOpts, api.WithMount("/counter", counter.NewHandler(a.counter, logger)))
	}
	apiServer := api.NewServer(a.engine, apiOpts...)
	srv := &http.Server{
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(apiServer.CloseStreams)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- a.engine.Run(ctx)
	}()

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Serve(ln)
	}()

	logger.Info("server listening", "addr", ln.Addr().String(), "run", a.engine.RunID())
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", ln.Addr())

	select {
	case err := <-serverErrors:
		stop()
		<-engineDone
		return WrapExitError(ExitFailure, "server error", err)

	case <-ctx.Done():
		logger.Info("shutting down", "cause", context.Cause(ctx))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", ShutdownTimeout, "error", err)
			if err := srv.Close(); err != nil {
				logger.Error("error killing server", "error", err)
			}
		}
		if err := <-serverErrors; err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
		if err := <-engineDone; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return WrapExitError(ExitFailure, "engine error", err)
		}
	}

	logger.Info("server stopped gracefully")
	return nil
}

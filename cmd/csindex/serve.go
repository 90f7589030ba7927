package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/csindex/internal/transport/chi"
	"github.com/kailas-cloud/csindex/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var setup bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP admin and search API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := opts.cfg, opts.logger
			logger.Info("Starting csindex API server",
				zap.String("build", version.String()),
				zap.String("env", opts.env),
				zap.Int("http_port", cfg.HTTP.Port),
				zap.String("region", cfg.CloudSearch.Region),
				zap.String("domain_prefix", cfg.CloudSearch.DomainPrefix),
			)

			if opts.env == "prod" && !version.IsRelease() {
				logger.Warn("Running an unstamped build in prod")
			}

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if setup {
				if err := a.services.Reconciler.Run(cmd.Context()); err != nil {
					return fmt.Errorf("initial setup: %w", err)
				}
				logger.Info("Initial setup finished", zap.Bool("converged", a.services.Reconciler.Converged()))
			}

			server := chiTransport.NewServer(a.services, chiTransport.Options{
				APIKeys:    cfg.Auth.APIKeys,
				AccessIP:   cfg.CloudSearch.IPAddress,
				RetryAfter: a.interval,
			}, logger)

			addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
			srv := &http.Server{
				Addr:         addr,
				Handler:      server.Routes(),
				ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
				WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
			}

			// Graceful shutdown
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case <-quit:
				logger.Info("Received shutdown signal")
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown", zap.Error(err))
			}

			logger.Info("Server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().BoolVar(&setup, "setup", false, "reconcile every index before serving")
	return cmd
}

// ABOUTME: `sigmachain serve` starts the HTTP API and shuts it down gracefully on SIGINT/SIGTERM.
// ABOUTME: The listen address comes from --addr, SIGMACHAIN_SERVER_ADDR, or the config file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saicharanallam/sigmachain/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := c.newLogger(false)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			a, err := newApp(c.cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(a, logger)

			srv, err := web.NewServer(web.ServerConfig{
				Addr:            c.cfg.Server.Addr,
				CORSOrigins:     c.cfg.Server.CORSOrigins,
				ReadTimeout:     c.cfg.Server.ReadTimeout,
				WriteTimeout:    c.cfg.Server.WriteTimeout,
				ShutdownTimeout: c.cfg.Server.ShutdownTimeout,
				RunTimeout:      c.cfg.Server.RunTimeout,
				Engine:          a.engine,
				Catalog:         a.catalog,
				Images:          a.images,
				Metrics:         a.registry,
				StepOptions:     a.stepOptions,
				Logger:          logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger.Info("starting sigmachain", zap.String("version", version), zap.Strings("steps", c.cfg.Pipeline.Steps))
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().String("addr", ":8000", "listen address")
	_ = c.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

// closeApp flushes the app's exporters, logging any failure.
func closeApp(a *app, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		logger.Warn("shutdown failed", zap.Error(err))
	}
}

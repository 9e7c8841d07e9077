package main

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/squadlab/posrating/internal/config"
	"github.com/squadlab/posrating/internal/httpapi"
	"github.com/squadlab/posrating/internal/mcpserver"
	"github.com/squadlab/posrating/internal/monitor"
)

func newServeCmd() *cobra.Command {
	var noMCP bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rating API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, serviceOptions{storage: true, metrics: true}, func(ctx context.Context, a *app) error {
				return serve(ctx, a, !noMCP)
			})
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noMCP, "no-mcp", false, "do not mount the MCP endpoint at /mcp")
	_ = viper.BindPFlag("http.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func serve(ctx context.Context, a *app, withMCP bool) error {
	httpCfg := config.GetHTTPConfig()

	opts := httpapi.Options{
		AllowedOrigins: httpCfg.AllowedOrigins,
		RequestTimeout: httpCfg.RequestTimeout,
	}
	if withMCP {
		opts.MCP = mcpserver.Handler(mcpserver.New(a.svc, CurrentVersion))
	}

	monitorDeps := monitor.Dependencies{
		LogManager:    a.LogManager,
		WorkerManager: a.workers,
		Cache:         a.cache,
		StartedAt:     a.sessionStart,
	}
	if dir := viper.GetString("logsDir"); dir != "" {
		monitorDeps.StatusPath = filepath.Join(dir, ServiceName+".status.json")
	}
	if a.influx != nil {
		monitorDeps.Sink = a.influx
	}
	statusMonitor := monitor.NewService(monitorDeps)
	if err := statusMonitor.Start(); err != nil {
		return err
	}
	defer statusMonitor.Stop()

	srv := &http.Server{
		Addr:              httpCfg.Addr,
		Handler:           httpapi.NewRouter(a.svc, a.LogManager, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("HTTP server listening", "addr", srv.Addr, "mcp", withMCP)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("Stopping HTTP server")
	shutdownCtx, cancel := shutdownContext()
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

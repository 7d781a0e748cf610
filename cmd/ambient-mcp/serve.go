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

	"ambientmcp/internal/backend"
	"ambientmcp/internal/logging"
	"ambientmcp/internal/mcp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const metricsShutdownTimeout = 5 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio (default)",
		Long: "Serve MCP JSON-RPC on stdin/stdout until stdin closes or SIGINT/SIGTERM arrives.\n" +
			"Logs go to stderr. When metrics_addr is configured, Prometheus metrics are served on /metrics.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	start := time.Now()

	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := newClient(cfg, logger, backend.NewMetrics(reg))
	if err != nil {
		return err
	}
	defer client.Close()

	srv := mcp.NewServer(client, logger, mcp.ServerInfo{Name: serverName, Version: version})
	logger.LogPerformance("startup", start)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, srv, cmd, cfg.MetricsAddr, reg, logger)
}

// serve runs the stdio transport and, when metricsAddr is set, the metrics
// endpoint. Either one stopping stops the other.
func serve(ctx context.Context, srv *mcp.Server, cmd *cobra.Command, metricsAddr string, reg *prometheus.Registry, logger *logging.AppLogger) error {
	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		return srv.Serve(runCtx, cmd.InOrStdin(), cmd.OutOrStdout())
	})

	if metricsAddr != "" {
		metricsSrv := &http.Server{
			Addr:              metricsAddr,
			Handler:           metricsHandler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.Info("Serving metrics", "addr", metricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-runCtx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancelShutdown()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"openccp/internal/api"
	"openccp/internal/cmdlog"
	"openccp/internal/jobs"
	"openccp/internal/logging"
	"openccp/internal/metrics"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API with scheduled and triggered recomputes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("serve", func() error { return serve(cmd.Context()) })
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (overrides server.addr)")
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()
	rc := a.cfg.Recompute
	disp := jobs.NewDispatcher(a.orch, rc.TriggerRPS, rc.TriggerBurst, rc.QueueSize)
	a.svc = newService(a.cfg, a.db, a.orch, disp)
	go func() { _ = disp.Run(ctx) }()

	if rc.Schedule != "" {
		sched, err := jobs.NewScheduler(rc.Schedule, a.orch)
		if err != nil {
			return err
		}
		sched.Start(ctx)
		logging.Info("scheduler_started", map[string]any{"schedule": rc.Schedule, "next": sched.Next()})
	}
	metrics.StartServer(a.cfg.Server.MetricsAddr)

	addr := a.cfg.Server.Addr
	if flagAddr != "" {
		addr = flagAddr
	}
	srv := &http.Server{Addr: addr, Handler: api.NewRouter(a.svc, a.db), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logging.Info("http_listen", map[string]any{"addr": addr})

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logging.Info("http_shutdown", nil)
	return srv.Shutdown(shutdownCtx)
}

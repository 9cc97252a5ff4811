package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/blackpanther093/manage/cron"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the metrics listener until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			cfg, log, app, err := opts.build(reg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer app.Close()

			app.Start(ctx)
			for _, e := range app.Scheduler.Entries() {
				log.Info("scheduled", zap.String("chain_name", e.Name), zap.String("spec", e.Spec), zap.Time("next", e.Next))
			}

			var srv *http.Server
			errCh := make(chan error, 1)
			if cfg.HTTP.Addr != "" {
				srv = &http.Server{Addr: cfg.HTTP.Addr, Handler: newRouter(reg, app, app.Scheduler)}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
					}
				}()
				log.Info("metrics listener started", zap.String("addr", cfg.HTTP.Addr))
			}

			select {
			case <-ctx.Done():
				log.Info("shutting down")
			case err = <-errCh:
				log.Error("metrics listener failed", zap.Error(err))
			}

			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
				defer cancel()
				if serr := srv.Shutdown(shutdownCtx); serr != nil {
					log.Error("metrics listener shutdown failed", zap.Error(serr))
				}
			}
			return err
		},
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

type scheduled interface {
	Entries() []cron.Entry
}

// newRouter serves liveness, readiness and metrics
func newRouter(reg *prometheus.Registry, db pinger, sched scheduled) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := db.Ping(req.Context()); err != nil {
			http.Error(w, "database unavailable: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if len(sched.Entries()) == 0 {
			http.Error(w, "no scheduled chains", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ready"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	return r
}

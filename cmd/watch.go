package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gdex-tools/datahelp-router/internal/jira"
	"github.com/gdex-tools/datahelp-router/internal/metrics"
	"github.com/gdex-tools/datahelp-router/internal/router"
)

var (
	watchInterval time.Duration
	watchListen   string
	watchWorkers  int
	watchResume   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Route the team queues periodically",
	Long: `Runs a routing pass over both team queues every --interval until interrupted.
With --since-last, service passes resume after the last checked ticket. Prometheus metrics are served on /metrics and liveness on /healthz.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		if watchInterval <= 0 {
			return errors.New("--interval must be positive")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var lastPass atomic.Int64
		srv := &http.Server{
			Addr:              watchListen,
			Handler:           statusRouter(&lastPass, watchInterval),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("http listen", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("listen", zap.Error(err))
				stop()
			}
		}()

		client := jira.NewClient(appConfig, log)
		dir := newDirectory()

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		for {
			watchPass(ctx, client, dir)
			lastPass.Store(time.Now().Unix())

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
				log.Info("shutdown complete")
				return nil
			case <-ticker.C:
			}
		}
	},
}

// watchPass routes both queues once. Failures are logged and the next tick retries.
func watchPass(ctx context.Context, tr router.Tracker, dir router.Resolver) {
	afterKey := ""
	if watchResume {
		afterKey = appConfig.LastCheckedTicket
	}
	reports, err := newRouter(dir, false, watchWorkers, afterKey).Run(ctx, tr)
	if err != nil {
		log.Error("routing pass incomplete", zap.Error(err))
	}
	for _, rep := range reports {
		log.Info("queue pass", zap.Stringer("report", rep), zap.String("run_id", rep.RunID))
		if rep.Queue == router.QueueService {
			recordWatermark(rep)
		}
	}
}

// statusRouter serves metrics and a liveness check that fails once no pass
// has finished for three intervals.
func statusRouter(lastPass *atomic.Int64, interval time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	metrics.Register(r)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		last := lastPass.Load()
		if last == 0 || time.Since(time.Unix(last, 0)) > 3*interval {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("stale"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Minute, "time between routing passes")
	watchCmd.Flags().StringVar(&watchListen, "listen", ":9090", "address for /metrics and /healthz")
	watchCmd.Flags().IntVarP(&watchWorkers, "workers", "w", 0, "tickets processed concurrently (default from config)")
	watchCmd.Flags().BoolVar(&watchResume, "since-last", false, "only consider service tickets after the last checked ticket")
	rootCmd.AddCommand(watchCmd)
}

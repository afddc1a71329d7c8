package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecomputeRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openccp_recompute_runs_total",
		Help: "Total camp recompute runs by final state",
	}, []string{"state"})
	RecomputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "openccp_recompute_duration_seconds",
		Help:    "Camp recompute duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	RecomputeInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "openccp_recompute_inflight",
		Help: "Camp recompute runs currently in flight",
	})
	AccountsScored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "openccp_accounts_scored_total",
		Help: "Accounts scored across all recompute runs",
	})
	AccountsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "openccp_accounts_skipped_total",
		Help: "Accounts skipped after a partial failure",
	})
	TriggersDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "openccp_recompute_triggers_dropped_total",
		Help: "Asynchronous recompute triggers dropped because the queue was full",
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openccp_command_runs_total",
		Help: "CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openccp_command_errors_total",
		Help: "CLI command errors",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(RecomputeRuns, RecomputeDuration, RecomputeInflight, AccountsScored,
		AccountsSkipped, TriggersDropped, CommandRuns, CommandErrors)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// StartServer starts a separate metrics HTTP server on addr (e.g., ":9090"). Empty addr is a no-op.
func StartServer(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

// ObserveRecompute records a finished run.
func ObserveRecompute(state string, start time.Time) {
	RecomputeRuns.WithLabelValues(state).Inc()
	RecomputeDuration.Observe(time.Since(start).Seconds())
}

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }

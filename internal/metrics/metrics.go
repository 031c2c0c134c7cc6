package metrics

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce    sync.Once
	serverMutex sync.Mutex
	currentSrv  *http.Server

	// StepsTotal counts executed steps by kind and outcome
	StepsTotal *prometheus.CounterVec

	// StepDuration tracks how long individual steps take
	StepDuration prometheus.Histogram

	// RunDuration tracks how long full teardown runs take
	RunDuration prometheus.Histogram

	// RunLastTimestamp records the Unix timestamp of the last completed run
	RunLastTimestamp prometheus.Gauge

	// AuditErrorsTotal counts audit-trail write failures (never fatal)
	AuditErrorsTotal prometheus.Counter
)

// Init initializes and registers all metrics.
// Safe to call multiple times (uses sync.Once).
func Init() {
	initOnce.Do(func() {
		StepsTotal = NewCounterVec(
			"winsweep_steps_total",
			"Total teardown steps executed, by kind and outcome.",
			[]string{"kind", "outcome"},
		)
		StepDuration = NewDurationHistogram(
			"winsweep_step_duration_seconds",
			"Duration of individual teardown steps in seconds.",
		)
		RunDuration = NewDurationHistogram(
			"winsweep_run_duration_seconds",
			"Duration of full teardown runs in seconds.",
		)
		RunLastTimestamp = NewGauge(
			"winsweep_run_last_timestamp",
			"Timestamp of the last completed run (Unix epoch seconds).",
		)
		AuditErrorsTotal = NewCounter(
			"winsweep_audit_errors_total",
			"Total failures writing the step audit trail.",
		)

		prometheus.MustRegister(
			StepsTotal,
			StepDuration,
			RunDuration,
			RunLastTimestamp,
			AuditErrorsTotal,
		)
	})
}

// RecordStep updates the per-step metrics
func RecordStep(kind, outcome string, d time.Duration) {
	StepsTotal.WithLabelValues(kind, outcome).Inc()
	StepDuration.Observe(d.Seconds())
}

// RecordRun updates the per-run metrics
func RecordRun(d time.Duration) {
	RunDuration.Observe(d.Seconds())
	RunLastTimestamp.Set(float64(time.Now().Unix()))
}

// StartServer exposes /metrics and /health on addr for the duration of the
// run. Used when a fleet scrapes decommission progress.
func StartServer(addr string, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Printf("metrics server already running on %s", currentSrv.Addr)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	currentSrv = &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := currentSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server error: %v", err)
		}
	}()
}

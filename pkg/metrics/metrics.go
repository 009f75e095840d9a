package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Reconciliation metrics
	ReconciliationCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbsched_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles by result",
		},
		[]string{"result"},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nbsched_reconciliation_duration_seconds",
			Help:    "Time taken by one reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbsched_actions_total",
			Help: "Orchestrator mutations issued by kind and outcome",
		},
		[]string{"action", "outcome"},
	)

	TasksCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nbsched_tasks_completed_total",
			Help: "Total number of tasks whose workload succeeded and was cleaned up",
		},
	)

	// Queue and cluster gauges, refreshed every cycle
	QueuedTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbsched_queued_tasks",
			Help: "Number of task rows in the queue",
		},
	)

	ActiveWorkloads = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbsched_active_workloads",
			Help: "Number of non-succeeded notebook workloads in the cluster",
		},
	)

	RunningWorkloads = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbsched_running_workloads",
			Help: "Number of workloads reporting Running at the last poll",
		},
	)

	AvailableSlots = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbsched_available_slots",
			Help: "Admission slots computed in the last cycle",
		},
	)

	// Poller metrics
	ProbeResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbsched_probe_results_total",
			Help: "Status probe outcomes by result",
		},
		[]string{"result"},
	)

	// Trigger metrics
	TriggersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbsched_triggers_total",
			Help: "Reconciliation triggers by source",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(TasksCompleted)
	prometheus.MustRegister(QueuedTasks)
	prometheus.MustRegister(ActiveWorkloads)
	prometheus.MustRegister(RunningWorkloads)
	prometheus.MustRegister(AvailableSlots)
	prometheus.MustRegister(ProbeResultsTotal)
	prometheus.MustRegister(TriggersTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

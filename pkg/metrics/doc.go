/*
Package metrics exposes Prometheus metrics and component health for nbsched.

All collectors are package-level variables registered with the default
registry in init(). The reconciler, poller and trigger loop update them inline
while they work; there is no background collector, so every value reflects the
last cycle that actually ran.

# Metrics

	nbsched_reconciliation_cycles_total{result}     ok | aborted | error
	nbsched_reconciliation_duration_seconds         histogram
	nbsched_actions_total{action,outcome}           create_workload, delete_endpoint, ...
	nbsched_tasks_completed_total
	nbsched_queued_tasks / nbsched_active_workloads / nbsched_running_workloads
	nbsched_available_slots
	nbsched_probe_results_total{result}             status | empty | not_ready | error
	nbsched_triggers_total{source}                  bootstrap | command | idle | manual

# Usage

	timer := metrics.NewTimer()
	// ... one cycle ...
	timer.ObserveDuration(metrics.ReconciliationDuration)

	metrics.ActionsTotal.WithLabelValues("create_workload", "ok").Inc()

# Health

RegisterComponent/UpdateComponent record per-component health. Readiness
requires the queue, orchestrator and trigger components to be registered and
healthy. HealthHandler, ReadyHandler and LivenessHandler serve the results as
JSON; pkg/api mounts them.
*/
package metrics

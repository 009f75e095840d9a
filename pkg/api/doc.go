/*
Package api serves the daemon's HTTP health and metrics endpoints.

The server is optional and only started when a metrics address is
configured ("nbsched run --metrics-addr :9090").

# Endpoints

	GET /health    200 while the process runs, with component details
	GET /ready     200 when queue, orchestrator and trigger are healthy, else 503
	GET /live      liveness probe
	GET /metrics   Prometheus exposition

Readiness reflects the last reconciliation cycle: a cycle that could not
read the queue or list workloads marks the corresponding component
unhealthy until a later cycle succeeds.
*/
package api

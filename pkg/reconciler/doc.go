/*
Package reconciler drives the cluster toward the task queue.

The queue is the desired state: every row should have exactly one notebook
workload (a Kubernetes Job named notebook-NN) and one endpoint (a NodePort
Service named nb-entrypoint-NN) while it is active. The reconciler compares
the queue with the workloads it owns and issues the creates and deletes that
close the gap, subject to a parallelism limit.

# Cycle

	┌──────────────────────────────────────────────────────────┐
	│                 Reconcile(ctx, settings)                  │
	└───────────────┬──────────────────────────────────────────┘
	                │
	                ▼
	  1. list workloads ──── failure ───▶ abort, no action
	                │
	                ▼
	  2. completion sweep: succeeded job ─▶ delete row, job, service
	                │
	                ▼
	  3. list tasks ──────── failure ───▶ abort
	                │
	                ▼
	  4. poll statuses ─▶ running ─▶ slots = max(0, limit - running)
	                │
	                ▼
	  5. ComputePlan(desired, actual, slots)
	                │
	      ┌─────────┴──────────┐
	      ▼                    ▼
	  delete orphans      create admitted (lowest id first)
	                │
	                ▼
	  6. endpoint check (bootstrap only): recreate missing services

Completed ids are excluded from the desired set for the rest of the cycle,
so a task whose row could not be deleted is never restarted.

# Planning

The plan is computed by pure functions over id sets:

	Diff(desired, actual)           missing and orphan ids, ascending
	Slots(limit, running)           free admission slots
	Admit(missing, slots)           first slots ids, the rest stays pending
	MissingEndpoints(d, w, e)       desired ids with a workload but no endpoint
	ComputePlan(desired, actual, n) all of the above in one Plan

There is no priority and no preemption. A task that is not admitted stays
pending and is reconsidered next cycle.

# Failure Handling

Listing failures abort the cycle and return an error wrapping
ErrCycleAborted. A failed poll admits nothing. Every individual create or
delete is isolated: it is logged, counted in nbsched_actions_total and
retried implicitly by the next cycle. Deleting something already gone and
creating an endpoint that already exists count as success.

# Usage

	rec := reconciler.New(client, store, poller.New(client, store, poller.Options{}), broker)
	if err := rec.Reconcile(ctx, settings, reconciler.Options{CheckEndpoints: true}); err != nil {
		logger.Error().Err(err).Msg("Reconciliation failed")
	}
*/
package reconciler

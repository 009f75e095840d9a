/*
Package poller folds the self-reported status of notebook workloads into
the task queue.

Each notebook container keeps its lifecycle state (Ready, Running, Finished)
in a status file. Every cycle the poller execs the probe command in each
active workload, reads output lines until one fails to arrive within the
read timeout, and keeps the last recognized value. Unknown lines are
ignored. A workload with no running pod is skipped until a later cycle.

Poll returns the number of Running tasks, which the reconciler subtracts
from the parallel limit to get admission slots. Failing to list workloads
or tasks returns an error wrapping ErrPollAborted.
*/
package poller

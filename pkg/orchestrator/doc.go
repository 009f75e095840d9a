/*
Package orchestrator is the blocking façade nbsched uses to talk to Kubernetes.

A notebook workload is a batch/v1 Job named notebook-NN; its endpoint is a
NodePort Service named nb-entrypoint-NN. Both names and the external port are
derived from the task id (see pkg/types), so the client keeps no state.

# Operations

	CreateWorkload / ListWorkloads / DeleteWorkload    Jobs
	CreateEndpoint / ListEndpoints / DeleteEndpoint    Services
	ExecProbe                                          pods/exec on the job's running pod

Calls never retry. Every failure is an *Error whose Kind is one of
ErrUnavailable, ErrMutationFailed, ErrNotFound, ErrAlreadyExists or
ErrProbeNotReady, so callers branch with errors.Is.

# Exec Streams

ExecProbe returns a LineReader. The exec runs in a goroutine writing into a
pipe; LineStream scans the pipe and hands out one line per Next call, waiting
at most the given timeout. Closing the reader cancels the exec.

	reader, err := client.ExecProbe(ctx, "notebook-05", []string{"sh", "-c", "cat /tmp/nb-status"})
	if errors.Is(err, orchestrator.ErrProbeNotReady) {
		// try again next cycle
	}
	defer reader.Close()
	for {
		line, ok := reader.Next(3 * time.Second)
		if !ok {
			break
		}
		// ...
	}

The orchestratortest subpackage provides an in-memory Client for tests.
*/
package orchestrator

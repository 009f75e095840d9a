package orchestrator

import (
	"context"
	"time"

	"github.com/cuemby/nbsched/pkg/types"
)

// WorkloadSpec describes a notebook workload to create
type WorkloadSpec struct {
	ID        int
	Owner     string
	Program   string
	Resources types.Resources
}

// Client is the blocking façade over the cluster API. Implementations do not
// retry; a failed call is retried by the next reconciliation cycle.
type Client interface {
	CreateWorkload(ctx context.Context, spec WorkloadSpec) error
	ListWorkloads(ctx context.Context) ([]types.Workload, error)
	DeleteWorkload(ctx context.Context, id int) error

	CreateEndpoint(ctx context.Context, id int) error
	ListEndpoints(ctx context.Context) ([]int, error)
	DeleteEndpoint(ctx context.Context, id int) error

	// ExecProbe runs command inside the named workload and streams its
	// standard output line by line. It fails with ErrProbeNotReady when the
	// workload has no running pod to exec into.
	ExecProbe(ctx context.Context, workloadName string, command []string) (LineReader, error)
}

// LineReader yields the output of an exec one line at a time
type LineReader interface {
	// Next waits at most timeout for the next line. ok is false when the
	// stream ended or nothing arrived in time.
	Next(timeout time.Duration) (line string, ok bool)

	// Close abandons the stream and releases the exec session
	Close() error
}

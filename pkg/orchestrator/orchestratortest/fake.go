// Package orchestratortest provides an in-memory orchestrator.Client that
// records every call.
package orchestratortest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/nbsched/pkg/orchestrator"
	"github.com/cuemby/nbsched/pkg/types"
)

// Call is one recorded mutation, e.g. {"create_workload", 5}
type Call struct {
	Op string
	ID int
}

// Client is a fake cluster. The zero value is not usable; use New.
type Client struct {
	mu sync.Mutex

	workloads map[int]types.Workload
	specs     map[int]orchestrator.WorkloadSpec
	endpoints map[int]bool

	// Probe output per workload name. A missing entry means not ready.
	ProbeOutput map[string][]string

	// ProbeReaders overrides ProbeOutput with a custom reader
	ProbeReaders map[string]orchestrator.LineReader

	// Injected failures
	ListWorkloadsErr error
	ListEndpointsErr error
	FailCreate       map[int]bool
	FailDelete       map[int]bool
	FailEndpoint     map[int]bool

	Calls  []Call
	Probes []string
}

// New returns an empty fake cluster
func New() *Client {
	return &Client{
		workloads:    make(map[int]types.Workload),
		specs:        make(map[int]orchestrator.WorkloadSpec),
		endpoints:    make(map[int]bool),
		ProbeOutput:  make(map[string][]string),
		ProbeReaders: make(map[string]orchestrator.LineReader),
		FailCreate:   make(map[int]bool),
		FailDelete:   make(map[int]bool),
		FailEndpoint: make(map[int]bool),
	}
}

// AddWorkload seeds a workload and, when withEndpoint is set, its endpoint
func (c *Client) AddWorkload(id int, succeeded bool, withEndpoint bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workloads[id] = types.Workload{ID: id, Name: types.WorkloadName(id), Succeeded: succeeded}
	if withEndpoint {
		c.endpoints[id] = true
	}
}

// SetSucceeded marks a workload as completed
func (c *Client) SetSucceeded(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.workloads[id]
	w.Succeeded = true
	c.workloads[id] = w
}

// HasWorkload reports whether a workload exists
func (c *Client) HasWorkload(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.workloads[id]
	return ok
}

// HasEndpoint reports whether an endpoint exists
func (c *Client) HasEndpoint(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoints[id]
}

// Spec returns the spec a workload was created with
func (c *Client) Spec(id int) (orchestrator.WorkloadSpec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	spec, ok := c.specs[id]
	return spec, ok
}

// IDs returns the recorded mutation ids for op, in call order
func (c *Client) IDs(op string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []int
	for _, call := range c.Calls {
		if call.Op == op {
			ids = append(ids, call.ID)
		}
	}
	return ids
}

// ResetCalls forgets recorded calls
func (c *Client) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = nil
	c.Probes = nil
}

func (c *Client) record(op string, id int) {
	c.Calls = append(c.Calls, Call{Op: op, ID: id})
}

// CreateWorkload implements orchestrator.Client
func (c *Client) CreateWorkload(ctx context.Context, spec orchestrator.WorkloadSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("create_workload", spec.ID)

	name := types.WorkloadName(spec.ID)
	if c.FailCreate[spec.ID] {
		return &orchestrator.Error{Op: "create workload", Name: name, Kind: orchestrator.ErrMutationFailed, Err: fmt.Errorf("injected failure")}
	}
	if _, ok := c.workloads[spec.ID]; ok {
		return &orchestrator.Error{Op: "create workload", Name: name, Kind: orchestrator.ErrAlreadyExists}
	}
	c.workloads[spec.ID] = types.Workload{ID: spec.ID, Name: name}
	c.specs[spec.ID] = spec
	return nil
}

// ListWorkloads implements orchestrator.Client
func (c *Client) ListWorkloads(ctx context.Context) ([]types.Workload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ListWorkloadsErr != nil {
		return nil, &orchestrator.Error{Op: "list workloads", Kind: orchestrator.ErrUnavailable, Err: c.ListWorkloadsErr}
	}
	out := make([]types.Workload, 0, len(c.workloads))
	for _, w := range c.workloads {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteWorkload implements orchestrator.Client
func (c *Client) DeleteWorkload(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("delete_workload", id)

	name := types.WorkloadName(id)
	if c.FailDelete[id] {
		return &orchestrator.Error{Op: "delete workload", Name: name, Kind: orchestrator.ErrMutationFailed, Err: fmt.Errorf("injected failure")}
	}
	if _, ok := c.workloads[id]; !ok {
		return &orchestrator.Error{Op: "delete workload", Name: name, Kind: orchestrator.ErrNotFound}
	}
	delete(c.workloads, id)
	delete(c.specs, id)
	return nil
}

// CreateEndpoint implements orchestrator.Client
func (c *Client) CreateEndpoint(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("create_endpoint", id)

	name := types.EndpointName(id)
	if c.FailEndpoint[id] {
		return &orchestrator.Error{Op: "create endpoint", Name: name, Kind: orchestrator.ErrMutationFailed, Err: fmt.Errorf("injected failure")}
	}
	if c.endpoints[id] {
		return &orchestrator.Error{Op: "create endpoint", Name: name, Kind: orchestrator.ErrAlreadyExists}
	}
	c.endpoints[id] = true
	return nil
}

// ListEndpoints implements orchestrator.Client
func (c *Client) ListEndpoints(ctx context.Context) ([]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ListEndpointsErr != nil {
		return nil, &orchestrator.Error{Op: "list endpoints", Kind: orchestrator.ErrUnavailable, Err: c.ListEndpointsErr}
	}
	ids := make([]int, 0, len(c.endpoints))
	for id := range c.endpoints {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// DeleteEndpoint implements orchestrator.Client
func (c *Client) DeleteEndpoint(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("delete_endpoint", id)

	if !c.endpoints[id] {
		return &orchestrator.Error{Op: "delete endpoint", Name: types.EndpointName(id), Kind: orchestrator.ErrNotFound}
	}
	delete(c.endpoints, id)
	return nil
}

// ExecProbe implements orchestrator.Client
func (c *Client) ExecProbe(ctx context.Context, workloadName string, command []string) (orchestrator.LineReader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Probes = append(c.Probes, workloadName)

	if reader, ok := c.ProbeReaders[workloadName]; ok {
		return reader, nil
	}
	lines, ok := c.ProbeOutput[workloadName]
	if !ok {
		return nil, &orchestrator.Error{Op: "exec probe", Name: workloadName, Kind: orchestrator.ErrProbeNotReady}
	}
	output := strings.Join(lines, "\n")
	return orchestrator.NewLineStream(strings.NewReader(output), nil), nil
}

// Stalled returns a LineReader that never yields a line
func Stalled() orchestrator.LineReader {
	return stalled{}
}

type stalled struct{}

func (stalled) Next(timeout time.Duration) (string, bool) {
	time.Sleep(timeout)
	return "", false
}

func (stalled) Close() error { return nil }

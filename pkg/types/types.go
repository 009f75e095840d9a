package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Task represents a row of the external work queue
type Task struct {
	ID       int
	Owner    string
	TaskType string
	Duration int // Estimated duration in minutes
	Program  string
	Status   TaskStatus
	Password string `json:"-"` // Notebook password, never logged
}

// TaskStatus is the lifecycle state reported by a notebook workload
type TaskStatus string

const (
	TaskStatusUnset    TaskStatus = ""
	TaskStatusCreating TaskStatus = "Creating"
	TaskStatusReady    TaskStatus = "Ready"
	TaskStatusRunning  TaskStatus = "Running"
	TaskStatusFinished TaskStatus = "Finished"
)

// ParseProbeStatus maps one line of probe output to a status.
// Only the values a workload can report about itself are recognized.
func ParseProbeStatus(line string) (TaskStatus, bool) {
	switch s := TaskStatus(strings.TrimSpace(line)); s {
	case TaskStatusReady, TaskStatusRunning, TaskStatusFinished:
		return s, true
	default:
		return TaskStatusUnset, false
	}
}

// Workload is the orchestrator's view of a notebook job
type Workload struct {
	ID        int
	Name      string
	Succeeded bool
}

// Resources holds the limits applied verbatim to a workload
type Resources struct {
	CPU    string // e.g. "1.5"
	Memory string // e.g. "5000Mi"
}

// Settings are the per-cycle admission and sizing knobs
type Settings struct {
	CPUShare      string
	MemShare      string
	ParallelLimit int
}

// Resources returns the workload limits described by the settings
func (s Settings) Resources() Resources {
	return Resources{CPU: s.CPUShare, Memory: s.MemShare}
}

const (
	// WorkloadPrefix marks jobs owned by nbsched
	WorkloadPrefix = "notebook-"

	// EndpointPrefix marks services owned by nbsched
	EndpointPrefix = "nb-entrypoint-"

	// WorkloadLabel carries the task id on jobs and their pods
	WorkloadLabel = "id"

	// EndpointLabel carries the task id on services
	EndpointLabel = "sid"

	// NotebookPort is the port the notebook server listens on inside the container
	NotebookPort = 8888

	// NodePortBase is added to the task id to get the external port
	NodePortBase = 31000
)

// WorkloadName returns the deterministic job name for a task id
func WorkloadName(id int) string {
	return fmt.Sprintf("%s%02d", WorkloadPrefix, id)
}

// EndpointName returns the deterministic service name for a task id
func EndpointName(id int) string {
	return fmt.Sprintf("%s%02d", EndpointPrefix, id)
}

// NodePort returns the externally reachable port for a task id
func NodePort(id int) int {
	return NodePortBase + id
}

// IsWorkloadName reports whether name follows the workload naming pattern
func IsWorkloadName(name string) bool {
	return strings.HasPrefix(name, WorkloadPrefix)
}

// IsEndpointName reports whether name follows the endpoint naming pattern
func IsEndpointName(name string) bool {
	return strings.HasPrefix(name, EndpointPrefix)
}

// ParseID parses a task id from a label value
func ParseID(value string) (int, error) {
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q: %w", value, err)
	}
	if id < 0 {
		return 0, fmt.Errorf("invalid task id %q: negative", value)
	}
	return id, nil
}

// IDSet is a set of task ids
type IDSet map[int]struct{}

// NewIDSet builds a set from ids
func NewIDSet(ids ...int) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership
func (s IDSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id
func (s IDSet) Add(id int) {
	s[id] = struct{}{}
}

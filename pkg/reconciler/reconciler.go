package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cuemby/nbsched/pkg/events"
	"github.com/cuemby/nbsched/pkg/log"
	"github.com/cuemby/nbsched/pkg/metrics"
	"github.com/cuemby/nbsched/pkg/orchestrator"
	"github.com/cuemby/nbsched/pkg/queue"
	"github.com/cuemby/nbsched/pkg/types"
	"github.com/rs/zerolog"
)

// ErrCycleAborted wraps failures that stop a cycle before any action
var ErrCycleAborted = errors.New("reconciliation cycle aborted")

// Poller counts running tasks after folding probe results into the queue
type Poller interface {
	Poll(ctx context.Context) (int, error)
}

// Options modify a single cycle
type Options struct {
	// CheckEndpoints recreates endpoints missing for active workloads
	CheckEndpoints bool
}

// Reconciler drives the cluster toward the task queue
type Reconciler struct {
	client orchestrator.Client
	store  queue.Store
	poller Poller
	events events.Publisher
	logger zerolog.Logger
}

// New creates a reconciler. publisher may be nil.
func New(client orchestrator.Client, store queue.Store, poller Poller, publisher events.Publisher) *Reconciler {
	if publisher == nil {
		publisher = events.Discard
	}
	return &Reconciler{
		client: client,
		store:  store,
		poller: poller,
		events: publisher,
		logger: log.WithComponent("reconciler"),
	}
}

// cycle tracks one run of Reconcile
type cycle struct {
	failures int
}

// Reconcile runs one cycle: clean up completed workloads, remove orphans,
// admit queued tasks up to the free slots and, with CheckEndpoints, recreate
// missing endpoints. Failing to list workloads or tasks returns an error and
// takes no further action. Failed mutations are logged and retried by the
// next cycle.
func (r *Reconciler) Reconcile(ctx context.Context, settings types.Settings, opts Options) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReconciliationDuration)

	c := &cycle{}

	workloads, err := r.client.ListWorkloads(ctx)
	if err != nil {
		metrics.ReconciliationCyclesTotal.WithLabelValues("aborted").Inc()
		return fmt.Errorf("%w: %w", ErrCycleAborted, err)
	}

	completed := types.NewIDSet()
	actual := types.NewIDSet()
	for _, w := range workloads {
		if w.Succeeded {
			completed.Add(w.ID)
		} else {
			actual.Add(w.ID)
		}
	}

	r.sweepCompleted(ctx, c, completed)

	tasks, err := r.store.ListTasks(ctx)
	if err != nil {
		metrics.ReconciliationCyclesTotal.WithLabelValues("aborted").Inc()
		return fmt.Errorf("%w: %w", ErrCycleAborted, err)
	}

	byID := make(map[int]types.Task, len(tasks))
	desired := types.NewIDSet()
	for _, t := range tasks {
		if completed.Has(t.ID) {
			continue
		}
		byID[t.ID] = t
		desired.Add(t.ID)
	}

	metrics.QueuedTasks.Set(float64(len(desired)))
	metrics.ActiveWorkloads.Set(float64(len(actual)))

	slots := 0
	running, err := r.poller.Poll(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Status poll failed, admitting nothing this cycle")
	} else {
		slots = Slots(settings.ParallelLimit, running)
	}
	metrics.AvailableSlots.Set(float64(slots))

	plan := ComputePlan(desired, actual, slots)
	r.logger.Debug().
		Int("queued", len(desired)).
		Int("active", len(actual)).
		Int("running", running).
		Int("slots", slots).
		Ints("create", plan.Create).
		Ints("delete", plan.Delete).
		Msg("Computed plan")

	for _, id := range plan.Delete {
		r.removeOrphan(ctx, c, id)
	}

	present := types.NewIDSet()
	for id := range actual {
		if desired.Has(id) {
			present.Add(id)
		}
	}
	resources := settings.Resources()
	for _, id := range plan.Create {
		if r.start(ctx, c, byID[id], resources) {
			present.Add(id)
		}
	}

	if opts.CheckEndpoints {
		r.healEndpoints(ctx, c, desired, present)
	}

	result := "success"
	if c.failures > 0 {
		result = "partial"
	}
	metrics.ReconciliationCyclesTotal.WithLabelValues(result).Inc()

	done := events.New(events.EventCycleCompleted, "reconciliation cycle completed")
	done.Metadata["result"] = result
	r.events.Publish(done)

	r.logger.Info().
		Int("completed", len(completed)).
		Int("created", len(plan.Create)).
		Int("deleted", len(plan.Delete)).
		Int("pending", len(plan.Pending)).
		Int("failures", c.failures).
		Dur("duration", timer.Duration()).
		Msg("Reconciliation cycle finished")

	return nil
}

// sweepCompleted removes succeeded workloads together with their endpoint
// and queue row. The row goes first: if its deletion fails the workload is
// kept so the next cycle still sees the task as completed.
func (r *Reconciler) sweepCompleted(ctx context.Context, c *cycle, completed types.IDSet) {
	for _, id := range sortedIDs(completed) {
		logger := r.logger.With().Int("task_id", id).Logger()

		if err := r.store.DeleteTask(ctx, id); err != nil {
			r.record(c, "delete_task", err)
			logger.Error().Err(err).Msg("Failed to delete completed task")
			continue
		}
		r.record(c, "delete_task", nil)

		r.deleteWorkload(ctx, c, id)
		r.deleteEndpoint(ctx, c, id)

		metrics.TasksCompleted.Inc()
		r.events.Publish(events.ForTask(events.EventTaskCompleted, id, "task completed"))
		logger.Info().Str("workload", types.WorkloadName(id)).Msg("Task completed")
	}
}

func (r *Reconciler) removeOrphan(ctx context.Context, c *cycle, id int) {
	workloadErr := r.deleteWorkload(ctx, c, id)
	r.deleteEndpoint(ctx, c, id)

	if workloadErr == nil {
		r.events.Publish(events.ForTask(events.EventWorkloadDeleted, id, "orphan workload deleted"))
		r.logger.Info().Int("task_id", id).Msg("Deleted workload without queue row")
	}
}

// start creates the workload and endpoint for a task. It reports whether the
// workload exists afterwards.
func (r *Reconciler) start(ctx context.Context, c *cycle, task types.Task, resources types.Resources) bool {
	logger := log.WithTaskID(task.ID).With().Str("component", "reconciler").Logger()

	err := r.client.CreateWorkload(ctx, orchestrator.WorkloadSpec{
		ID:        task.ID,
		Owner:     task.Owner,
		Program:   task.Program,
		Resources: resources,
	})
	if err != nil && !errors.Is(err, orchestrator.ErrAlreadyExists) {
		r.record(c, "create_workload", err)
		logger.Error().Err(err).Msg("Failed to create workload")
		return false
	}
	r.record(c, "create_workload", nil)

	if err := r.createEndpoint(ctx, c, task.ID); err != nil {
		logger.Error().Err(err).Msg("Failed to create endpoint")
	}

	r.events.Publish(events.ForTask(events.EventWorkloadCreated, task.ID, "workload created"))
	logger.Info().
		Str("owner", task.Owner).
		Str("workload", types.WorkloadName(task.ID)).
		Int("node_port", types.NodePort(task.ID)).
		Msg("Started notebook")
	return true
}

func (r *Reconciler) healEndpoints(ctx context.Context, c *cycle, desired, present types.IDSet) {
	ids, err := r.client.ListEndpoints(ctx)
	if err != nil {
		c.failures++
		r.logger.Warn().Err(err).Msg("Failed to list endpoints, skipping endpoint check")
		return
	}

	for _, id := range MissingEndpoints(desired, present, types.NewIDSet(ids...)) {
		logger := r.logger.With().Int("task_id", id).Logger()
		logger.Warn().Str("endpoint", types.EndpointName(id)).Msg("Endpoint missing, recreating")

		if err := r.createEndpoint(ctx, c, id); err != nil {
			logger.Error().Err(err).Msg("Failed to recreate endpoint")
			continue
		}
		r.events.Publish(events.ForTask(events.EventEndpointHealed, id, "endpoint recreated"))
	}
}

func (r *Reconciler) deleteWorkload(ctx context.Context, c *cycle, id int) error {
	err := r.client.DeleteWorkload(ctx, id)
	if errors.Is(err, orchestrator.ErrNotFound) {
		err = nil
	}
	r.record(c, "delete_workload", err)
	if err != nil {
		r.logger.Error().Err(err).Int("task_id", id).Msg("Failed to delete workload")
	}
	return err
}

func (r *Reconciler) deleteEndpoint(ctx context.Context, c *cycle, id int) {
	err := r.client.DeleteEndpoint(ctx, id)
	if errors.Is(err, orchestrator.ErrNotFound) {
		err = nil
	}
	r.record(c, "delete_endpoint", err)
	if err != nil {
		r.logger.Error().Err(err).Int("task_id", id).Msg("Failed to delete endpoint")
	}
}

func (r *Reconciler) createEndpoint(ctx context.Context, c *cycle, id int) error {
	err := r.client.CreateEndpoint(ctx, id)
	if errors.Is(err, orchestrator.ErrAlreadyExists) {
		err = nil
	}
	r.record(c, "create_endpoint", err)
	return err
}

func (r *Reconciler) record(c *cycle, action string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		c.failures++
	}
	metrics.ActionsTotal.WithLabelValues(action, outcome).Inc()
}

func sortedIDs(s types.IDSet) []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

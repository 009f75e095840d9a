package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/nbsched/pkg/log"
	"github.com/cuemby/nbsched/pkg/metrics"
	"github.com/cuemby/nbsched/pkg/orchestrator"
	"github.com/cuemby/nbsched/pkg/queue"
	"github.com/cuemby/nbsched/pkg/types"
	"github.com/rs/zerolog"
)

// ErrPollAborted wraps failures that prevent counting running workloads
var ErrPollAborted = errors.New("poll aborted")

const (
	// DefaultReadTimeout bounds the wait for each probe output line
	DefaultReadTimeout = 3 * time.Second

	// DefaultMaxLines caps how many lines are read from one probe
	DefaultMaxLines = 64
)

// DefaultCommand prints the status file a notebook workload maintains
var DefaultCommand = []string{"sh", "-c", "cat /tmp/nb-status"}

// Options configures a Poller
type Options struct {
	Command     []string
	ReadTimeout time.Duration
	MaxLines    int
}

// Poller probes active workloads and folds their self-reported status
// into the queue
type Poller struct {
	client      orchestrator.Client
	store       queue.Store
	command     []string
	readTimeout time.Duration
	maxLines    int
	logger      zerolog.Logger
}

// New creates a poller. Zero option fields take their defaults.
func New(client orchestrator.Client, store queue.Store, opts Options) *Poller {
	if len(opts.Command) == 0 {
		opts.Command = DefaultCommand
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.MaxLines <= 0 {
		opts.MaxLines = DefaultMaxLines
	}

	return &Poller{
		client:      client,
		store:       store,
		command:     opts.Command,
		readTimeout: opts.ReadTimeout,
		maxLines:    opts.MaxLines,
		logger:      log.WithComponent("poller"),
	}
}

// Poll probes every active workload that still has a queue row, writes
// changed statuses back and returns how many tasks are Running. A task whose
// workload could not be probed counts with its stored status.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	workloads, err := p.client.ListWorkloads(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPollAborted, err)
	}

	tasks, err := p.store.ListTasks(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPollAborted, err)
	}

	byID := make(map[int]types.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	running := 0
	for _, w := range workloads {
		if w.Succeeded {
			continue
		}
		task, ok := byID[w.ID]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrPollAborted, err)
		}

		status := task.Status
		if probed, ok := p.probe(ctx, w); ok {
			status = probed
			if probed != task.Status {
				p.write(ctx, task, probed)
			} else {
				metrics.ProbeResultsTotal.WithLabelValues("unchanged").Inc()
			}
		}

		if status == types.TaskStatusRunning {
			running++
		}
	}

	metrics.RunningWorkloads.Set(float64(running))
	return running, nil
}

// probe returns the last recognized status line of the workload's probe
func (p *Poller) probe(ctx context.Context, w types.Workload) (types.TaskStatus, bool) {
	logger := p.logger.With().Str("workload", w.Name).Int("task_id", w.ID).Logger()

	reader, err := p.client.ExecProbe(ctx, w.Name, p.command)
	if err != nil {
		if errors.Is(err, orchestrator.ErrProbeNotReady) {
			metrics.ProbeResultsTotal.WithLabelValues("not_ready").Inc()
			logger.Debug().Msg("Workload not ready for probing")
		} else {
			metrics.ProbeResultsTotal.WithLabelValues("error").Inc()
			logger.Debug().Err(err).Msg("Probe exec failed")
		}
		return types.TaskStatusUnset, false
	}
	defer reader.Close()

	status := types.TaskStatusUnset
	found := false
	for i := 0; i < p.maxLines; i++ {
		line, ok := reader.Next(p.readTimeout)
		if !ok {
			break
		}
		if s, ok := types.ParseProbeStatus(line); ok {
			status = s
			found = true
		}
	}

	if !found {
		metrics.ProbeResultsTotal.WithLabelValues("no_status").Inc()
		logger.Debug().Msg("Probe reported no status")
	}
	return status, found
}

func (p *Poller) write(ctx context.Context, task types.Task, status types.TaskStatus) {
	logger := p.logger.With().Int("task_id", task.ID).Logger()

	if err := p.store.UpdateStatus(ctx, task.ID, status); err != nil {
		metrics.ProbeResultsTotal.WithLabelValues("write_failed").Inc()
		logger.Warn().Err(err).Str("status", string(status)).Msg("Failed to record task status")
		return
	}

	metrics.ProbeResultsTotal.WithLabelValues("updated").Inc()
	logger.Info().
		Str("from", string(task.Status)).
		Str("to", string(status)).
		Msg("Task status changed")
}

package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/nbsched/pkg/orchestrator/orchestratortest"
	"github.com/cuemby/nbsched/pkg/queue"
	"github.com/cuemby/nbsched/pkg/queue/queuetest"
	"github.com/cuemby/nbsched/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(id int, status types.TaskStatus) types.Task {
	return types.Task{ID: id, Owner: "alice", Program: "nb.ipynb", Status: status}
}

func TestPollStatusFolding(t *testing.T) {
	tests := []struct {
		name   string
		output []string
		want   types.TaskStatus
	}{
		{name: "last recognized wins", output: []string{"garbage", "Ready", "garbage", "Running"}, want: types.TaskStatusRunning},
		{name: "surrounding whitespace", output: []string{"  Finished \r"}, want: types.TaskStatusFinished},
		{name: "later garbage ignored", output: []string{"Ready", "Creating", "???"}, want: types.TaskStatusReady},
		{name: "nothing recognized keeps stored", output: []string{"booting", ""}, want: types.TaskStatusCreating},
		{name: "no output keeps stored", output: nil, want: types.TaskStatusCreating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := orchestratortest.New()
			client.AddWorkload(1, false, true)
			client.ProbeOutput[types.WorkloadName(1)] = tt.output
			store := queuetest.New(task(1, types.TaskStatusCreating))

			_, err := New(client, store, Options{ReadTimeout: 50 * time.Millisecond}).Poll(context.Background())
			require.NoError(t, err)

			got, ok := store.Get(1)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestPollRunningCount(t *testing.T) {
	client := orchestratortest.New()
	for id := 1; id <= 5; id++ {
		client.AddWorkload(id, false, true)
	}
	client.AddWorkload(6, true, true)

	client.ProbeOutput[types.WorkloadName(1)] = []string{"Running"}
	client.ProbeOutput[types.WorkloadName(2)] = []string{"Ready"}
	// 3 has no running pod and keeps its stored Running status
	client.ProbeOutput[types.WorkloadName(4)] = []string{"Running"}
	client.ProbeOutput[types.WorkloadName(6)] = []string{"Running"}

	store := queuetest.New(
		task(1, types.TaskStatusReady),
		task(2, types.TaskStatusRunning),
		task(3, types.TaskStatusRunning),
		task(5, types.TaskStatusRunning),
		task(6, types.TaskStatusRunning),
		task(7, types.TaskStatusRunning),
	)

	running, err := New(client, store, Options{ReadTimeout: 50 * time.Millisecond}).Poll(context.Background())
	require.NoError(t, err)

	// 1 probed Running, 3 stored Running, 5 stored Running. 4 has no row,
	// 6 succeeded and 7 has no workload.
	assert.Equal(t, 3, running)
	assert.ElementsMatch(t, []queuetest.Update{
		{ID: 1, Status: types.TaskStatusRunning},
		{ID: 2, Status: types.TaskStatusReady},
	}, store.Updates)

	assert.NotContains(t, client.Probes, types.WorkloadName(4))
	assert.NotContains(t, client.Probes, types.WorkloadName(6))
}

func TestPollUnchangedStatusNotWritten(t *testing.T) {
	client := orchestratortest.New()
	client.AddWorkload(2, false, true)
	client.ProbeOutput[types.WorkloadName(2)] = []string{"Running"}
	store := queuetest.New(task(2, types.TaskStatusRunning))

	running, err := New(client, store, Options{}).Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, running)
	assert.Empty(t, store.Updates)
}

func TestPollStalledProbe(t *testing.T) {
	client := orchestratortest.New()
	client.AddWorkload(1, false, true)
	client.AddWorkload(2, false, true)
	client.ProbeReaders[types.WorkloadName(1)] = orchestratortest.Stalled()
	client.ProbeOutput[types.WorkloadName(2)] = []string{"Running"}
	store := queuetest.New(task(1, types.TaskStatusReady), task(2, types.TaskStatusReady))

	start := time.Now()
	running, err := New(client, store, Options{ReadTimeout: 20 * time.Millisecond}).Poll(context.Background())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, running)
	assert.Equal(t, []queuetest.Update{{ID: 2, Status: types.TaskStatusRunning}}, store.Updates)
}

func TestPollWriteFailureIsolated(t *testing.T) {
	client := orchestratortest.New()
	client.AddWorkload(1, false, true)
	client.AddWorkload(2, false, true)
	client.ProbeOutput[types.WorkloadName(1)] = []string{"Running"}
	client.ProbeOutput[types.WorkloadName(2)] = []string{"Running"}
	store := queuetest.New(task(1, types.TaskStatusReady), task(2, types.TaskStatusReady))
	store.FailUpdate[1] = true

	running, err := New(client, store, Options{}).Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, running)
	assert.Equal(t, []queuetest.Update{{ID: 2, Status: types.TaskStatusRunning}}, store.Updates)
}

func TestPollAborted(t *testing.T) {
	t.Run("workload listing fails", func(t *testing.T) {
		client := orchestratortest.New()
		client.ListWorkloadsErr = errors.New("apiserver down")
		store := queuetest.New(task(1, types.TaskStatusRunning))

		running, err := New(client, store, Options{}).Poll(context.Background())
		assert.ErrorIs(t, err, ErrPollAborted)
		assert.Equal(t, 0, running)
	})

	t.Run("task listing fails", func(t *testing.T) {
		client := orchestratortest.New()
		client.AddWorkload(1, false, true)
		store := queuetest.New()
		store.ListErr = queue.ErrUnavailable

		running, err := New(client, store, Options{}).Poll(context.Background())
		assert.ErrorIs(t, err, ErrPollAborted)
		assert.ErrorIs(t, err, queue.ErrUnavailable)
		assert.Equal(t, 0, running)
		assert.Empty(t, client.Probes)
	})

	t.Run("context cancelled", func(t *testing.T) {
		client := orchestratortest.New()
		client.AddWorkload(1, false, true)
		store := queuetest.New(task(1, types.TaskStatusRunning))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(client, store, Options{}).Poll(ctx)
		assert.ErrorIs(t, err, ErrPollAborted)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewDefaults(t *testing.T) {
	p := New(orchestratortest.New(), queuetest.New(), Options{})
	assert.Equal(t, DefaultCommand, p.command)
	assert.Equal(t, DefaultReadTimeout, p.readTimeout)
	assert.Equal(t, DefaultMaxLines, p.maxLines)
}

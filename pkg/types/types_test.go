package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaming(t *testing.T) {
	tests := []struct {
		id       int
		workload string
		endpoint string
		port     int
	}{
		{id: 0, workload: "notebook-00", endpoint: "nb-entrypoint-00", port: 31000},
		{id: 5, workload: "notebook-05", endpoint: "nb-entrypoint-05", port: 31005},
		{id: 42, workload: "notebook-42", endpoint: "nb-entrypoint-42", port: 31042},
		{id: 123, workload: "notebook-123", endpoint: "nb-entrypoint-123", port: 31123},
	}

	for _, tt := range tests {
		t.Run(tt.workload, func(t *testing.T) {
			assert.Equal(t, tt.workload, WorkloadName(tt.id))
			assert.Equal(t, tt.endpoint, EndpointName(tt.id))
			assert.Equal(t, tt.port, NodePort(tt.id))
			assert.True(t, IsWorkloadName(WorkloadName(tt.id)))
			assert.True(t, IsEndpointName(EndpointName(tt.id)))
		})
	}

	assert.False(t, IsWorkloadName("nb-entrypoint-05"))
	assert.False(t, IsEndpointName("notebook-05"))
	assert.False(t, IsWorkloadName("coredns"))
}

func TestParseProbeStatus(t *testing.T) {
	tests := []struct {
		line   string
		want   TaskStatus
		wantOK bool
	}{
		{line: "Ready", want: TaskStatusReady, wantOK: true},
		{line: "  Running\r", want: TaskStatusRunning, wantOK: true},
		{line: "Finished\n", want: TaskStatusFinished, wantOK: true},
		{line: "Creating", wantOK: false},
		{line: "running", wantOK: false},
		{line: "garbage", wantOK: false},
		{line: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseProbeStatus(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("17")
	require.NoError(t, err)
	assert.Equal(t, 17, id)

	_, err = ParseID("abc")
	assert.Error(t, err)

	_, err = ParseID("-3")
	assert.Error(t, err)
}

func TestIDSet(t *testing.T) {
	s := NewIDSet(1, 2)
	assert.True(t, s.Has(1))
	assert.False(t, s.Has(3))

	s.Add(3)
	assert.True(t, s.Has(3))
	assert.Len(t, s, 3)
}

func TestSettingsResources(t *testing.T) {
	s := Settings{CPUShare: "1.5", MemShare: "5000Mi", ParallelLimit: 2}
	assert.Equal(t, Resources{CPU: "1.5", Memory: "5000Mi"}, s.Resources())
}

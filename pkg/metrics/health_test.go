package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetHealth(t *testing.T) {
	t.Helper()
	healthChecker = newHealthChecker()
}

func registerAllReady() {
	RegisterComponent(ComponentQueue, true, "")
	RegisterComponent(ComponentOrchestrator, true, "")
	RegisterComponent(ComponentTrigger, true, "")
}

func TestGetHealth(t *testing.T) {
	tests := []struct {
		name       string
		setup      func()
		wantStatus string
	}{
		{
			name:       "all healthy",
			setup:      registerAllReady,
			wantStatus: "healthy",
		},
		{
			name: "orchestrator unhealthy",
			setup: func() {
				registerAllReady()
				UpdateComponent(ComponentOrchestrator, false, "list jobs: connection refused")
			},
			wantStatus: "unhealthy",
		},
		{
			name:       "nothing registered",
			setup:      func() {},
			wantStatus: "healthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHealth(t)
			tt.setup()
			assert.Equal(t, tt.wantStatus, GetHealth().Status)
		})
	}
}

func TestReportError(t *testing.T) {
	resetHealth(t)

	ReportError(ComponentQueue, errors.New("database is locked"))
	health := GetHealth()
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "unhealthy: database is locked", health.Components[ComponentQueue])

	ReportError(ComponentQueue, nil)
	assert.Equal(t, "healthy", GetHealth().Status)
}

func TestGetReadiness(t *testing.T) {
	t.Run("all critical components ready", func(t *testing.T) {
		resetHealth(t)
		registerAllReady()
		assert.Equal(t, "ready", GetReadiness().Status)
	})

	t.Run("trigger not registered", func(t *testing.T) {
		resetHealth(t)
		RegisterComponent(ComponentQueue, true, "")
		RegisterComponent(ComponentOrchestrator, true, "")

		readiness := GetReadiness()
		assert.Equal(t, "not_ready", readiness.Status)
		assert.Equal(t, "not registered", readiness.Components[ComponentTrigger])
		assert.NotEmpty(t, readiness.Message)
	})

	t.Run("queue unhealthy", func(t *testing.T) {
		resetHealth(t)
		registerAllReady()
		UpdateComponent(ComponentQueue, false, "unable to open database file")

		readiness := GetReadiness()
		assert.Equal(t, "not_ready", readiness.Status)
		assert.Equal(t, "waiting for queue", readiness.Message)
	})
}

func TestHandlers(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		setup      func()
		wantCode   int
		wantStatus string
	}{
		{name: "health ok", handler: HealthHandler(), setup: registerAllReady, wantCode: http.StatusOK, wantStatus: "healthy"},
		{
			name:    "health unhealthy",
			handler: HealthHandler(),
			setup: func() {
				RegisterComponent(ComponentTrigger, false, "address already in use")
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
		{name: "ready", handler: ReadyHandler(), setup: registerAllReady, wantCode: http.StatusOK, wantStatus: "ready"},
		{name: "not ready", handler: ReadyHandler(), setup: func() {}, wantCode: http.StatusServiceUnavailable, wantStatus: "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHealth(t)
			SetVersion("test")
			tt.setup()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()
			tt.handler(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var status HealthStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, "test", status.Version)
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	resetHealth(t)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	w := httptest.NewRecorder()
	LivenessHandler()(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "alive", response["status"])
	assert.NotEmpty(t, response["uptime"])
}

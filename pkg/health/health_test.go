package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChecker(t *testing.T) {
	checker := NewChecker("test-service", "1.0.0")
	assert.Equal(t, "test-service", checker.serviceName)
	assert.Equal(t, "1.0.0", checker.serviceVersion)
}

func TestRegisterCheck(t *testing.T) {
	checker := NewChecker("test", "1.0")
	checker.RegisterCheck("test-check", func(ctx context.Context) error { return nil }, 5*time.Second, true)

	checker.mu.RLock()
	defer checker.mu.RUnlock()
	chk, ok := checker.checks["test-check"]
	require.True(t, ok, "check not found")
	assert.True(t, chk.critical)
}

func TestReadinessHealthy(t *testing.T) {
	checker := NewChecker("test", "1.0")
	checker.RegisterCheck("always-healthy", func(ctx context.Context) error { return nil }, 5*time.Second, true)

	resp := checker.Readiness(context.Background())
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, StatusHealthy, resp.Checks["always-healthy"].Status)
}

func TestReadinessCriticalFailureIsUnhealthy(t *testing.T) {
	checker := NewChecker("test", "1.0")
	checker.RegisterCheck("always-fails", func(ctx context.Context) error { return errors.New("boom") }, 5*time.Second, true)

	resp := checker.Readiness(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.NotEmpty(t, resp.Checks["always-fails"].Error)
}

func TestReadinessNonCriticalFailureDegradesNotUnhealthy(t *testing.T) {
	checker := NewChecker("test", "1.0")
	checker.RegisterCheck("non-critical", func(ctx context.Context) error { return errors.New("meh") }, 5*time.Second, false)
	checker.RegisterCheck("critical", func(ctx context.Context) error { return nil }, 5*time.Second, true)

	resp := checker.Readiness(context.Background())
	assert.Equal(t, StatusDegraded, resp.Status)
}

func TestReadinessTimeout(t *testing.T) {
	checker := NewChecker("test", "1.0")
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 20*time.Millisecond, true)

	resp := checker.Readiness(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestLiveness(t *testing.T) {
	checker := NewChecker("test", "1.0")
	resp := checker.Liveness()
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Empty(t, resp.Checks)
}

func TestReadinessHandler(t *testing.T) {
	checker := NewChecker("test", "1.0")
	checker.RegisterCheck("ready", func(ctx context.Context) error { return nil }, 5*time.Second, true)

	w := httptest.NewRecorder()
	checker.ReadinessHandler()(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
}

func TestReadinessHandlerUnhealthy(t *testing.T) {
	checker := NewChecker("test", "1.0")
	checker.RegisterCheck("down", func(ctx context.Context) error { return errors.New("unavailable") }, 5*time.Second, true)

	w := httptest.NewRecorder()
	checker.ReadinessHandler()(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLivenessHandler(t *testing.T) {
	checker := NewChecker("test", "1.0")

	w := httptest.NewRecorder()
	checker.LivenessHandler()(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

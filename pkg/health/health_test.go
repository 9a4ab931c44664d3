package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveEndpoint(t *testing.T) {
	t.Run("ok when all checks pass", func(t *testing.T) {
		svc := New()
		svc.AddLivenessCheck("always-ok", time.Second, func(context.Context) error {
			return nil
		})

		rec := httptest.NewRecorder()
		svc.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "ok", resp.Checks["always-ok"])
	})

	t.Run("unhealthy when a check fails", func(t *testing.T) {
		svc := New()
		svc.AddLivenessCheck("broken", time.Second, func(context.Context) error {
			return errors.New("component down")
		})

		rec := httptest.NewRecorder()
		svc.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "component down", resp.Checks["broken"])
	})
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("not ready before SetReady", func(t *testing.T) {
		svc := New()

		rec := httptest.NewRecorder()
		svc.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("ready after SetReady with passing checks", func(t *testing.T) {
		svc := New()
		svc.AddReadinessCheck("db", time.Second, func(context.Context) error {
			return nil
		})
		svc.SetReady(true)

		rec := httptest.NewRecorder()
		svc.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, svc.IsReady(context.Background()))
	})

	t.Run("draining flips back to unavailable", func(t *testing.T) {
		svc := New()
		svc.SetReady(true)
		svc.SetReady(false)

		rec := httptest.NewRecorder()
		svc.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.False(t, svc.IsReady(context.Background()))
	})

	t.Run("failing readiness check wins over the flag", func(t *testing.T) {
		svc := New()
		svc.AddReadinessCheck("db", time.Second, func(context.Context) error {
			return errors.New("connection refused")
		})
		svc.SetReady(true)

		rec := httptest.NewRecorder()
		svc.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestCheckTimeout(t *testing.T) {
	svc := New()
	svc.AddReadinessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	svc.SetReady(true)

	rec := httptest.NewRecorder()
	svc.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/minervalabs/minerva/internal/repository/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepo struct{ *stubRepo }

func (failingRepo) Ping(context.Context) error { return context.DeadlineExceeded }

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeData(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestReadyCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewClientFromAddr(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	t.Run("ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ReadyCheck(newStubRepo(), client)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		decodeData(t, rec, &body)
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, "ok", body["cache"])
	})

	t.Run("repository down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ReadyCheck(failingRepo{newStubRepo()}, client)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("cache down is still ready", func(t *testing.T) {
		mr.Close()
		rec := httptest.NewRecorder()
		ReadyCheck(newStubRepo(), client)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		decodeData(t, rec, &body)
		assert.Equal(t, "unavailable", body["cache"])
	})
}

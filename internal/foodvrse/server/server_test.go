package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/25x8/foodvrse/internal/foodvrse/config"
	"github.com/25x8/foodvrse/internal/foodvrse/logger"
	"github.com/25x8/foodvrse/internal/foodvrse/repository"
	"github.com/25x8/foodvrse/internal/foodvrse/service"
)

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.Parse(nil, func(k string) string { return env[k] })
	require.NoError(t, err)
	return cfg
}

func TestNewServerInMemory(t *testing.T) {
	srv, err := NewServer(context.Background(), testConfig(t, map[string]string{"JWT_SECRET": "s"}), logger.Nop())
	require.NoError(t, err)

	assert.IsType(t, &repository.MemoryRepository{}, srv.repo)
	assert.IsType(t, &service.LogNotifier{}, srv.notifier)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/user/progress", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestNewServerRejectsUnknownStreakMode(t *testing.T) {
	_, err := NewServer(context.Background(), testConfig(t, map[string]string{"STREAK_MODE": "weekly"}), logger.Nop())
	assert.Error(t, err)
}

func TestServerShutdownWhileRunning(t *testing.T) {
	cfg := testConfig(t, map[string]string{"JWT_SECRET": "s", "RUN_ADDRESS": "127.0.0.1:0", "POLL_INTERVAL": "10ms"})
	srv, err := NewServer(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

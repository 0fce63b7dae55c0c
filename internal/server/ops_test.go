package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(test *testing.T, ops *OpsServer, path string) *httptest.ResponseRecorder {
	test.Helper()
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, path, nil)
	ops.server.Handler.ServeHTTP(recorder, request)
	return recorder
}

func TestOpsServer_Healthz(test *testing.T) {
	ops := NewOpsServer(OpsConfig{})

	response := doRequest(test, ops, "/healthz")
	assert.Equal(test, http.StatusOK, response.Code)
	assert.Contains(test, response.Body.String(), "ok")
}

func TestOpsServer_MetricsUnavailableWhenDisabled(test *testing.T) {
	ops := NewOpsServer(OpsConfig{})

	response := doRequest(test, ops, "/metrics")
	assert.Equal(test, http.StatusServiceUnavailable, response.Code)
}

func TestOpsServer_Index(test *testing.T) {
	ops := NewOpsServer(OpsConfig{})

	response := doRequest(test, ops, "/")
	assert.Equal(test, http.StatusOK, response.Code)
	assert.Contains(test, response.Body.String(), "/healthz")

	response = doRequest(test, ops, "/nonexistent")
	assert.Equal(test, http.StatusNotFound, response.Code)
}

func TestOpsServer_DefaultAddress(test *testing.T) {
	ops := NewOpsServer(OpsConfig{})
	assert.Equal(test, ":8080", ops.Addr())
}

func TestOpsServer_StartStopsOnContextCancel(test *testing.T) {
	ops := NewOpsServer(OpsConfig{ListenAddress: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ops.Start(ctx)
	}()

	// Give the listener a moment to come up, then trigger shutdown
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(test, err)
	case <-time.After(2 * time.Second):
		test.Fatal("Expected Start to return after context cancellation")
	}
}

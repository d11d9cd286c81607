package api

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/flushwatch/pkg/flusher"
	"github.com/marmos91/flushwatch/pkg/metrics"
)

type stubScheduler struct{}

func (stubScheduler) Status() flusher.Status {
	return flusher.Status{Running: true, ScanInterval: time.Second}
}
func (stubScheduler) Running() bool { return true }
func (stubScheduler) Err() error    { return nil }

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRouter_Routes(t *testing.T) {
	metrics.Reset()
	srv := httptest.NewServer(NewRouter(stubScheduler{}))
	defer srv.Close()

	assert.Equal(t, http.StatusOK, get(t, srv, "/health").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv, "/health/ready").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv, "/caches").StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/metrics").StatusCode)

	root := get(t, srv, "/")
	assert.Equal(t, http.StatusTemporaryRedirect, root.StatusCode)
	assert.Equal(t, "/health", root.Header.Get("Location"))

	assert.NotEmpty(t, get(t, srv, "/health").Header.Get("Content-Type"))
}

func TestRouter_MetricsEnabled(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	srv := httptest.NewServer(NewRouter(stubScheduler{}))
	defer srv.Close()

	resp := get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestServer_StartStop(t *testing.T) {
	port := freePort(t)
	s := NewServer(APIConfig{BindAddress: "127.0.0.1", Port: port}, stubScheduler{})
	assert.Equal(t, port, s.Port())
	assert.Nil(t, s.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.NotNil(t, s.Addr())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}

	// Second stop is a no-op.
	assert.NoError(t, s.Stop(context.Background()))
}

func TestServer_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := NewServer(APIConfig{Port: ln.Addr().(*net.TCPAddr).Port}, stubScheduler{})
	err = s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API server failed")
}

func TestAPIConfig_Defaults(t *testing.T) {
	var c APIConfig
	assert.True(t, c.IsEnabled())
	assert.Equal(t, "127.0.0.1:9470", c.ListenAddr())
	c.ApplyDefaults()
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, DefaultBindAddress, c.BindAddress)
	assert.Equal(t, 5*time.Second, c.ReadTimeout)

	c.BindAddress = "::1"
	c.Port = 9000
	assert.Equal(t, "[::1]:9000", c.ListenAddr())

	disabled := false
	c.Enabled = &disabled
	assert.False(t, c.IsEnabled())
}

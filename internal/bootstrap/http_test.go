package bootstrap

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohitsyle/jusq-sub002/config"
)

func TestServe_HealthAndShutdown(t *testing.T) {
	cfg := testConfig(config.StorageMemory)
	svc, err := NewServices(&ServiceDeps{Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := NewHTTPServer(cfg, svc, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ServeConfig{Server: server, Listener: ln, ShutdownTimeout: time.Second, Logger: discardLogger()})
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	server := &http.Server{Addr: ln.Addr().String(), ReadHeaderTimeout: time.Second}

	err = Serve(context.Background(), ServeConfig{Server: server, Logger: discardLogger()})

	assert.Error(t, err)
}

func TestNewHTTPServer_DefaultAddr(t *testing.T) {
	cfg := testConfig(config.StorageMemory)
	cfg.HTTP.Addr = ""
	svc, err := NewServices(&ServiceDeps{Config: cfg})
	require.NoError(t, err)

	assert.Equal(t, ":8080", NewHTTPServer(cfg, svc, nil).Addr)
}

func TestLimitOrOff(t *testing.T) {
	assert.Equal(t, -1, limitOrOff(0))
	assert.Equal(t, 7, limitOrOff(7))
}

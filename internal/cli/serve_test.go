package cli

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/runnerr0/botstats/internal/config"
)

func TestServe_GracefulShutdown(t *testing.T) {
	store := setupTestStore(t)
	recordEvents(t, store, "start")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := &ServeCommand{globals: &GlobalFlags{}}
	done := make(chan error, 1)
	go func() {
		done <- cmd.serve(ctx, ln, store, config.DefaultConfig(), zap.NewNop())
	}()

	client := &http.Client{Timeout: time.Second}
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = client.Get(base + "/health")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(base + "/api/stats")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"eventId":"start"`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestDisplayAddr(t *testing.T) {
	assert.Equal(t, "localhost:3000", displayAddr(&net.TCPAddr{IP: net.IPv6zero, Port: 3000}))
	assert.Equal(t, "127.0.0.1:8080", displayAddr(&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 8080}))
}

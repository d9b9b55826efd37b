package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/devboy-tools/devboy/logx"
	"github.com/devboy-tools/devboy/tools"
)

func TestServeWSStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := tools.NewHandler(nil, tools.WithLogger(logx.Nop{}))

	done := make(chan error, 1)
	go func() {
		done <- ServeWS(ctx, "127.0.0.1:0", "/mcp", "devboy", "1.0.0", handler, logx.Nop{})
	}()

	// Give the listener a moment to come up before cancelling.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after context cancellation")
	}
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/devboy-tools/devboy/logx"
	"github.com/devboy-tools/devboy/tools"
	"github.com/devboy-tools/devboy/types"
)

// WSTransport carries one JSON-RPC message per websocket text frame.
type WSTransport struct {
	conn       net.Conn
	writeMutex sync.Mutex
}

// NewWSTransport wraps an already-upgraded server-side connection.
func NewWSTransport(conn net.Conn) *WSTransport {
	return &WSTransport{conn: conn}
}

func (t *WSTransport) Receive() (*Incoming, error) {
	for {
		data, err := wsutil.ReadClientText(t.conn)
		if err != nil {
			var closed wsutil.ClosedError
			if errors.As(err, &closed) {
				return nil, io.EOF
			}
			return nil, err
		}
		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			continue
		}
		return parseIncoming(data)
	}
}

func (t *WSTransport) Send(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()
	return wsutil.WriteServerText(t.conn, data)
}

func (t *WSTransport) Close() error {
	return t.conn.Close()
}

// ServeWS listens on addr and runs one server session per websocket
// connection upgraded at path. It blocks until the listener fails or
// ctx is cancelled, shutting the listener down gracefully in the
// latter case.
func ServeWS(ctx context.Context, addr, path, name, version string, handler *tools.Handler, logger types.Logger) error {
	if logger == nil {
		logger = logx.NewDefaultLogger()
	}
	if path == "" || path[0] != '/' {
		path = "/" + path
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			logger.Error("websocket upgrade from %s failed: %v", r.RemoteAddr, err)
			return
		}
		logger.Info("websocket connection from %s", conn.RemoteAddr())

		go func() {
			transport := NewWSTransport(conn)
			defer transport.Close()

			srv := New(name, version, transport, handler, WithLogger(logger))
			if err := srv.Run(ctx); err != nil && !errors.Is(err, net.ErrClosed) {
				logger.Error("session %s ended: %v", srv.SessionID(), err)
			}
		}()
	})

	httpServer := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s, websocket endpoint %s", addr, path)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/devboy-tools/devboy/logx"
	"github.com/devboy-tools/devboy/protocol"
	"github.com/devboy-tools/devboy/tools"
	"github.com/devboy-tools/devboy/types"
)

// Server runs the JSON-RPC message loop over a Transport and dispatches
// tool calls to a tools.Handler.
//
// The handshake is lenient: tools/list and tools/call are answered even
// before initialize, since some clients probe the catalog first. A second
// initialize is rejected without resetting session state.
type Server struct {
	name      string
	version   string
	transport Transport
	handler   *tools.Handler
	logger    types.Logger

	sessionID   string
	initialized bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger types.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server with the given identity, transport, and tool
// handler.
func New(name, version string, transport Transport, handler *tools.Handler, opts ...Option) *Server {
	s := &Server{
		name:      name,
		version:   version,
		transport: transport,
		handler:   handler,
		logger:    logx.NewDefaultLogger(),
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionID returns the identifier assigned to this connection.
func (s *Server) SessionID() string {
	return s.sessionID
}

// Run reads messages until the client disconnects or the context is
// cancelled. A clean EOF returns nil; an unparseable message is answered
// with a null-id parse error and ends the loop.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("session %s started", s.sessionID)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := s.transport.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("session %s: client disconnected", s.sessionID)
				return nil
			}
			var parseErr *ParseError
			if errors.As(err, &parseErr) {
				s.logger.Error("session %s: %v", s.sessionID, parseErr)
				// Best effort; the connection is going away regardless.
				_ = s.transport.Send(protocol.NewErrorResponse(nil, protocol.CodeParseError, "Parse error"))
				return parseErr
			}
			return err
		}

		if msg.HasID {
			if err := s.transport.Send(s.dispatch(ctx, msg)); err != nil {
				return fmt.Errorf("failed to send response: %w", err)
			}
			continue
		}
		s.handleNotification(msg)
	}
}

// dispatch routes one request to its method handler and always produces a
// response.
func (s *Server) dispatch(ctx context.Context, msg *Incoming) *protocol.JSONRPCResponse {
	id := requestID(msg)
	s.logger.Debug("session %s: %s", s.sessionID, msg.Method)

	switch msg.Method {
	case protocol.MethodInitialize:
		return s.handleInitialize(id, msg)
	case protocol.MethodListTools:
		return protocol.NewSuccessResponse(id, protocol.ListToolsResult{Tools: s.handler.Tools()})
	case protocol.MethodCallTool:
		return s.handleCallTool(ctx, id, msg)
	case protocol.MethodPing:
		return protocol.NewSuccessResponse(id, struct{}{})
	default:
		return protocol.NewErrorResponse(id, protocol.CodeMethodNotFound,
			fmt.Sprintf("Method not found: %s", msg.Method))
	}
}

func (s *Server) handleInitialize(id interface{}, msg *Incoming) *protocol.JSONRPCResponse {
	if s.initialized {
		return protocol.NewErrorResponse(id, protocol.CodeInvalidRequest, "Server already initialized")
	}

	// Client info is informational only; a missing or malformed params
	// object does not fail the handshake.
	var params protocol.InitializeParams
	if len(msg.Params) > 0 {
		if err := protocol.UnmarshalPayload(msg.Params, &params); err != nil {
			s.logger.Warn("session %s: unreadable initialize params: %v", s.sessionID, err)
		}
	}
	if params.ClientInfo.Name != "" {
		s.logger.Info("session %s: client %s %s", s.sessionID, params.ClientInfo.Name, params.ClientInfo.Version)
	}

	s.initialized = true
	return protocol.NewSuccessResponse(id, protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolVersion,
		Capabilities: protocol.ServerCapabilities{
			Tools: &protocol.ToolsCapability{ListChanged: false},
		},
		ServerInfo: protocol.ServerInfo{
			Name:    s.name,
			Version: s.version,
		},
	})
}

func (s *Server) handleCallTool(ctx context.Context, id interface{}, msg *Incoming) *protocol.JSONRPCResponse {
	var params protocol.CallToolParams
	if len(msg.Params) > 0 {
		if err := protocol.UnmarshalPayload(msg.Params, &params); err != nil {
			return protocol.NewErrorResponse(id, protocol.CodeInvalidParams,
				fmt.Sprintf("Invalid params: %v", err))
		}
	}
	if params.Name == "" {
		return protocol.NewErrorResponse(id, protocol.CodeInvalidParams, "Missing tool name")
	}

	// Tool failures travel inside the result with isError set; the JSON-RPC
	// layer still reports success.
	result := s.handler.Execute(ctx, params.Name, params.Arguments)
	return protocol.NewSuccessResponse(id, result)
}

func (s *Server) handleNotification(msg *Incoming) {
	switch msg.Method {
	case protocol.MethodInitialized:
		s.logger.Debug("session %s: client ready", s.sessionID)
	case protocol.MethodCancelled:
		s.logger.Debug("session %s: cancellation received", s.sessionID)
	default:
		s.logger.Debug("session %s: ignoring notification %s", s.sessionID, msg.Method)
	}
}

// requestID converts the raw id bytes into the value echoed back. Literal
// null maps to nil so the response carries "id": null.
func requestID(msg *Incoming) interface{} {
	if len(msg.ID) == 0 || string(msg.ID) == "null" {
		return nil
	}
	return msg.ID
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devboy-tools/devboy/logx"
	"github.com/devboy-tools/devboy/protocol"
	"github.com/devboy-tools/devboy/tools"
)

// runSession feeds the given lines to a server over an in-memory stdio
// transport and returns the decoded responses in order.
func runSession(t *testing.T, lines ...string) ([]protocol.JSONRPCResponse, error) {
	t.Helper()

	input := strings.Join(lines, "\n") + "\n"
	var output bytes.Buffer
	transport := NewStdioTransport(strings.NewReader(input), &output, nil)
	handler := tools.NewHandler(nil, tools.WithLogger(logx.Nop{}))
	srv := New("devboy", "1.0.0", transport, handler, WithLogger(logx.Nop{}))

	err := srv.Run(context.Background())

	var responses []protocol.JSONRPCResponse
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		if line == "" {
			continue
		}
		var resp protocol.JSONRPCResponse
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		responses = append(responses, resp)
	}
	return responses, err
}

func TestInitializeHandshake(t *testing.T) {
	responses, err := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test-client","version":"0.1"}}}`,
		`{"jsonrpc":"2.0","method":"initialized"}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 1)

	resp := responses[0]
	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.EqualValues(t, 1, resp.ID)
	assert.Nil(t, resp.Error)

	var result protocol.InitializeResult
	require.NoError(t, protocol.UnmarshalPayload(resp.Result, &result))
	assert.Equal(t, protocol.ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, "devboy", result.ServerInfo.Name)
	require.NotNil(t, result.Capabilities.Tools)
	assert.False(t, result.Capabilities.Tools.ListChanged)
}

func TestDoubleInitializeRejected(t *testing.T) {
	responses, err := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 3)

	assert.Nil(t, responses[0].Error)
	require.NotNil(t, responses[1].Error)
	assert.Equal(t, protocol.CodeInvalidRequest, responses[1].Error.Code)
	// The session survives the rejected re-initialize.
	assert.Nil(t, responses[2].Error)
}

func TestToolsListBeforeInitialize(t *testing.T) {
	responses, err := runSession(t,
		`{"jsonrpc":"2.0","id":"a","method":"tools/list"}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	var result protocol.ListToolsResult
	require.NoError(t, protocol.UnmarshalPayload(responses[0].Result, &result))
	assert.Len(t, result.Tools, 11)
}

func TestPing(t *testing.T) {
	responses, err := runSession(t,
		`{"jsonrpc":"2.0","id":7,"method":"ping"}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Nil(t, responses[0].Error)
	assert.EqualValues(t, 7, responses[0].ID)
}

func TestMethodNotFound(t *testing.T) {
	responses, err := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, protocol.CodeMethodNotFound, responses[0].Error.Code)
	assert.Contains(t, responses[0].Error.Message, "resources/list")
}

func TestNullIDIsStillARequest(t *testing.T) {
	responses, err := runSession(t,
		`{"jsonrpc":"2.0","id":null,"method":"ping"}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Nil(t, responses[0].ID)
	assert.Nil(t, responses[0].Error)
}

func TestStringIDEchoedBack(t *testing.T) {
	responses, err := runSession(t,
		`{"jsonrpc":"2.0","id":"req-42","method":"ping"}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "req-42", responses[0].ID)
}

func TestUnknownNotificationIgnored(t *testing.T) {
	responses, err := runSession(t,
		`{"jsonrpc":"2.0","method":"notifications/progress","params":{"progress":50}}`,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Nil(t, responses[0].Error)
}

func TestParseErrorTerminatesSession(t *testing.T) {
	responses, err := runSession(t,
		`{this is not json`,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
	)
	require.Error(t, err)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)

	// Exactly one response: the null-id parse error. The ping after the
	// bad line is never processed.
	require.Len(t, responses, 1)
	assert.Nil(t, responses[0].ID)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, protocol.CodeParseError, responses[0].Error.Code)
}

func TestEmptyLinesSkipped(t *testing.T) {
	responses, err := runSession(t,
		``,
		`   `,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		``,
	)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Nil(t, responses[0].Error)
}

func TestEOFIsCleanShutdown(t *testing.T) {
	var output bytes.Buffer
	transport := NewStdioTransport(strings.NewReader(""), &output, nil)
	handler := tools.NewHandler(nil, tools.WithLogger(logx.Nop{}))
	srv := New("devboy", "1.0.0", transport, handler, WithLogger(logx.Nop{}))

	assert.NoError(t, srv.Run(context.Background()))
	assert.Empty(t, output.String())
}

func TestCallToolMissingName(t *testing.T) {
	responses, err := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"arguments":{}}}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, protocol.CodeInvalidParams, responses[0].Error.Code)
}

func TestCallToolFailureIsToolLevel(t *testing.T) {
	// No providers configured: the tool fails, but the JSON-RPC response
	// is still a success carrying isError.
	responses, err := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_issues","arguments":{}}}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	var result protocol.CallToolResult
	require.NoError(t, protocol.UnmarshalPayload(responses[0].Result, &result))
	assert.True(t, result.IsError)
	require.NotEmpty(t, result.Content)
	assert.Contains(t, result.Content[0].Text, "No providers configured")
}

func TestUnknownToolViaWire(t *testing.T) {
	responses, err := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"no_such_tool"}}`,
	)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	var result protocol.CallToolResult
	require.NoError(t, protocol.UnmarshalPayload(responses[0].Result, &result))
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "Unknown tool: no_such_tool")
}

func TestFinalLineWithoutNewline(t *testing.T) {
	var output bytes.Buffer
	transport := NewStdioTransport(strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`), &output, nil)
	handler := tools.NewHandler(nil, tools.WithLogger(logx.Nop{}))
	srv := New("devboy", "1.0.0", transport, handler, WithLogger(logx.Nop{}))

	require.NoError(t, srv.Run(context.Background()))
	assert.Contains(t, output.String(), `"id":1`)
}

func TestParseIncoming(t *testing.T) {
	msg, err := parseIncoming([]byte(`{"jsonrpc":"2.0","id":5,"method":"ping","params":{"a":1}}`))
	require.NoError(t, err)
	assert.True(t, msg.HasID)
	assert.Equal(t, "5", string(msg.ID))
	assert.Equal(t, "ping", msg.Method)
	assert.JSONEq(t, `{"a":1}`, string(msg.Params))

	msg, err = parseIncoming([]byte(`{"jsonrpc":"2.0","method":"initialized"}`))
	require.NoError(t, err)
	assert.False(t, msg.HasID)

	msg, err = parseIncoming([]byte(`{"jsonrpc":"2.0","id":null,"method":"ping"}`))
	require.NoError(t, err)
	assert.True(t, msg.HasID)
	assert.Equal(t, "null", string(msg.ID))

	_, err = parseIncoming([]byte(`[1,2,3]`))
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

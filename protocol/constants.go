package protocol

const (
	// JSONRPCVersion is the only JSON-RPC version this server speaks.
	JSONRPCVersion = "2.0"

	// ProtocolVersion is the MCP protocol revision implemented here.
	ProtocolVersion = "2024-11-05"
)

// Method name constants, aligning with the JSON-RPC 'method' field.
const (
	// Requests.
	MethodInitialize = "initialize"
	MethodListTools  = "tools/list"
	MethodCallTool   = "tools/call"
	MethodPing       = "ping"

	// Notifications.
	MethodInitialized = "initialized"
	MethodCancelled   = "notifications/cancelled"
)

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     ErrorCode = -32700
	CodeInvalidRequest ErrorCode = -32600
	CodeMethodNotFound ErrorCode = -32601
	CodeInvalidParams  ErrorCode = -32602
	CodeInternalError  ErrorCode = -32603
)

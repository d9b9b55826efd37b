package protocol

// --- Initialization ---

// ClientInfo identifies the connecting client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo identifies this server in the initialize result.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities carries whatever the client declares. The server does
// not act on any of it today, so the fields stay loosely typed.
type ClientCapabilities struct {
	Roots    map[string]interface{} `json:"roots,omitempty"`
	Sampling map[string]interface{} `json:"sampling,omitempty"`
}

// InitializeParams defines the parameters for an 'initialize' request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      ClientInfo         `json:"clientInfo"`
}

// ToolsCapability declares the server's tool support.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ServerCapabilities declares what this server supports. Only tools.
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// InitializeResult defines the result payload for 'initialize'.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// --- Tooling ---

// PropertyDetail describes a single parameter within a ToolInputSchema.
type PropertyDetail struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Items       *PropertyDetail `json:"items,omitempty"`
	Minimum     *int            `json:"minimum,omitempty"`
	Maximum     *int            `json:"maximum,omitempty"`
}

// ToolInputSchema defines the expected input for a tool (JSON Schema subset).
type ToolInputSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertyDetail `json:"properties,omitempty"`
	Required   []string                  `json:"required,omitempty"`
}

// Tool defines a tool offered by the server, exposed verbatim via tools/list.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema ToolInputSchema `json:"inputSchema"`
}

// ListToolsResult defines the result payload for 'tools/list'.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolParams defines the parameters for a 'tools/call' request.
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// TextContent is the single content variant this server produces.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult defines the result payload for 'tools/call'.
//
// Tool-level failures travel inside a successful JSON-RPC response with
// IsError set; they are data for the caller to reason about, never
// protocol errors.
type CallToolResult struct {
	Content []TextContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// NewTextResult creates a successful text result.
func NewTextResult(text string) *CallToolResult {
	return &CallToolResult{
		Content: []TextContent{{Type: "text", Text: text}},
	}
}

// NewToolError creates a tool-level error result.
func NewToolError(message string) *CallToolResult {
	return &CallToolResult{
		Content: []TextContent{{Type: "text", Text: message}},
		IsError: true,
	}
}

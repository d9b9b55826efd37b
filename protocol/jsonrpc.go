// Package protocol defines the structures and constants for the Model
// Context Protocol (MCP), based on the JSON-RPC 2.0 specification.
package protocol

import (
	"encoding/json"
	"fmt"
)

// JSONRPCRequest represents a standard JSON-RPC request object.
//
// ID may be a string, a number, or explicit null; the transport stores it as
// a json.RawMessage so the exact client value is echoed back unchanged.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// JSONRPCResponse represents a standard JSON-RPC response object.
// Exactly one of Result or Error is populated.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

// JSONRPCNotification represents a standard JSON-RPC notification object.
// Notifications MUST NOT carry an 'id' field and never receive a response.
type JSONRPCNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// ErrorPayload defines the 'error' object within a failed response.
type ErrorPayload struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRequest creates a new JSON-RPC request object.
func NewRequest(id interface{}, method string, params interface{}) *JSONRPCRequest {
	return &JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// NewNotification creates a new JSON-RPC notification object.
func NewNotification(method string, params interface{}) *JSONRPCNotification {
	return &JSONRPCNotification{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  params,
	}
}

// NewSuccessResponse creates a new JSON-RPC success response object.
func NewSuccessResponse(id interface{}, result interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
	}
}

// NewErrorResponse creates a new JSON-RPC error response object.
// id may be nil when the error occurred before the request ID was parsed.
func NewErrorResponse(id interface{}, code ErrorCode, message string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// UnmarshalPayload unmarshals a received params or result field (held as
// interface{} or json.RawMessage) into the struct pointed to by target.
func UnmarshalPayload(payload interface{}, target interface{}) error {
	if payload == nil {
		return fmt.Errorf("payload is nil, cannot unmarshal")
	}
	var payloadBytes []byte
	switch p := payload.(type) {
	case json.RawMessage:
		payloadBytes = p
	case []byte:
		payloadBytes = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to re-marshal payload (type %T): %w", payload, err)
		}
		payloadBytes = b
	}
	if len(payloadBytes) == 0 || string(payloadBytes) == "null" {
		return fmt.Errorf("payload is empty")
	}
	if err := json.Unmarshal(payloadBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal payload into %T: %w", target, err)
	}
	return nil
}

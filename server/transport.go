// Package server implements the JSON-RPC 2.0 server loop and its
// transports. Messages are newline-delimited JSON objects; stdio is the
// primary transport, with a websocket variant carrying one message per
// text frame.
package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Incoming is one parsed wire message. HasID distinguishes requests from
// notifications: a present id member, even a literal null, makes the
// message a request and the raw bytes are echoed back in the response.
type Incoming struct {
	HasID  bool
	ID     json.RawMessage
	Method string
	Params json.RawMessage
}

// ParseError reports a line that could not be parsed as a JSON-RPC
// message at all. The server answers it with a null-id parse error and
// shuts the connection down.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Transport reads incoming messages and writes outgoing ones. Receive
// returns io.EOF when the peer is done, or a *ParseError for malformed
// input.
type Transport interface {
	Receive() (*Incoming, error)
	Send(msg interface{}) error
	Close() error
}

// parseIncoming decodes one raw message. It goes through a key map first
// so that an explicit "id": null is still recognized as an id.
func parseIncoming(data []byte) (*Incoming, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, &ParseError{Err: err}
	}

	msg := &Incoming{}
	if raw, ok := keys["id"]; ok {
		msg.HasID = true
		msg.ID = raw
	}
	if raw, ok := keys["method"]; ok {
		if err := json.Unmarshal(raw, &msg.Method); err != nil {
			return nil, &ParseError{Err: err}
		}
	}
	if raw, ok := keys["params"]; ok {
		msg.Params = raw
	}
	return msg, nil
}

// StdioTransport frames messages as one JSON object per line on an
// arbitrary reader/writer pair, stdin/stdout in production.
type StdioTransport struct {
	reader *bufio.Reader
	writer *bufio.Writer
	closer io.Closer
}

// NewStdioTransport wraps a reader and writer in line-delimited framing.
// closer may be nil.
func NewStdioTransport(r io.Reader, w io.Writer, closer io.Closer) *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
		closer: closer,
	}
}

// Receive reads the next message, skipping blank lines. io.EOF means the
// peer closed its end cleanly.
func (t *StdioTransport) Receive() (*Incoming, error) {
	for {
		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(bytes.TrimSpace(line)) > 0 {
				// Final line without a trailing newline still counts.
				return parseIncoming(line)
			}
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		return parseIncoming(line)
	}
}

// Send writes one message as a single line and flushes immediately.
func (t *StdioTransport) Send(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if _, err := t.writer.Write(data); err != nil {
		return err
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return err
	}
	return t.writer.Flush()
}

func (t *StdioTransport) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// Package protocol defines the JSON frames exchanged between the relay
// server and remote agents over the persistent websocket.
package protocol

import (
	"encoding/json"
	"fmt"
)

const (
	TypeQuery     = "query"
	TypeResponse  = "response"
	TypePing      = "ping"
	TypePong      = "pong"
	TypeApproval  = "approval"
	TypeError     = "error"
	TypeConnected = "connected"
)

// Frame is the single wire envelope. Which fields are populated depends on
// Type: query carries Message, response carries Result, approval carries
// ActionID/Approved, error and connected carry Message.
type Frame struct {
	Type     string `json:"type"`
	Message  string `json:"message,omitempty"`
	Result   string `json:"result,omitempty"`
	ActionID string `json:"action_id,omitempty"`
	Approved bool   `json:"approved,omitempty"`
}

func Query(message string) Frame {
	return Frame{Type: TypeQuery, Message: message}
}

func Response(result string) Frame {
	return Frame{Type: TypeResponse, Result: result}
}

func Ping() Frame { return Frame{Type: TypePing} }
func Pong() Frame { return Frame{Type: TypePong} }

func Approval(actionID string, approved bool) Frame {
	return Frame{Type: TypeApproval, ActionID: actionID, Approved: approved}
}

func Errorf(format string, args ...any) Frame {
	return Frame{Type: TypeError, Message: fmt.Sprintf(format, args...)}
}

func Connected(message string) Frame {
	return Frame{Type: TypeConnected, Message: message}
}

// Encode marshals the frame for the wire.
func Encode(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

// Decode parses a wire frame, rejecting payloads without a type.
func Decode(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("decode frame: missing type")
	}
	return f, nil
}

// Package protocol defines the JSON frames exchanged between a syncing
// client and the authority. The same frames travel over the WebSocket
// transport and the HTTP fallback (push body, pull response).
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/ZSmain/ordo/internal/event"
)

type FrameType string

const (
	// FrameHello opens an exchange: the client names its partition and
	// the last authority seq it has seen.
	FrameHello FrameType = "hello"
	// FramePush carries unconfirmed local events, in local commit order.
	FramePush FrameType = "push"
	// FrameAck maps pushed event ids to their assigned authority seqs.
	FrameAck FrameType = "ack"
	// FrameEvents carries confirmed events in authority order: backlog
	// after hello, live broadcast afterwards. Pushers receive their own
	// events back here.
	FrameEvents FrameType = "events"
	// FrameError terminates an exchange with a code from the taxonomy.
	FrameError FrameType = "error"
)

// Error codes carried by FrameError.
const (
	CodeUnauthorizedPartitionAccess = "UNAUTHORIZED_PARTITION_ACCESS"
	CodeUnknownEventKind            = "UNKNOWN_EVENT_KIND"
	CodeSchemaViolation             = "SCHEMA_VIOLATION"
	CodeMalformedFrame              = "MALFORMED_FRAME"
	CodeRateLimited                 = "RATE_LIMITED"
)

// Frame is the single wire envelope. Which fields are meaningful depends
// on Type; the rest stay at their zero value and are omitted from JSON.
type Frame struct {
	Type    FrameType        `json:"type"`
	StoreID string           `json:"storeId,omitempty"`
	After   int64            `json:"after,omitempty"`
	Batch   []event.Wire     `json:"batch,omitempty"`
	Seqs    map[string]int64 `json:"seqs,omitempty"`
	Code    string           `json:"code,omitempty"`
	Message string           `json:"message,omitempty"`
}

func Hello(storeID string, after int64) Frame {
	return Frame{Type: FrameHello, StoreID: storeID, After: after}
}

func Push(storeID string, batch []event.Wire) Frame {
	return Frame{Type: FramePush, StoreID: storeID, Batch: batch}
}

func Ack(storeID string, seqs map[string]int64) Frame {
	return Frame{Type: FrameAck, StoreID: storeID, Seqs: seqs}
}

func Events(storeID string, batch []event.Wire) Frame {
	return Frame{Type: FrameEvents, StoreID: storeID, Batch: batch}
}

func Error(code, message string) Frame {
	return Frame{Type: FrameError, Code: code, Message: message}
}

// Decode parses one frame and checks the fields its type requires.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func (f Frame) Validate() error {
	switch f.Type {
	case FrameHello, FramePush, FrameAck, FrameEvents:
		if f.StoreID == "" {
			return fmt.Errorf("%s frame: missing storeId", f.Type)
		}
	case FrameError:
		if f.Code == "" {
			return fmt.Errorf("error frame: missing code")
		}
	default:
		return fmt.Errorf("unknown frame type %q", f.Type)
	}
	return nil
}

func (f Frame) Encode() ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Type, err)
	}
	return data, nil
}

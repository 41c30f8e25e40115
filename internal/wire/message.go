// Package wire defines the messages exchanged over the live feed. The store's
// hub writes them and viewers read them.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"sketchsync/internal/domain"
)

type MessageType string

const (
	TypePointsAdded MessageType = "points_added"
	TypeReset       MessageType = "reset"
	TypePing        MessageType = "ping"
	TypePong        MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type PointsAddedPayload struct {
	ViewerID string               `json:"viewer_id"`
	Points   domain.PointSequence `json:"points"`
}

type ResetPayload struct {
	ViewerID string `json:"viewer_id"`
	Cleared  int    `json:"cleared"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// EncodeFrame packs already encoded messages into one frame: a JSON array.
func EncodeFrame(messages ...[]byte) ([]byte, error) {
	batch := make([]json.RawMessage, len(messages))
	for i, m := range messages {
		batch[i] = m
	}
	frame, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return frame, nil
}

// DecodeFrame unpacks a frame. A bare object is read as a batch of one so
// viewers may send single messages.
func DecodeFrame(frame []byte) ([]Message, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '{' {
		var msg Message
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		return []Message{msg}, nil
	}

	var batch []Message
	if err := json.Unmarshal(trimmed, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return batch, nil
}

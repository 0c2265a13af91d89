package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	TypeSubscribe      MessageType = "subscribe"
	TypeUnsubscribe    MessageType = "unsubscribe"
	TypeVersionCreated MessageType = "version_created"
	TypeVersionUpdated MessageType = "version_updated"
	TypeVersionDeleted MessageType = "version_deleted"
	TypeBufferOp       MessageType = "buffer_op"
	TypeAck            MessageType = "ack"
	TypePing           MessageType = "ping"
	TypePong           MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type SubscribePayload struct {
	DocumentID string `json:"document_id"`
}

// VersionEventPayload notifies subscribers that the ledger changed for a
// document. It deliberately omits the full record: delivery is
// at-least-once and consumers re-fetch what they need.
type VersionEventPayload struct {
	DocumentID string `json:"document_id"`
	VersionID  string `json:"version_id"`
	Version    string `json:"version"`
	Tier       string `json:"tier,omitempty"`
}

// BufferOpPayload relays a collaborative buffer operation between the
// editors of one document.
type BufferOpPayload struct {
	DocumentID string          `json:"document_id"`
	Op         json.RawMessage `json:"op"`
}

// AckPayload answers a subscribe request, naming the document it is for.
type AckPayload struct {
	DocumentID string `json:"document_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
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

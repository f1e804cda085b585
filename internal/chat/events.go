package chat

import (
	"encoding/json"
	"fmt"
)

// Client-to-server events
const (
	EventJoinGroup   = "join_group"
	EventLeaveGroup  = "leave_group"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
)

// Server-to-client events
const (
	EventNewMessage = "new_message"
	EventUserTyping = "user_typing"
	EventError      = "error"
)

// ClientEvent is the tagged envelope every inbound frame must decode into.
// Payloads are validated here, at the channel boundary, before anything
// reaches the pipeline.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type ServerEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type GroupRef struct {
	GroupID int64 `json:"group_id"`
}

type SendMessagePayload struct {
	GroupID int64  `json:"group_id"`
	Text    string `json:"text"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type TypingPayload struct {
	UserID int64 `json:"user_id"`
}

func decodeGroupRef(data json.RawMessage) (GroupRef, error) {
	var ref GroupRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return ref, fmt.Errorf("malformed payload: %w", err)
	}
	if ref.GroupID <= 0 {
		return ref, fmt.Errorf("invalid group id")
	}
	return ref, nil
}

func decodeSendMessage(data json.RawMessage) (SendMessagePayload, error) {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("malformed payload: %w", err)
	}
	if p.GroupID <= 0 {
		return p, fmt.Errorf("invalid group id")
	}
	return p, nil
}

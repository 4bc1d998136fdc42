// Package notify carries session events to the front end.
//
// Events mirror the agent's data-channel messages: a type, an optional data
// payload and a timestamp. Delivery is best effort; publishers never block a
// session on a slow or absent front end beyond the caller's context.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topic is the data-channel topic and the default Redis channel prefix.
const Topic = "agent_events"

// EventType names a front-end event.
type EventType string

const (
	EventToolCall        EventType = "tool_call"
	EventSummary         EventType = "summary"
	EventConversationEnd EventType = "conversation_end"
	EventAgentReady      EventType = "agent_ready"
)

// Event is one message for the front end of a room.
type Event struct {
	Type      EventType `json:"type"`
	Room      string    `json:"-"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events for a room.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// ToolCall is the data of a tool_call event.
type ToolCall struct {
	ID        string          `json:"id"`
	Tool      string          `json:"tool"`
	Params    json.RawMessage `json:"params"`
	Result    any             `json:"result"`
	Timestamp int64           `json:"timestamp"`
}

// NewToolCall builds a tool_call event stamped with now.
func NewToolCall(room, tool string, params json.RawMessage, result any, now time.Time) Event {
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	return Event{
		Type: EventToolCall,
		Room: room,
		Data: ToolCall{
			ID:        uuid.NewString(),
			Tool:      tool,
			Params:    params,
			Result:    result,
			Timestamp: now.UnixMilli(),
		},
		Timestamp: now,
	}
}

// NewEvent builds an event of type t stamped with now.
func NewEvent(room string, t EventType, data any, now time.Time) Event {
	return Event{Type: t, Room: room, Data: data, Timestamp: now}
}

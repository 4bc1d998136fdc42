package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToolCall(t *testing.T) {
	now := time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC)
	ev := NewToolCall("room-1", "book_appointment", nil, map[string]any{"ok": true}, now)

	assert.Equal(t, EventToolCall, ev.Type)
	assert.Equal(t, "room-1", ev.Room)
	tc, ok := ev.Data.(ToolCall)
	require.True(t, ok)
	assert.NotEmpty(t, tc.ID)
	assert.Equal(t, now.UnixMilli(), tc.Timestamp)
	assert.JSONEq(t, `{}`, string(tc.Params))

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "tool_call", decoded["type"])
	assert.NotContains(t, decoded, "Room")
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	now := time.Now()
	require.NoError(t, r.Publish(context.Background(), NewEvent("r", EventSummary, nil, now)))
	require.NoError(t, r.Publish(context.Background(), NewEvent("r", EventConversationEnd, nil, now)))
	assert.Equal(t, []EventType{EventSummary, EventConversationEnd}, r.Types())

	evs := r.Events()
	evs[0].Type = "mutated"
	assert.Equal(t, EventSummary, r.Events()[0].Type)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))
	require.NoError(t, p.Publish(context.Background(), NewEvent("room-9", EventAgentReady, map[string]bool{"has_avatar": false}, time.Now())))
	assert.Contains(t, buf.String(), `"room":"room-9"`)
	assert.Contains(t, buf.String(), `"type":"agent_ready"`)
}

func TestRedisPublisher(t *testing.T) {
	addr := os.Getenv("VOICE_AGENT_REDIS_ADDR")
	if addr == "" {
		t.Skip("VOICE_AGENT_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := NewRedisPublisher(ctx, addr, "test_events", zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = p.Close() }()
	require.NoError(t, p.HealthPing(ctx))
	assert.Equal(t, "test_events:room-1", p.Channel("room-1"))

	got := make(chan Event, 1)
	require.NoError(t, p.Subscribe(ctx, "room-1", func(ev Event) { got <- ev }))
	require.NoError(t, p.Publish(ctx, NewEvent("room-1", EventConversationEnd, nil, time.Now())))

	select {
	case ev := <-got:
		assert.Equal(t, EventConversationEnd, ev.Type)
		assert.Equal(t, "room-1", ev.Room)
	case <-ctx.Done():
		t.Fatal("event not received")
	}
}

func TestNewRedisPublisher_RequiresAddr(t *testing.T) {
	_, err := NewRedisPublisher(context.Background(), "", "", zerolog.Nop())
	assert.Error(t, err)
}

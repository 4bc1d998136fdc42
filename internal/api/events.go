package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/api/respond"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/notify"
)

const (
	eventHeartbeat = 15 * time.Second
	eventBuffer    = 32
)

// EventSubscriber delivers the events published for a room until ctx is done.
type EventSubscriber interface {
	Subscribe(ctx context.Context, room string, fn func(notify.Event)) error
}

// EventHandler relays a room's events to a browser as server-sent events.
type EventHandler struct {
	sub       EventSubscriber
	heartbeat time.Duration
	log       zerolog.Logger
}

func NewEventHandler(sub EventSubscriber, log zerolog.Logger) *EventHandler {
	return &EventHandler{
		sub:       sub,
		heartbeat: eventHeartbeat,
		log:       log.With().Str("component", "events").Logger(),
	}
}

// Stream handles GET /api/events/{room}. The stream ends after the room's
// conversation_end event or when the client goes away.
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.WriteError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}
	room := mux.Vars(r)["room"]
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan notify.Event, eventBuffer)
	err := h.sub.Subscribe(ctx, room, func(ev notify.Event) {
		select {
		case events <- ev:
		default:
			h.log.Warn().Str("room", room).Str("type", string(ev.Type)).Msg("dropping event; client too slow")
		}
	})
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("subscribe failed")
		respond.WriteError(w, http.StatusServiceUnavailable, "Event stream unavailable")
		return
	}

	// The server's write timeout is meant for request/response routes.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-events:
			raw, err := json.Marshal(ev)
			if err != nil {
				h.log.Warn().Err(err).Str("type", string(ev.Type)).Msg("event not encodable")
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, raw)
			flusher.Flush()
			if ev.Type == notify.EventConversationEnd {
				return
			}
		}
	}
}

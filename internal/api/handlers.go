package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/api/respond"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/retry"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/slots"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
)

// SlotLister reports the free slots of a date.
type SlotLister interface {
	Available(ctx context.Context, date string) ([]slots.Slot, error)
}

// ConversationHandler serves persisted conversations by room.
type ConversationHandler struct {
	conversations store.Conversations
	policy        retry.Policy
}

func NewConversationHandler(conversations store.Conversations, policy retry.Policy) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, policy: policy}
}

func (h *ConversationHandler) latest(r *http.Request) (*model.Conversation, error) {
	room := mux.Vars(r)["room"]
	return retry.Do(r.Context(), h.policy, func(ctx context.Context) (*model.Conversation, error) {
		return h.conversations.LatestByRoom(ctx, room)
	})
}

// GetConversation handles GET /api/conversations/{room}.
func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	c, err := h.latest(r)
	if errors.Is(err, model.ErrNotFound) {
		respond.WriteNotFound(w, "no conversation for this room")
		return
	}
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, c)
}

// GetSummary handles GET /summary/{room}, the front end's summary view.
func (h *ConversationHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	c, err := h.latest(r)
	if errors.Is(err, model.ErrNotFound) {
		respond.WriteNotFound(w, "Summary not found for this room")
		return
	}
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, c.View())
}

// SlotHandler serves availability.
type SlotHandler struct {
	slots SlotLister
}

func NewSlotHandler(s SlotLister) *SlotHandler { return &SlotHandler{slots: s} }

// GetSlots handles GET /api/slots/{date}.
func (h *SlotHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	free, err := h.slots.Available(r.Context(), date)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"date":   date,
		"slots":  free,
		"spoken": slots.ForSpeech(free, 0),
	})
}

// HealthHandler reports the aggregated dependency health.
type HealthHandler struct {
	isHealthy func() bool
}

func NewHealthHandler(isHealthy func() bool) *HealthHandler {
	return &HealthHandler{isHealthy: isHealthy}
}

// CheckHealth handles GET /api/health. It answers 200 when healthy and 503 otherwise.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if !h.isHealthy() {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	respond.WriteJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

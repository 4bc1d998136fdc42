// Package api serves the read endpoints for operators and the front end.
package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/api/recovery"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/retry"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
)

// Deps are the collaborators of the router.
type Deps struct {
	Store store.Store
	Slots SlotLister
	// Events, when set, backs the live event stream of a room.
	Events    EventSubscriber
	IsHealthy func() bool
	Policy    retry.Policy
	Log       zerolog.Logger
}

// NewRouter wires every HTTP route.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware(d.Log))

	conversations := NewConversationHandler(d.Store.Conversations(), d.Policy)
	slotHandler := NewSlotHandler(d.Slots)
	health := NewHealthHandler(d.IsHealthy)

	router.HandleFunc("/api/health", health.CheckHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/api/conversations/{room}", conversations.GetConversation).Methods("GET")
	router.HandleFunc("/summary/{room}", conversations.GetSummary).Methods("GET")
	router.HandleFunc("/api/slots/{date}", slotHandler.GetSlots).Methods("GET")

	if d.Events != nil {
		events := NewEventHandler(d.Events, d.Log)
		router.HandleFunc("/api/events/{room}", events.Stream).Methods("GET")
	}

	return router
}

package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything published so far, in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the event types published so far, in order.
func (r *Recorder) Types() []EventType {
	evs := r.Events()
	out := make([]EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

// LogPublisher writes events to the log. Used when no front-end bus is configured.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "notify").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Info().Str("room", ev.Room).Str("type", string(ev.Type)).Interface("data", ev.Data).Msg("event")
	return nil
}

// Package session holds the per-conversation state machine and routes tool
// calls from the language model to the identity and booking components.
//
// A Session is created by, and owned by, one control loop. Nothing here is
// process-global; concurrent sessions share only the store behind the
// Dispatcher's collaborators.
package session

import (
	"sync"
	"time"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/cost"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
)

// State is the identity/lifecycle state of a session.
type State int

const (
	Anonymous State = iota
	// AwaitingName is the Anonymous sub-state entered when an unknown phone
	// was given without a name; the next name completes registration.
	AwaitingName
	Identified
	Closed
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case AwaitingName:
		return "awaiting_name"
	case Identified:
		return "identified"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the mutable context of one conversation. Methods are safe for
// concurrent use so metering callbacks may arrive from other goroutines.
type Session struct {
	mu sync.Mutex
	// inflight counts tool calls running against the session; closing
	// waits for it to drain.
	inflight sync.WaitGroup

	room         string
	state        State
	closing      bool
	user         *model.User
	pendingPhone string
	transcript   []model.TranscriptEntry
	discussed    []model.DiscussedAppointment
	preferences  []string
	prefSeen     map[string]struct{}
	meter        *cost.Meter
	startedAt    time.Time
	now          func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the clock used for timestamps and duration.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithRates prices usage with r instead of cost.DefaultRates.
func WithRates(r cost.Rates) Option {
	return func(s *Session) { s.meter = cost.NewMeter(r) }
}

// New starts an anonymous session for room.
func New(room string, opts ...Option) *Session {
	s := &Session{
		room:     room,
		state:    Anonymous,
		prefSeen: map[string]struct{}{},
		meter:    cost.NewMeter(cost.DefaultRates),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.startedAt = s.now()
	return s
}

func (s *Session) Room() string { return s.room }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns a copy of the identified user, or nil.
func (s *Session) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// AddUtterance appends spoken text to the transcript.
func (s *Session) AddUtterance(role model.Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, model.TranscriptEntry{Role: role, Content: text, Timestamp: s.now().UTC()})
}

func (s *Session) RecordSTT(seconds float64)               { s.meter.AddSTT(seconds) }
func (s *Session) RecordTTS(chars int)                     { s.meter.AddTTS(chars) }
func (s *Session) RecordLLM(inputTokens, outputTokens int) { s.meter.AddLLM(inputTokens, outputTokens) }

// NotePreference adds text to the mentioned-preferences set. It reports
// whether the preference was new.
func (s *Session) NotePreference(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prefSeen[text]; ok {
		return false
	}
	s.prefSeen[text] = struct{}{}
	s.preferences = append(s.preferences, text)
	return true
}

// Snapshot is a point-in-time copy of a session's state.
type Snapshot struct {
	Room        string
	State       State
	User        *model.User
	Transcript  []model.TranscriptEntry
	Discussed   []model.DiscussedAppointment
	Preferences []string
	Costs       model.CostBreakdown
	StartedAt   time.Time
	Duration    time.Duration
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Room:        s.room,
		State:       s.state,
		Transcript:  append([]model.TranscriptEntry(nil), s.transcript...),
		Discussed:   append([]model.DiscussedAppointment(nil), s.discussed...),
		Preferences: append([]string(nil), s.preferences...),
		Costs:       s.meter.Breakdown(),
		StartedAt:   s.startedAt,
		Duration:    s.now().Sub(s.startedAt),
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *Session) identify(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return
	}
	s.user = u
	s.pendingPhone = ""
	s.state = Identified
}

func (s *Session) awaitName(phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return
	}
	s.user = nil
	s.pendingPhone = phone
	s.state = AwaitingName
}

func (s *Session) pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != AwaitingName {
		return ""
	}
	return s.pendingPhone
}

func (s *Session) userID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Identified || s.user == nil {
		return ""
	}
	return s.user.ID
}

func (s *Session) appendTool(tool, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, model.TranscriptEntry{
		Role: model.RoleTool, Tool: tool, Content: content, Timestamp: s.now().UTC(),
	})
}

func (s *Session) appendDiscussed(d model.DiscussedAppointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discussed = append(s.discussed, d)
}

// enter admits one tool call, or reports false once closing has begun.
// Every admitted call must be paired with leave.
func (s *Session) enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed || s.closing {
		return false
	}
	s.inflight.Add(1)
	return true
}

func (s *Session) leave() {
	s.inflight.Done()
}

// beginClose claims the right to close the session exactly once, then waits
// for admitted tool calls to finish so their effects are part of what closes.
func (s *Session) beginClose() error {
	s.mu.Lock()
	if s.state == Closed || s.closing {
		s.mu.Unlock()
		return model.ErrAlreadyClosed
	}
	s.closing = true
	s.mu.Unlock()

	s.inflight.Wait()
	return nil
}

func (s *Session) finishClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = false
	s.state = Closed
}

package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/metrics"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/notify"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/retry"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/summary"
)

// Closer turns a finished session into a persisted Conversation and tells the
// front end. It is the one step allowed to degrade: a failed or slow summary
// falls back to a local one, and a failed write is logged, not returned.
type Closer struct {
	summarizer    summary.Summarizer
	conversations store.Conversations
	pub           notify.Publisher
	timeout       time.Duration
	policy        retry.Policy
	now           func() time.Time
	log           zerolog.Logger
}

func NewCloser(summarizer summary.Summarizer, st store.Store, pub notify.Publisher, timeout time.Duration, policy retry.Policy, log zerolog.Logger) *Closer {
	return &Closer{
		summarizer:    summarizer,
		conversations: st.Conversations(),
		pub:           pub,
		timeout:       timeout,
		policy:        policy,
		now:           time.Now,
		log:           log.With().Str("component", "closer").Logger(),
	}
}

// Close summarizes, persists and closes s. It fails with model.ErrAlreadyClosed
// if s is closed or another Close is in progress. Tool calls already running
// on s finish first and are included. Close runs to completion even if ctx is
// cancelled, since the caller may already have hung up.
func (c *Closer) Close(ctx context.Context, s *Session, reason string) (*model.Conversation, error) {
	if err := s.beginClose(); err != nil {
		return nil, err
	}
	return c.complete(ctx, s, reason), nil
}

// complete closes s, on which beginClose has already succeeded.
func (c *Closer) complete(ctx context.Context, s *Session, reason string) *model.Conversation {
	ctx = context.WithoutCancel(ctx)
	log := c.log.With().Str("room", s.Room()).Str("reason", reason).Logger()

	snap := s.Snapshot()
	in := summary.Input{
		Transcript:   snap.Transcript,
		Appointments: snap.Discussed,
		Preferences:  snap.Preferences,
		OnUsage:      s.RecordLLM,
	}
	if snap.User != nil {
		in.UserName = snap.User.DisplayName()
	}
	text := c.summarize(ctx, in, log)

	// Re-read costs so the summary call's own tokens are included.
	snap = s.Snapshot()
	conv := &model.Conversation{
		ID:              uuid.NewString(),
		RoomName:        snap.Room,
		Summary:         text,
		Appointments:    snap.Discussed,
		Preferences:     snap.Preferences,
		Transcript:      snap.Transcript,
		Costs:           snap.Costs,
		DurationSeconds: int(snap.Duration.Seconds()),
		CreatedAt:       c.now().UTC(),
	}
	if conv.Appointments == nil {
		conv.Appointments = []model.DiscussedAppointment{}
	}
	if conv.Preferences == nil {
		conv.Preferences = []string{}
	}
	if snap.User != nil {
		conv.UserID = &snap.User.ID
		conv.UserName = snap.User.Name
		phone := snap.User.Phone
		conv.UserPhone = &phone
	}

	persisted := true
	saved, err := retry.Do(ctx, c.policy, func(ctx context.Context) (*model.Conversation, error) {
		out, err := c.conversations.Create(ctx, conv)
		if store.IsUniqueViolation(err, "") {
			// An earlier attempt committed before failing to report back.
			return conv, nil
		}
		return out, err
	})
	if err != nil {
		persisted = false
		log.Error().Stack().Err(err).Str("conversation_id", conv.ID).Msg("conversation not persisted")
	} else {
		conv = saved
	}
	metrics.SessionsClosedTotal.WithLabelValues(strconv.FormatBool(persisted)).Inc()

	s.finishClose()
	log.Info().
		Str("conversation_id", conv.ID).
		Int("appointments", len(conv.Appointments)).
		Int("duration_seconds", conv.DurationSeconds).
		Float64("total_cost", conv.Costs.TotalCost).
		Bool("persisted", persisted).
		Msg("session closed")

	c.publish(ctx, notify.NewEvent(s.Room(), notify.EventSummary, conv.View(), c.now()), log)
	c.publish(ctx, notify.NewEvent(s.Room(), notify.EventConversationEnd, map[string]string{"reason": reason}, c.now()), log)
	return conv
}

func (c *Closer) summarize(ctx context.Context, in summary.Input, log zerolog.Logger) string {
	if c.summarizer == nil {
		return summary.Fallback(in)
	}
	sumCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	text, err := c.summarizer.Summarize(sumCtx, in)
	if err == nil {
		return text
	}
	cause := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		cause = "timeout"
	}
	metrics.SummaryFallbacksTotal.WithLabelValues(cause).Inc()
	log.Warn().Err(err).Str("cause", cause).Msg("summary unavailable; using fallback")
	return summary.Fallback(in)
}

func (c *Closer) publish(ctx context.Context, ev notify.Event, log zerolog.Logger) {
	pubCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := c.pub.Publish(pubCtx, ev); err != nil {
		metrics.NotifyFailuresTotal.WithLabelValues(string(ev.Type)).Inc()
		log.Warn().Err(err).Str("type", string(ev.Type)).Msg("event not delivered")
	}
}

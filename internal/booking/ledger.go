// Package booking validates and commits appointment mutations.
//
// Slot occupancy is never tracked in process: it is derived from the store's
// live (non-cancelled) rows, and the store's partial unique index on
// (date, time) is the commit-time arbiter between concurrent sessions. The
// first committer wins; every loser sees model.ErrSlotUnavailable.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/metrics"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/retry"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/slots"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
)

// CodeLength is the length of a rendered confirmation code.
const CodeLength = 8

const (
	maxCodeAttempts  = 3
	defaultDaysAhead = 7
	maxDaysAhead     = 14
)

// Ledger books, reschedules and cancels appointments.
type Ledger struct {
	appointments store.Appointments
	policy       retry.Policy
	now          func() time.Time
	log          zerolog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used to reject dates in the past.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(st store.Store, policy retry.Policy, log zerolog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		appointments: st.Appointments(),
		policy:       policy,
		now:          time.Now,
		log:          log.With().Str("component", "booking").Logger(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// CodeFor derives the confirmation code of an appointment id.
func CodeFor(id string) string {
	return strings.ToLower(strings.ReplaceAll(id, "-", "")[:CodeLength])
}

// NormalizeCode accepts an 8-character confirmation code in any case, or a
// full appointment id, and returns the canonical lower-case code.
func NormalizeCode(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if _, err := uuid.Parse(s); err == nil && len(s) == 36 {
		return CodeFor(s), nil
	}
	if len(s) != CodeLength {
		return "", model.NewValidationError("appointment_id", fmt.Sprintf("confirmation code must be %d characters", CodeLength))
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return "", model.NewValidationError("appointment_id", "confirmation code may only contain 0-9 and a-f")
		}
	}
	return s, nil
}

func (l *Ledger) today() string { return l.now().Format(slots.DateLayout) }

// validateSlot resolves date/time to a bookable slot that is not in the past.
func (l *Ledger) validateSlot(date, tm string) (slots.Slot, error) {
	s, err := slots.Lookup(date, tm)
	if err != nil {
		return slots.Slot{}, err
	}
	if s.Date < l.today() {
		return slots.Slot{}, fmt.Errorf("%w: %s is in the past", slots.ErrInvalidSlot, s.Date)
	}
	return s, nil
}

func requireUser(userID string) error {
	if userID == "" {
		return model.ErrNotIdentified
	}
	return nil
}

// Book commits a new appointment for userID in the given slot.
func (l *Ledger) Book(ctx context.Context, userID, date, tm string) (*model.Appointment, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	s, err := l.validateSlot(date, tm)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		id := uuid.New().String()
		a, err := l.appointments.Create(ctx, &model.Appointment{
			ID:     id,
			Code:   CodeFor(id),
			UserID: userID,
			Date:   s.Date,
			Time:   s.Time,
			Slot:   s.Label,
			Status: model.StatusBooked,
		})
		switch {
		case err == nil:
			l.log.Info().Str("user_id", userID).Str("code", a.Code).Str("date", a.Date).Str("time", a.Time).Msg("appointment booked")
			return a, nil
		case store.IsUniqueViolation(err, store.ConstraintAppointmentCode):
			l.log.Warn().Int("attempt", attempt).Msg("confirmation code collision; regenerating")
			continue
		case store.IsUniqueViolation(err, ""):
			metrics.SlotConflictsTotal.WithLabelValues("book").Inc()
			return nil, fmt.Errorf("%w: %s at %s is already booked", model.ErrSlotUnavailable, s.Date, s.Time)
		default:
			return nil, retry.Upstream(err)
		}
	}
	return nil, retry.Upstream(errors.New("could not allocate a unique confirmation code"))
}

// owned loads an appointment by code and hides other callers' appointments behind NotFound.
func (l *Ledger) owned(ctx context.Context, userID, code string) (*model.Appointment, error) {
	norm, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	a, err := retry.Do(ctx, l.policy, func(ctx context.Context) (*model.Appointment, error) {
		return l.appointments.GetByCode(ctx, norm)
	})
	if errors.Is(err, model.ErrNotFound) || (err == nil && a.UserID != userID) {
		return nil, fmt.Errorf("%w: no appointment with code %s", model.ErrNotFound, norm)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Modify moves the caller's appointment to a new slot. The old slot stays
// held until the new one commits; on conflict the appointment is unchanged.
// It returns the updated appointment and a copy of the previous one.
func (l *Ledger) Modify(ctx context.Context, userID, code, newDate, newTime string) (*model.Appointment, *model.Appointment, error) {
	if err := requireUser(userID); err != nil {
		return nil, nil, err
	}
	prev, err := l.owned(ctx, userID, code)
	if err != nil {
		return nil, nil, err
	}
	if !prev.Live() {
		return nil, nil, fmt.Errorf("%w: appointment %s is cancelled", model.ErrNotFound, prev.Code)
	}
	s, err := l.validateSlot(newDate, newTime)
	if err != nil {
		return nil, nil, err
	}
	if s.Date == prev.Date && s.Time == prev.Time {
		return prev, prev, nil
	}

	updated, err := l.appointments.Reschedule(ctx, prev.ID, s.Date, s.Time, s.Label)
	switch {
	case err == nil:
		l.log.Info().Str("code", updated.Code).
			Str("old_date", prev.Date).Str("old_time", prev.Time).
			Str("date", updated.Date).Str("time", updated.Time).
			Msg("appointment rescheduled")
		return updated, prev, nil
	case store.IsUniqueViolation(err, ""):
		metrics.SlotConflictsTotal.WithLabelValues("modify").Inc()
		return nil, nil, fmt.Errorf("%w: %s at %s is already booked", model.ErrSlotUnavailable, s.Date, s.Time)
	case errors.Is(err, model.ErrNotFound):
		return nil, nil, fmt.Errorf("%w: appointment %s is no longer active", model.ErrNotFound, prev.Code)
	default:
		return nil, nil, retry.Upstream(err)
	}
}

// Cancel marks the caller's appointment cancelled. Cancelling an already
// cancelled appointment succeeds without a write; changed reports whether
// this call performed the transition.
func (l *Ledger) Cancel(ctx context.Context, userID, code string) (a *model.Appointment, changed bool, err error) {
	if err := requireUser(userID); err != nil {
		return nil, false, err
	}
	cur, err := l.owned(ctx, userID, code)
	if err != nil {
		return nil, false, err
	}
	if cur.Status == model.StatusCancelled {
		return cur, false, nil
	}
	cancelled, err := l.appointments.SetStatus(ctx, cur.ID, model.StatusCancelled)
	if errors.Is(err, model.ErrNotFound) {
		// Another call cancelled it between the read and the write.
		now, err := l.appointments.GetByCode(ctx, cur.Code)
		if err != nil {
			return nil, false, retry.Upstream(err)
		}
		if now.Status == model.StatusCancelled {
			return now, false, nil
		}
		return nil, false, fmt.Errorf("%w: appointment %s", model.ErrNotFound, code)
	}
	if err != nil {
		return nil, false, retry.Upstream(err)
	}
	l.log.Info().Str("code", cancelled.Code).Msg("appointment cancelled")
	return cancelled, true, nil
}

// ListForUser returns the user's appointments, newest date first.
func (l *Ledger) ListForUser(ctx context.Context, userID string, includeCancelled bool) ([]*model.Appointment, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return retry.Do(ctx, l.policy, func(ctx context.Context) ([]*model.Appointment, error) {
		return l.appointments.ListByUser(ctx, userID, includeCancelled)
	})
}

// Available returns the free slots of date in chronological order.
// The result is a read snapshot; Book re-validates at commit time.
func (l *Ledger) Available(ctx context.Context, date string) ([]slots.Slot, error) {
	d, err := slots.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if slots.IsWeekend(d) {
		return []slots.Slot{}, nil
	}
	booked, err := retry.Do(ctx, l.policy, func(ctx context.Context) ([]string, error) {
		return l.appointments.BookedTimes(ctx, d.Format(slots.DateLayout))
	})
	if err != nil {
		return nil, err
	}
	return slots.Available(d.Format(slots.DateLayout), booked)
}

// Upcoming returns the free slots of the next daysAhead days, starting tomorrow.
func (l *Ledger) Upcoming(ctx context.Context, daysAhead int) ([]slots.Slot, error) {
	if daysAhead <= 0 {
		daysAhead = defaultDaysAhead
	}
	if daysAhead > maxDaysAhead {
		daysAhead = maxDaysAhead
	}
	var out []slots.Slot
	seen := map[string]bool{}
	for _, s := range slots.Upcoming(l.now(), daysAhead) {
		if seen[s.Date] {
			continue
		}
		seen[s.Date] = true
		free, err := l.Available(ctx, s.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, free...)
	}
	return out, nil
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/booking"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/identity"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/metrics"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/notify"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/slots"
)

const (
	// speechSlotLimit caps how many slots are read out in one reply.
	speechSlotLimit = 12
	notifyTimeout   = 2 * time.Second
)

// Result is the structured outcome of a tool call. Errors are data: Kind
// carries the error kind and Message a speakable explanation.
type Result struct {
	Tool            string `json:"tool"`
	OK              bool   `json:"ok"`
	Kind            string `json:"error,omitempty"`
	Message         string `json:"message"`
	Data            any    `json:"data,omitempty"`
	EndConversation bool   `json:"end_conversation,omitempty"`
	// Suppressed is set when the caller went away while the call ran. Any
	// committed effect stands but the reply must not be spoken.
	Suppressed bool `json:"-"`
}

// Dispatcher routes tool calls to the identity and booking components. It
// holds no per-session state and may be shared by all sessions.
type Dispatcher struct {
	resolver *identity.Resolver
	ledger   *booking.Ledger
	closer   *Closer
	pub      notify.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewDispatcher(resolver *identity.Resolver, ledger *booking.Ledger, closer *Closer, pub notify.Publisher, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		resolver: resolver,
		ledger:   ledger,
		closer:   closer,
		pub:      pub,
		log:      log.With().Str("component", "dispatch").Logger(),
		now:      time.Now,
	}
}

// DispatchRaw parses and dispatches a tool call given as name and JSON arguments.
func (d *Dispatcher) DispatchRaw(ctx context.Context, s *Session, name string, args json.RawMessage) Result {
	call, err := ParseCall(name, args)
	if err != nil {
		start := time.Now()
		res := failure(name, err)
		open := s.enter()
		if open {
			defer s.leave()
		}
		d.finish(ctx, s, name, args, start, &res, !open)
		return res
	}
	return d.dispatch(ctx, s, call, args)
}

// Dispatch runs one call against s and always returns a Result.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, call Call) Result {
	args, _ := json.Marshal(call)
	return d.dispatch(ctx, s, call, args)
}

// dispatch runs call while holding the session open. A call admitted before
// end_conversation (or a hang-up) completes and is recorded before the session
// closes; a call arriving after is refused and leaves no trace.
func (d *Dispatcher) dispatch(ctx context.Context, s *Session, call Call, args json.RawMessage) Result {
	start := time.Now()
	if _, ok := call.(EndConversation); ok {
		// end_conversation drains the other calls itself and records itself
		// before the session closes.
		res := d.route(ctx, s, call, args)
		d.finish(ctx, s, call.Tool(), args, start, &res, true)
		return res
	}
	if !s.enter() {
		res := closedResult(call.Tool())
		d.finish(ctx, s, call.Tool(), args, start, &res, true)
		return res
	}
	defer s.leave()

	res := d.route(ctx, s, call, args)
	d.finish(ctx, s, call.Tool(), args, start, &res, false)
	return res
}

func closedResult(tool string) Result {
	res := failure(tool, model.ErrAlreadyClosed)
	res.Message = "This conversation has already ended."
	return res
}

func (d *Dispatcher) route(ctx context.Context, s *Session, call Call, args json.RawMessage) Result {
	switch c := call.(type) {
	case IdentifyUser:
		return d.identifyUser(ctx, s, c)
	case FetchSlots:
		return d.fetchSlots(ctx, c)
	case BookAppointment:
		return d.book(ctx, s, c)
	case RetrieveAppointments:
		return d.retrieve(ctx, s, c)
	case CancelAppointment:
		return d.cancel(ctx, s, c)
	case ModifyAppointment:
		return d.modify(ctx, s, c)
	case NotePreference:
		return d.notePreference(s, c)
	case EndConversation:
		return d.endConversation(ctx, s, c, args)
	default:
		return failure(call.Tool(), model.NewValidationError("tool", fmt.Sprintf("unsupported call %T", call)))
	}
}

// finish records the call in metrics and, unless recorded already, in the
// transcript and the front-end feed.
func (d *Dispatcher) finish(ctx context.Context, s *Session, tool string, args json.RawMessage, start time.Time, res *Result, recorded bool) {
	if ctx.Err() != nil {
		res.Suppressed = true
		metrics.SuppressedRepliesTotal.Inc()
	}
	outcome := "ok"
	if !res.OK {
		outcome = res.Kind
	}
	metrics.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
	metrics.ToolCallDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())

	if !recorded {
		s.appendTool(tool, res.Message)
	}
	d.log.Info().
		Str("room", s.Room()).
		Str("tool", tool).
		Str("result", outcome).
		Bool("suppressed", res.Suppressed).
		Dur("elapsed", time.Since(start)).
		Msg("tool call")

	if !recorded {
		d.publishToolCall(ctx, s, tool, args, res)
	}
}

func (d *Dispatcher) publishToolCall(ctx context.Context, s *Session, tool string, args json.RawMessage, result any) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := d.pub.Publish(pubCtx, notify.NewToolCall(s.Room(), tool, args, result, d.now())); err != nil {
		metrics.NotifyFailuresTotal.WithLabelValues(string(notify.EventToolCall)).Inc()
		d.log.Warn().Err(err).Str("tool", tool).Msg("tool_call event not delivered")
	}
}

func failure(tool string, err error) Result {
	kind := model.KindOf(err)
	msg := err.Error()
	switch kind {
	case model.KindNotIdentified:
		msg = "I need to identify you first. Please provide your phone number."
	case model.KindUpstreamUnavailable:
		msg = "I'm sorry, I'm having trouble reaching our booking system right now. Nothing was changed; please try again in a moment."
	case model.KindInvalidFormat:
		var ve model.ValidationError
		if errors.As(err, &ve) {
			msg = fmt.Sprintf("The %s doesn't look right: %s.", strings.ReplaceAll(ve.Field, "_", " "), ve.Message)
		}
	}
	return Result{Tool: tool, Kind: kind, Message: msg}
}

func success(tool, msg string, data any) Result {
	return Result{Tool: tool, OK: true, Message: msg, Data: data}
}

// shortDate renders a date as "Monday, January 26" for speech.
func shortDate(date string) string {
	d, err := slots.ParseDate(date)
	if err != nil {
		return date
	}
	return d.Format("Monday, January 2")
}

func (d *Dispatcher) identifyUser(ctx context.Context, s *Session, c IdentifyUser) Result {
	phone := c.Phone
	if strings.TrimSpace(phone) == "" {
		phone = s.pending()
		if phone == "" {
			return failure(c.Tool(), model.NewValidationError("phone_number", "is required"))
		}
	}
	// Registration writes must complete even if the caller hangs up mid-call.
	r, err := d.resolver.Identify(context.WithoutCancel(ctx), phone, c.Name)
	if err != nil {
		return failure(c.Tool(), err)
	}
	if r.PendingRegistration {
		s.awaitName(r.Phone)
		return success(c.Tool(),
			"I don't have an account for that number yet. What name should I put it under?",
			map[string]any{"phone": r.Phone, "pending_registration": true})
	}

	s.identify(r.User)
	name := r.User.DisplayName()
	var msg string
	switch {
	case r.Created:
		msg = fmt.Sprintf("Thanks, %s, you're all set up.", name)
	case name != "":
		msg = fmt.Sprintf("Welcome back, %s!", name)
	default:
		msg = "I've identified you by your phone number."
	}
	live := 0
	for _, a := range r.Appointments {
		if a.Live() {
			live++
		}
	}
	if !r.Created {
		switch live {
		case 0:
		case 1:
			msg += " You have one upcoming appointment."
		default:
			msg += fmt.Sprintf(" You have %d upcoming appointments.", live)
		}
	}
	return success(c.Tool(), msg, map[string]any{
		"user_id":      r.User.ID,
		"phone":        r.User.Phone,
		"name":         r.User.Name,
		"is_new":       r.Created,
		"appointments": r.Appointments,
	})
}

func (d *Dispatcher) fetchSlots(ctx context.Context, c FetchSlots) Result {
	var (
		free []slots.Slot
		err  error
	)
	if c.Date != "" {
		free, err = d.ledger.Available(ctx, c.Date)
	} else {
		free, err = d.ledger.Upcoming(ctx, c.DaysAhead)
	}
	if err != nil {
		return failure(c.Tool(), err)
	}
	shown := free
	if len(shown) > speechSlotLimit {
		shown = shown[:speechSlotLimit]
	}
	return success(c.Tool(), slots.ForSpeech(free, speechSlotLimit), map[string]any{
		"slots": shown,
		"total": len(free),
	})
}

// alternatives appends the date's current availability to a slot conflict reply.
func (d *Dispatcher) alternatives(ctx context.Context, res Result, date string) Result {
	free, err := d.ledger.Available(ctx, date)
	if err != nil || len(free) == 0 {
		res.Message = "That time isn't available. Would you like me to check other days?"
		return res
	}
	res.Message = "That time isn't available. " + slots.ForSpeech(free, len(slots.Hours))
	res.Data = map[string]any{"slots": free}
	return res
}

func (d *Dispatcher) book(ctx context.Context, s *Session, c BookAppointment) Result {
	uid := s.userID()
	if uid == "" {
		return failure(c.Tool(), model.ErrNotIdentified)
	}
	a, err := d.ledger.Book(context.WithoutCancel(ctx), uid, c.Date, c.Time)
	if err != nil {
		res := failure(c.Tool(), err)
		if errors.Is(err, model.ErrSlotUnavailable) {
			return d.alternatives(ctx, res, c.Date)
		}
		return res
	}
	s.appendDiscussed(model.DiscussedAppointment{
		Action: model.ActionBooked, ID: a.ID, Code: a.Code, Date: a.Date, Time: a.Time, Slot: a.Slot,
	})
	return success(c.Tool(),
		fmt.Sprintf("Appointment booked for %s at %s. Your confirmation code is %s.", shortDate(a.Date), a.Slot, a.Code),
		map[string]any{"appointment_id": a.Code, "date": a.Date, "time": a.Time, "slot": a.Slot, "status": a.Status})
}

func describe(a *model.Appointment) string {
	status := ""
	if a.Status == model.StatusCancelled {
		status = " (cancelled)"
	}
	return fmt.Sprintf("%s on %s%s, code %s", a.Slot, shortDate(a.Date), status, a.Code)
}

func (d *Dispatcher) retrieve(ctx context.Context, s *Session, c RetrieveAppointments) Result {
	uid := s.userID()
	if uid == "" {
		return failure(c.Tool(), model.ErrNotIdentified)
	}
	apts, err := d.ledger.ListForUser(ctx, uid, c.IncludeCancelled)
	if err != nil {
		return failure(c.Tool(), err)
	}
	data := map[string]any{"appointments": apts, "count": len(apts)}
	switch len(apts) {
	case 0:
		return success(c.Tool(), "You don't have any upcoming appointments scheduled.", data)
	case 1:
		return success(c.Tool(), fmt.Sprintf("You have one appointment: %s.", describe(apts[0])), data)
	}
	parts := make([]string, len(apts))
	for i, a := range apts {
		parts[i] = describe(a)
	}
	msg := fmt.Sprintf("You have %d appointments: %s, and %s.", len(apts), strings.Join(parts[:len(parts)-1], ", "), parts[len(parts)-1])
	return success(c.Tool(), msg, data)
}

func (d *Dispatcher) cancel(ctx context.Context, s *Session, c CancelAppointment) Result {
	uid := s.userID()
	if uid == "" {
		return failure(c.Tool(), model.ErrNotIdentified)
	}
	a, changed, err := d.ledger.Cancel(context.WithoutCancel(ctx), uid, c.Code)
	if err != nil {
		res := failure(c.Tool(), err)
		if errors.Is(err, model.ErrNotFound) {
			res.Message = "I couldn't find that appointment. Could you read me the confirmation code again?"
		}
		return res
	}
	data := map[string]any{"appointment_id": a.Code, "status": a.Status}
	if !changed {
		return success(c.Tool(), "That appointment is already cancelled.", data)
	}
	s.appendDiscussed(model.DiscussedAppointment{
		Action: model.ActionCancelled, ID: a.ID, Code: a.Code, Date: a.Date, Time: a.Time, Slot: a.Slot,
	})
	return success(c.Tool(), fmt.Sprintf("Your appointment on %s at %s has been cancelled.", shortDate(a.Date), a.Slot), data)
}

func (d *Dispatcher) modify(ctx context.Context, s *Session, c ModifyAppointment) Result {
	uid := s.userID()
	if uid == "" {
		return failure(c.Tool(), model.ErrNotIdentified)
	}
	a, prev, err := d.ledger.Modify(context.WithoutCancel(ctx), uid, c.Code, c.NewDate, c.NewTime)
	if err != nil {
		res := failure(c.Tool(), err)
		switch {
		case errors.Is(err, model.ErrSlotUnavailable):
			return d.alternatives(ctx, res, c.NewDate)
		case errors.Is(err, model.ErrNotFound):
			res.Message = "I couldn't find an active appointment with that code. Could you read it to me again?"
		}
		return res
	}
	if prev.Date != a.Date || prev.Time != a.Time {
		s.appendDiscussed(model.DiscussedAppointment{
			Action: model.ActionModified, ID: a.ID, Code: a.Code, Date: a.Date, Time: a.Time, Slot: a.Slot,
			OldDate: prev.Date, OldTime: prev.Time,
		})
	}
	return success(c.Tool(),
		fmt.Sprintf("Your appointment has been rescheduled to %s at %s.", shortDate(a.Date), a.Slot),
		map[string]any{"appointment_id": a.Code, "new_date": a.Date, "new_time": a.Time, "new_slot": a.Slot, "status": a.Status})
}

func (d *Dispatcher) notePreference(s *Session, c NotePreference) Result {
	s.NotePreference(c.Text)
	return success(c.Tool(), "Noted.", map[string]any{"preference": c.Text})
}

func (d *Dispatcher) endConversation(ctx context.Context, s *Session, c EndConversation, args json.RawMessage) Result {
	if err := s.beginClose(); err != nil {
		return closedResult(c.Tool())
	}
	// Recorded after in-flight calls drain and before the summary, so the
	// persisted transcript and the front-end feed see it in that order.
	s.appendTool(c.Tool(), "Conversation ended: "+c.Reason)
	snap := s.Snapshot()
	d.publishToolCall(ctx, s, c.Tool(), args, map[string]any{
		"reason":                 c.Reason,
		"appointments_discussed": snap.Discussed,
		"preferences_mentioned":  snap.Preferences,
		"should_end":             true,
	})
	conv := d.closer.complete(ctx, s, c.Reason)
	res := success(c.Tool(), "The conversation has ended. Please say goodbye to the caller.", conv.View())
	res.EndConversation = true
	return res
}

// Package seed loads demo callers and bookings for local testing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/booking"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/slots"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
)

// DemoRoom holds the sample conversation.
const DemoRoom = "seed-demo"

type demoUser struct {
	phone string
	name  string
}

var demoUsers = []demoUser{
	{"5551234567", "John Smith"},
	{"5559876543", "Sarah Johnson"},
	{"5555551212", "Mike Wilson"},
	{"5550001111", "Emily Davis"},
	{"5552223333", ""},
}

type demoAppointment struct {
	user   int
	offset int
	hour   int
	status model.AppointmentStatus
}

var demoAppointments = []demoAppointment{
	{user: 0, offset: 2, hour: 9, status: model.StatusBooked},
	{user: 0, offset: 5, hour: 14, status: model.StatusBooked},
	{user: 1, offset: 3, hour: 10, status: model.StatusBooked},
	{user: 1, offset: 1, hour: 15, status: model.StatusCancelled},
	{user: 2, offset: 4, hour: 11, status: model.StatusBooked},
	{user: 3, offset: 2, hour: 10, status: model.StatusBooked},
}

// Result lists what was written.
type Result struct {
	Users        []*model.User
	Appointments []*model.Appointment
	Skipped      bool
}

// ErrAlreadySeeded is returned when the demo callers already exist.
var ErrAlreadySeeded = errors.New("demo data already present")

// Weekday returns today+offset days, pushed forward past any weekend.
func Weekday(today time.Time, offset int) string {
	d := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	for slots.IsWeekend(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format(slots.DateLayout)
}

// Load writes the demo data relative to today. It refuses to run twice.
func Load(ctx context.Context, st store.Store, today time.Time, log zerolog.Logger) (Result, error) {
	var res Result
	if _, err := st.Users().GetByPhone(ctx, demoUsers[0].phone); err == nil {
		res.Skipped = true
		return res, ErrAlreadySeeded
	} else if !errors.Is(err, model.ErrNotFound) {
		return res, err
	}

	for _, du := range demoUsers {
		u := &model.User{Phone: du.phone}
		if du.name != "" {
			name := du.name
			u.Name = &name
		}
		created, err := st.Users().Create(ctx, u)
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", du.phone, err)
		}
		res.Users = append(res.Users, created)
		log.Info().Str("phone", created.Phone).Str("name", created.DisplayName()).Msg("seeded user")
	}

	for _, da := range demoAppointments {
		a, err := placeAppointment(ctx, st, res.Users[da.user].ID, today, da)
		if err != nil {
			return res, err
		}
		res.Appointments = append(res.Appointments, a)
		log.Info().Str("code", a.Code).Str("date", a.Date).Str("time", a.Time).Str("status", string(a.Status)).Msg("seeded appointment")
	}

	if err := demoConversation(ctx, st, res); err != nil {
		return res, err
	}
	return res, nil
}

func demoConversation(ctx context.Context, st store.Store, res Result) error {
	john := res.Users[0]
	first := res.Appointments[0]
	_, err := st.Conversations().Create(ctx, &model.Conversation{
		UserID:   &john.ID,
		RoomName: DemoRoom,
		Summary:  "John Smith called to book an appointment and was booked for " + first.Slot + ". He prefers morning slots.",
		Appointments: []model.DiscussedAppointment{
			{Action: model.ActionBooked, ID: first.ID, Code: first.Code, Date: first.Date, Time: first.Time, Slot: first.Slot},
		},
		Preferences: []string{"morning appointments", "weekday preferred"},
		Transcript: []model.TranscriptEntry{
			{Role: model.RoleAssistant, Content: "Hello! How can I help you today?", Timestamp: first.CreatedAt},
			{Role: model.RoleUser, Content: "Hi, I'd like to book an appointment", Timestamp: first.CreatedAt},
			{Role: model.RoleAssistant, Content: "I've booked your appointment for " + first.Slot + ".", Timestamp: first.CreatedAt},
		},
		DurationSeconds: 95,
		UserName:        john.Name,
		UserPhone:       &john.Phone,
	})
	if err != nil {
		return fmt.Errorf("seed conversation: %w", err)
	}
	return nil
}

// placeAppointment books da on the first free weekday at or after its offset.
// Weekend roll-forward can land two demo bookings on the same slot.
func placeAppointment(ctx context.Context, st store.Store, userID string, today time.Time, da demoAppointment) (*model.Appointment, error) {
	for shift := 0; shift < 14; shift++ {
		id := uuid.New().String()
		a, err := st.Appointments().Create(ctx, &model.Appointment{
			ID:     id,
			Code:   booking.CodeFor(id),
			UserID: userID,
			Date:   Weekday(today, da.offset+shift),
			Time:   fmt.Sprintf("%02d:00", da.hour),
			Slot:   slots.Label(da.hour),
			Status: da.status,
		})
		if store.IsUniqueViolation(err, store.ConstraintLiveSlot) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("seed appointment: %w", err)
		}
		return a, nil
	}
	return nil, fmt.Errorf("seed appointment: no free %02d:00 slot near offset %d", da.hour, da.offset)
}

// Package storetest holds the driver-agnostic compliance suite for store.Store.
package storetest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
)

// Run exercises the compliance suite against a store.Store implementation.
// makeStore must return a clean, isolated, migrated store.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("Users", func(t *testing.T) { testUsers(t, makeStore(t)) })
	t.Run("Appointments", func(t *testing.T) { testAppointments(t, makeStore(t)) })
	t.Run("LiveSlotUniqueness", func(t *testing.T) { testLiveSlotUniqueness(t, makeStore(t)) })
	t.Run("ConcurrentInserts", func(t *testing.T) { testConcurrentInserts(t, makeStore(t)) })
	t.Run("Conversations", func(t *testing.T) { testConversations(t, makeStore(t)) })
}

// uniquePhone returns a 10-digit phone unlikely to collide across runs sharing a database.
func uniquePhone() string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, uuid.New().String())
	return ("5" + digits + "000000000")[:10]
}

func newAppointment(userID, date, tm string) *model.Appointment {
	id := uuid.New().String()
	return &model.Appointment{ID: id, Code: id[:8], UserID: userID, Date: date, Time: tm, Slot: "slot " + tm}
}

// uniqueDate returns a random far-future date so shared databases do not collide.
func uniqueDate() string {
	n := int(uuid.New().ID() % 20000)
	return time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n).Format("2006-01-02")
}

func mustUser(t *testing.T, s store.Store) *model.User {
	t.Helper()
	name := "Test User"
	u, err := s.Users().Create(context.Background(), &model.User{Phone: uniquePhone(), Name: &name})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	phone := uniquePhone()

	u, err := s.Users().Create(ctx, &model.User{Phone: phone})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.Name != nil || u.CreatedAt.IsZero() {
		t.Fatalf("CreateUser: unexpected %+v", u)
	}

	if got, err := s.Users().GetByPhone(ctx, phone); err != nil || got.ID != u.ID {
		t.Fatalf("GetByPhone: got=%v err=%v", got, err)
	}
	if got, err := s.Users().Get(ctx, u.ID); err != nil || got.Phone != phone {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if _, err := s.Users().GetByPhone(ctx, uniquePhone()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetByPhone missing: want ErrNotFound, got %v", err)
	}

	_, err = s.Users().Create(ctx, &model.User{Phone: phone})
	if !store.IsUniqueViolation(err, store.ConstraintUserPhone) {
		t.Fatalf("duplicate phone: want unique violation on %s, got %v", store.ConstraintUserPhone, err)
	}

	named, err := s.Users().UpdateName(ctx, u.ID, "Sarah Johnson")
	if err != nil || named.DisplayName() != "Sarah Johnson" {
		t.Fatalf("UpdateName: got=%v err=%v", named, err)
	}
}

func testAppointments(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s)
	date := uniqueDate()

	a1, err := s.Appointments().Create(ctx, newAppointment(u.ID, date, "09:00"))
	if err != nil {
		t.Fatalf("Create a1: %v", err)
	}
	if a1.Status != model.StatusBooked || a1.CreatedAt.IsZero() {
		t.Fatalf("Create a1: unexpected %+v", a1)
	}
	a2, err := s.Appointments().Create(ctx, newAppointment(u.ID, date, "14:00"))
	if err != nil {
		t.Fatalf("Create a2: %v", err)
	}

	if got, err := s.Appointments().GetByCode(ctx, strings.ToUpper(a1.Code)); err != nil || got.ID != a1.ID {
		t.Fatalf("GetByCode: got=%v err=%v", got, err)
	}
	if _, err := s.Appointments().GetByCode(ctx, "zzzzzzzz"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetByCode missing: want ErrNotFound, got %v", err)
	}

	times, err := s.Appointments().BookedTimes(ctx, date)
	if err != nil || len(times) != 2 || times[0] != "09:00" || times[1] != "14:00" {
		t.Fatalf("BookedTimes: got=%v err=%v", times, err)
	}

	list, err := s.Appointments().ListByUser(ctx, u.ID, false)
	if err != nil || len(list) != 2 || list[0].ID != a2.ID {
		t.Fatalf("ListByUser newest first: got=%v err=%v", list, err)
	}

	moved, err := s.Appointments().Reschedule(ctx, a1.ID, date, "11:00", "slot 11:00")
	if err != nil || moved.Time != "11:00" || moved.Slot != "slot 11:00" {
		t.Fatalf("Reschedule: got=%v err=%v", moved, err)
	}

	cancelled, err := s.Appointments().SetStatus(ctx, a2.ID, model.StatusCancelled)
	if err != nil || cancelled.Status != model.StatusCancelled {
		t.Fatalf("SetStatus: got=%v err=%v", cancelled, err)
	}
	if _, err := s.Appointments().SetStatus(ctx, a2.ID, model.StatusCancelled); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("SetStatus repeated: want ErrNotFound, got %v", err)
	}
	if _, err := s.Appointments().Reschedule(ctx, a2.ID, date, "12:00", "slot 12:00"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Reschedule cancelled: want ErrNotFound, got %v", err)
	}

	live, err := s.Appointments().ListByUser(ctx, u.ID, false)
	if err != nil || len(live) != 1 {
		t.Fatalf("ListByUser live: got=%d err=%v", len(live), err)
	}
	all, err := s.Appointments().ListByUser(ctx, u.ID, true)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByUser all: got=%d err=%v", len(all), err)
	}
}

func testLiveSlotUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s)
	date := uniqueDate()

	first, err := s.Appointments().Create(ctx, newAppointment(u.ID, date, "10:00"))
	if err != nil {
		t.Fatalf("Create first: %v", err)
	}
	_, err = s.Appointments().Create(ctx, newAppointment(u.ID, date, "10:00"))
	if !store.IsUniqueViolation(err, store.ConstraintLiveSlot) {
		t.Fatalf("second live booking: want unique violation on %s, got %v", store.ConstraintLiveSlot, err)
	}

	dup := newAppointment(u.ID, date, "13:00")
	dup.Code = first.Code
	_, err = s.Appointments().Create(ctx, dup)
	if !store.IsUniqueViolation(err, store.ConstraintAppointmentCode) {
		t.Fatalf("duplicate code: want unique violation on %s, got %v", store.ConstraintAppointmentCode, err)
	}

	other, err := s.Appointments().Create(ctx, newAppointment(u.ID, date, "15:00"))
	if err != nil {
		t.Fatalf("Create other: %v", err)
	}
	_, err = s.Appointments().Reschedule(ctx, other.ID, date, "10:00", "slot 10:00")
	if !store.IsUniqueViolation(err, store.ConstraintLiveSlot) {
		t.Fatalf("reschedule onto live slot: want unique violation, got %v", err)
	}
	if got, err := s.Appointments().GetByCode(ctx, other.Code); err != nil || got.Time != "15:00" {
		t.Fatalf("rejected reschedule must leave row unchanged: got=%v err=%v", got, err)
	}

	// A cancelled appointment frees its slot.
	if _, err := s.Appointments().SetStatus(ctx, first.ID, model.StatusCancelled); err != nil {
		t.Fatalf("cancel first: %v", err)
	}
	if _, err := s.Appointments().Create(ctx, newAppointment(u.ID, date, "10:00")); err != nil {
		t.Fatalf("rebook freed slot: %v", err)
	}
}

func testConcurrentInserts(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s)
	date := uniqueDate()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Appointments().Create(ctx, newAppointment(u.ID, date, "12:00"))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case store.IsUniqueViolation(err, store.ConstraintLiveSlot):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("want exactly one winner, got %d", ok)
	}
}

func testConversations(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s)
	room := "room-" + uuid.New().String()

	if _, err := s.Conversations().LatestByRoom(ctx, room); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("LatestByRoom missing: want ErrNotFound, got %v", err)
	}

	phone := u.Phone
	c := &model.Conversation{
		UserID:   &u.ID,
		RoomName: room,
		Summary:  "Booked one appointment.",
		Appointments: []model.DiscussedAppointment{
			{Action: model.ActionBooked, ID: "x", Code: "abcd1234", Date: "2100-01-04", Time: "09:00"},
		},
		Preferences:     []string{"prefers mornings"},
		Transcript:      []model.TranscriptEntry{{Role: model.RoleUser, Content: "hello", Timestamp: time.Now().UTC()}},
		Costs:           model.CostBreakdown{TotalCost: 0.01, Usage: model.Usage{TTSCharacters: 42}},
		DurationSeconds: 61,
		UserPhone:       &phone,
	}
	saved, err := s.Conversations().Create(ctx, c)
	if err != nil {
		t.Fatalf("Create conversation: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("Create conversation: unexpected %+v", saved)
	}

	time.Sleep(5 * time.Millisecond) // ensure monotonic creation time ordering
	c2 := *c
	c2.Summary = "Second close for the same room."
	if _, err := s.Conversations().Create(ctx, &c2); err != nil {
		t.Fatalf("Create second conversation: %v", err)
	}

	got, err := s.Conversations().LatestByRoom(ctx, room)
	if err != nil {
		t.Fatalf("LatestByRoom: %v", err)
	}
	if got.Summary != c2.Summary || len(got.Appointments) != 1 || got.Appointments[0].Code != "abcd1234" ||
		len(got.Preferences) != 1 || len(got.Transcript) != 1 || got.Costs.Usage.TTSCharacters != 42 ||
		got.DurationSeconds != 61 || got.UserID == nil || *got.UserID != u.ID {
		t.Fatalf("LatestByRoom: unexpected %+v", got)
	}
}

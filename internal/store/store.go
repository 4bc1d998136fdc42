package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
)

// Store exposes persistence operations required by the booking core.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
type Store interface {
	Users() Users
	Appointments() Appointments
	Conversations() Conversations
}

type Users interface {
	// Create inserts a user; a duplicate phone fails with a UniqueViolationError.
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	UpdateName(ctx context.Context, userID, name string) (*model.User, error)
}

type Appointments interface {
	// Create inserts a booked appointment. The store rejects a second live
	// appointment for the same (date, time) with a UniqueViolationError.
	Create(ctx context.Context, a *model.Appointment) (*model.Appointment, error)
	GetByCode(ctx context.Context, code string) (*model.Appointment, error)
	ListByUser(ctx context.Context, userID string, includeCancelled bool) ([]*model.Appointment, error)
	// BookedTimes returns the HH:MM times of live appointments on date.
	BookedTimes(ctx context.Context, date string) ([]string, error)
	// Reschedule moves a live appointment in a single statement so the old
	// slot stays held until the new one commits.
	Reschedule(ctx context.Context, id, date, time, slot string) (*model.Appointment, error)
	// SetStatus performs the transition to status; if the appointment is
	// missing or already in status it fails with model.ErrNotFound, so only
	// one of several racing callers succeeds.
	SetStatus(ctx context.Context, id string, status model.AppointmentStatus) (*model.Appointment, error)
}

type Conversations interface {
	Create(ctx context.Context, c *model.Conversation) (*model.Conversation, error)
	// LatestByRoom returns the newest conversation for a room or model.ErrNotFound.
	LatestByRoom(ctx context.Context, room string) (*model.Conversation, error)
}

// Constraint names shared by every driver's schema.
const (
	ConstraintUserPhone       = "users_phone_key"
	ConstraintAppointmentCode = "appointments_code_key"
	ConstraintLiveSlot        = "appointments_live_slot_idx"
)

// ErrUniqueViolation is matched by every UniqueViolationError.
var ErrUniqueViolation = errors.New("unique constraint violation")

// UniqueViolationError reports which uniqueness invariant rejected a write.
type UniqueViolationError struct {
	Constraint string
	Err        error
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique violation on %s: %v", e.Constraint, e.Err)
}

func (e *UniqueViolationError) Is(target error) bool { return target == ErrUniqueViolation }

func (e *UniqueViolationError) Unwrap() error { return e.Err }

// IsUniqueViolation reports whether err is a unique violation on constraint
// (any constraint when constraint is empty).
func IsUniqueViolation(err error, constraint string) bool {
	var ue *UniqueViolationError
	if !errors.As(err, &ue) {
		return false
	}
	return constraint == "" || ue.Constraint == constraint
}

// Package identity maps a caller's phone number to a user record.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/retry"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
)

// Result is either an identified user with their appointments or a
// pending-registration marker carrying the normalized phone.
type Result struct {
	User                *model.User
	Appointments        []*model.Appointment
	Created             bool
	PendingRegistration bool
	Phone               string
}

// Resolver identifies callers and registers new ones on request.
type Resolver struct {
	users        store.Users
	appointments store.Appointments
	policy       retry.Policy
	log          zerolog.Logger
}

func NewResolver(st store.Store, policy retry.Policy, log zerolog.Logger) *Resolver {
	return &Resolver{
		users:        st.Users(),
		appointments: st.Appointments(),
		policy:       policy,
		log:          log.With().Str("component", "identity").Logger(),
	}
}

// NormalizePhone strips common formatting (spaces, dashes, dots, parentheses,
// a leading +) and requires exactly ten digits.
func NormalizePhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "+")
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", model.NewValidationError("phone_number", "phone number may only contain digits")
		}
	}
	if b.Len() != 10 {
		return "", model.NewValidationError("phone_number", "phone number must have exactly 10 digits")
	}
	return b.String(), nil
}

func cleanName(name *string) *string {
	if name == nil {
		return nil
	}
	n := strings.TrimSpace(*name)
	if n == "" {
		return nil
	}
	return &n
}

// Identify resolves phone to a user. An existing user is returned with all
// appointments, newest date first; a supplied name only fills an empty stored
// name. An unknown phone with a name registers the user; without a name
// nothing is written and a pending-registration result is returned.
func (r *Resolver) Identify(ctx context.Context, phone string, name *string) (Result, error) {
	norm, err := NormalizePhone(phone)
	if err != nil {
		return Result{}, err
	}
	name = cleanName(name)

	u, err := retry.Do(ctx, r.policy, func(ctx context.Context) (*model.User, error) {
		return r.users.GetByPhone(ctx, norm)
	})
	switch {
	case err == nil:
		return r.existing(ctx, u, name)
	case !errors.Is(err, model.ErrNotFound):
		return Result{}, err
	}

	if name == nil {
		r.log.Debug().Str("phone", norm).Msg("unknown phone without name; awaiting registration")
		return Result{PendingRegistration: true, Phone: norm}, nil
	}

	created, err := r.users.Create(ctx, &model.User{Phone: norm, Name: name})
	if store.IsUniqueViolation(err, store.ConstraintUserPhone) {
		// Lost a registration race for this phone; the winner's row is authoritative.
		r.log.Info().Str("phone", norm).Msg("concurrent registration detected; re-fetching user")
		u, err := retry.Do(ctx, r.policy, func(ctx context.Context) (*model.User, error) {
			return r.users.GetByPhone(ctx, norm)
		})
		if err != nil {
			return Result{}, err
		}
		return r.existing(ctx, u, name)
	}
	if err != nil {
		return Result{}, retry.Upstream(err)
	}
	r.log.Info().Str("user_id", created.ID).Msg("registered new user")
	return Result{User: created, Appointments: []*model.Appointment{}, Created: true, Phone: norm}, nil
}

func (r *Resolver) existing(ctx context.Context, u *model.User, name *string) (Result, error) {
	if u.Name == nil && name != nil {
		updated, err := r.users.UpdateName(ctx, u.ID, *name)
		if err != nil {
			return Result{}, retry.Upstream(err)
		}
		u = updated
	}
	apts, err := retry.Do(ctx, r.policy, func(ctx context.Context) ([]*model.Appointment, error) {
		return r.appointments.ListByUser(ctx, u.ID, true)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{User: u, Appointments: apts, Phone: u.Phone}, nil
}

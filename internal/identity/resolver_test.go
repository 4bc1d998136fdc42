package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/retry"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store/sqlite/sqlitetest"
)

var fastRetry = retry.Policy{InitialInterval: time.Millisecond, MaxRetries: 1}

func strPtr(s string) *string { return &s }

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"9876543210":     "9876543210",
		"(987) 654-3210": "9876543210",
		"987.654.3210":   "9876543210",
		" 987 654 3210 ": "9876543210",
		"+9876543210":    "9876543210",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "12345", "98765432101", "98765abc10", "+1 987 654 3210"} {
		_, err := NormalizePhone(bad)
		assert.ErrorIs(t, err, model.ErrInvalidFormat, bad)
	}
}

func TestIdentify_RegistrationFlow(t *testing.T) {
	st := sqlitetest.New(t)
	r := NewResolver(st, fastRetry, zerolog.Nop())
	ctx := context.Background()

	pending, err := r.Identify(ctx, "9876543210", nil)
	require.NoError(t, err)
	assert.True(t, pending.PendingRegistration)
	assert.Equal(t, "9876543210", pending.Phone)
	_, err = st.Users().GetByPhone(ctx, "9876543210")
	assert.ErrorIs(t, err, model.ErrNotFound, "pending registration must not write a partial user")

	created, err := r.Identify(ctx, "987-654-3210", strPtr("Sarah Johnson"))
	require.NoError(t, err)
	assert.True(t, created.Created)
	assert.Equal(t, "Sarah Johnson", created.User.DisplayName())
	assert.Empty(t, created.Appointments)

	again, err := r.Identify(ctx, "9876543210", strPtr("Someone Else"))
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, created.User.ID, again.User.ID)
	assert.Equal(t, "Sarah Johnson", again.User.DisplayName(), "supplied name is ignored for known users")
}

func TestIdentify_BackfillsMissingName(t *testing.T) {
	st := sqlitetest.New(t)
	ctx := context.Background()
	_, err := st.Users().Create(ctx, &model.User{Phone: "5552223333"})
	require.NoError(t, err)

	r := NewResolver(st, fastRetry, zerolog.Nop())
	res, err := r.Identify(ctx, "5552223333", strPtr("  Mike Wilson "))
	require.NoError(t, err)
	assert.Equal(t, "Mike Wilson", res.User.DisplayName())
}

func TestIdentify_ReturnsAppointmentsNewestFirst(t *testing.T) {
	st := sqlitetest.New(t)
	ctx := context.Background()
	u, err := st.Users().Create(ctx, &model.User{Phone: "5551234567", Name: strPtr("John Smith")})
	require.NoError(t, err)
	for i, date := range []string{"2026-01-26", "2026-02-02", "2026-01-28"} {
		_, err := st.Appointments().Create(ctx, &model.Appointment{
			ID: "00000000-0000-0000-0000-00000000000" + string(rune('1'+i)), Code: "0000000" + string(rune('1'+i)),
			UserID: u.ID, Date: date, Time: "09:00", Slot: "Morning - 9:00 AM",
		})
		require.NoError(t, err)
	}

	res, err := NewResolver(st, fastRetry, zerolog.Nop()).Identify(ctx, "5551234567", nil)
	require.NoError(t, err)
	require.Len(t, res.Appointments, 3)
	assert.Equal(t, "2026-02-02", res.Appointments[0].Date)
	assert.Equal(t, "2026-01-28", res.Appointments[1].Date)
	assert.Equal(t, "2026-01-26", res.Appointments[2].Date)
}

func TestIdentify_ConcurrentRegistrationConverges(t *testing.T) {
	st := sqlitetest.New(t)
	r := NewResolver(st, fastRetry, zerolog.Nop())
	ctx := context.Background()

	const n = 6
	results := make([]Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Identify(ctx, "5550001111", strPtr("Emily Davis"))
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].User.ID, results[i].User.ID)
		if results[i].Created {
			created++
		}
	}
	assert.Equal(t, 1, created)
}

// racingUsers simulates losing a registration race: GetByPhone misses once,
// then Create collides with a row inserted behind the resolver's back.
type racingUsers struct {
	store.Users
	winner *model.User
	missed bool
}

func (u *racingUsers) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	if !u.missed {
		u.missed = true
		return nil, model.ErrNotFound
	}
	return u.winner, nil
}

func (u *racingUsers) Create(ctx context.Context, m *model.User) (*model.User, error) {
	return nil, &store.UniqueViolationError{Constraint: store.ConstraintUserPhone, Err: errors.New("duplicate")}
}

type racingStore struct {
	store.Store
	users store.Users
}

func (s racingStore) Users() store.Users { return s.users }

func TestIdentify_UniqueViolationRefetches(t *testing.T) {
	base := sqlitetest.New(t)
	winner, err := base.Users().Create(context.Background(), &model.User{Phone: "5559876543", Name: strPtr("Sarah Johnson")})
	require.NoError(t, err)

	st := racingStore{Store: base, users: &racingUsers{Users: base.Users(), winner: winner}}
	res, err := NewResolver(st, fastRetry, zerolog.Nop()).Identify(context.Background(), "5559876543", strPtr("Sarah J"))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, winner.ID, res.User.ID)
}

type downUsers struct{ store.Users }

func (downUsers) GetByPhone(context.Context, string) (*model.User, error) {
	return nil, errors.New("connection refused")
}

type downStore struct{ store.Store }

func (s downStore) Users() store.Users { return downUsers{s.Store.Users()} }

func TestIdentify_StoreOutageIsUpstreamUnavailable(t *testing.T) {
	st := downStore{sqlitetest.New(t)}
	_, err := NewResolver(st, fastRetry, zerolog.Nop()).Identify(context.Background(), "5559876543", nil)
	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
}

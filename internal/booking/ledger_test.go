package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/retry"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/slots"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store/sqlite/sqlitetest"
)

// Saturday 2026-01-24; the following Monday is 2026-01-26.
var saturday = time.Date(2026, 1, 24, 10, 0, 0, 0, time.UTC)

const monday = "2026-01-26"

type fixture struct {
	st     store.Store
	ledger *Ledger
	alice  string
	bob    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := sqlitetest.New(t)
	ctx := context.Background()
	alice, err := st.Users().Create(ctx, &model.User{Phone: "5550000001"})
	require.NoError(t, err)
	bob, err := st.Users().Create(ctx, &model.User{Phone: "5550000002"})
	require.NoError(t, err)
	l := NewLedger(st, retry.Policy{InitialInterval: time.Millisecond, MaxRetries: 1}, zerolog.Nop(),
		WithClock(func() time.Time { return saturday }))
	return fixture{st: st, ledger: l, alice: alice.ID, bob: bob.ID}
}

func TestNormalizeCode(t *testing.T) {
	got, err := NormalizeCode(" A1B2C3D4 ")
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4", got)

	got, err = NormalizeCode("A1B2C3D4-0000-4000-8000-000000000000")
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4", got)

	for _, bad := range []string{"", "abc", "a1b2c3d4e", "zzzzzzzz"} {
		_, err := NormalizeCode(bad)
		assert.ErrorIs(t, err, model.ErrInvalidFormat, bad)
	}
}

func TestBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.ledger.Book(ctx, f.alice, monday, "10:00")
	require.NoError(t, err)
	assert.Equal(t, model.StatusBooked, a.Status)
	assert.Equal(t, "Morning - 10:00 AM", a.Slot)
	assert.Len(t, a.Code, CodeLength)
	assert.Equal(t, CodeFor(a.ID), a.Code)

	free, err := f.ledger.Available(ctx, monday)
	require.NoError(t, err)
	assert.Len(t, free, len(slots.Hours)-1)
	for _, s := range free {
		assert.NotEqual(t, "10:00", s.Time)
	}

	_, err = f.ledger.Book(ctx, f.bob, monday, "10:00")
	assert.ErrorIs(t, err, model.ErrSlotUnavailable)
}

func TestBook_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Book(ctx, "", monday, "10:00")
	assert.ErrorIs(t, err, model.ErrNotIdentified)

	_, err = f.ledger.Book(ctx, f.alice, "2026-01-24", "10:00")
	assert.ErrorIs(t, err, slots.ErrInvalidSlot, "weekend")

	_, err = f.ledger.Book(ctx, f.alice, monday, "16:00")
	assert.ErrorIs(t, err, model.ErrSlotUnavailable, "after hours")

	_, err = f.ledger.Book(ctx, f.alice, "2026-01-23", "10:00")
	assert.ErrorIs(t, err, slots.ErrInvalidSlot, "past")

	_, err = f.ledger.Book(ctx, f.alice, "26/01/2026", "10:00")
	assert.ErrorIs(t, err, model.ErrInvalidFormat)

	_, err = f.ledger.Book(ctx, f.alice, monday, "10am")
	assert.ErrorIs(t, err, model.ErrInvalidFormat)
}

func TestBook_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const contenders = 8
	var (
		mu       sync.Mutex
		winners  int
		conflict int
	)
	var g errgroup.Group
	for i := 0; i < contenders; i++ {
		user := f.alice
		if i%2 == 1 {
			user = f.bob
		}
		g.Go(func() error {
			_, err := f.ledger.Book(ctx, user, monday, "14:00")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case assert.ErrorIs(t, err, model.ErrSlotUnavailable):
				conflict++
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, winners)
	assert.Equal(t, contenders-1, conflict)
}

func TestModify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.ledger.Book(ctx, f.alice, monday, "09:00")
	require.NoError(t, err)
	_, err = f.ledger.Book(ctx, f.bob, monday, "11:00")
	require.NoError(t, err)

	// occupied target leaves the appointment unchanged
	_, _, err = f.ledger.Modify(ctx, f.alice, a.Code, monday, "11:00")
	assert.ErrorIs(t, err, model.ErrSlotUnavailable)
	cur, err := f.st.Appointments().GetByCode(ctx, a.Code)
	require.NoError(t, err)
	assert.Equal(t, "09:00", cur.Time)

	updated, prev, err := f.ledger.Modify(ctx, f.alice, a.Code, "2026-01-27", "15:00")
	require.NoError(t, err)
	assert.Equal(t, a.ID, updated.ID)
	assert.Equal(t, "2026-01-27", updated.Date)
	assert.Equal(t, "Afternoon - 3:00 PM", updated.Slot)
	assert.Equal(t, "09:00", prev.Time)

	// the old slot is free again
	_, err = f.ledger.Book(ctx, f.bob, monday, "09:00")
	require.NoError(t, err)

	// same slot is a no-op
	same, _, err := f.ledger.Modify(ctx, f.alice, a.Code, "2026-01-27", "15:00")
	require.NoError(t, err)
	assert.Equal(t, "15:00", same.Time)
}

func TestModify_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.ledger.Book(ctx, f.alice, monday, "09:00")
	require.NoError(t, err)

	_, _, err = f.ledger.Modify(ctx, f.bob, a.Code, monday, "10:00")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, _, err = f.ledger.Modify(ctx, f.alice, "deadbeef", monday, "10:00")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, _, err = f.ledger.Cancel(ctx, f.alice, a.Code)
	require.NoError(t, err)
	_, _, err = f.ledger.Modify(ctx, f.alice, a.Code, monday, "10:00")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCancel_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.ledger.Book(ctx, f.alice, monday, "13:00")
	require.NoError(t, err)

	_, _, err = f.ledger.Cancel(ctx, f.bob, a.Code)
	assert.ErrorIs(t, err, model.ErrNotFound)

	c, changed, err := f.ledger.Cancel(ctx, f.alice, a.Code)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.StatusCancelled, c.Status)

	again, changed, err := f.ledger.Cancel(ctx, f.alice, a.Code)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, model.StatusCancelled, again.Status)

	free, err := f.ledger.Available(ctx, monday)
	require.NoError(t, err)
	assert.Len(t, free, len(slots.Hours))
}

func TestCancel_ConcurrentCallsTransitionOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.ledger.Book(ctx, f.alice, monday, "15:00")
	require.NoError(t, err)

	const n = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, changed, err := f.ledger.Cancel(ctx, f.alice, a.Code)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, model.StatusCancelled, c.Status)
			if changed {
				mu.Lock()
				changes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, changes)
}

func TestListForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.ledger.Book(ctx, f.alice, monday, "09:00")
	require.NoError(t, err)
	second, err := f.ledger.Book(ctx, f.alice, "2026-01-28", "12:00")
	require.NoError(t, err)
	_, err = f.ledger.Book(ctx, f.bob, monday, "10:00")
	require.NoError(t, err)
	_, _, err = f.ledger.Cancel(ctx, f.alice, first.Code)
	require.NoError(t, err)

	live, err := f.ledger.ListForUser(ctx, f.alice, false)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, second.ID, live[0].ID)

	all, err := f.ledger.ListForUser(ctx, f.alice, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest date first")

	_, err = f.ledger.ListForUser(ctx, "", false)
	assert.ErrorIs(t, err, model.ErrNotIdentified)
}

func TestAvailable_Weekend(t *testing.T) {
	f := newFixture(t)
	free, err := f.ledger.Available(context.Background(), "2026-01-25")
	require.NoError(t, err)
	assert.Empty(t, free)
}

func TestUpcoming(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.Book(ctx, f.alice, monday, "09:00")
	require.NoError(t, err)

	// Sat +3 days covers Sun (none), Mon, Tue.
	up, err := f.ledger.Upcoming(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, up, 2*len(slots.Hours)-1)
	assert.Equal(t, monday, up[0].Date)
	assert.Equal(t, "10:00", up[0].Time)
	assert.Equal(t, "2026-01-27", up[len(up)-1].Date)
}

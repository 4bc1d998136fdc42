package seed

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/slots"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store/sqlite/sqlitetest"
)

func TestWeekday(t *testing.T) {
	thursday := time.Date(2026, 1, 22, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-01-23", Weekday(thursday, 1))
	assert.Equal(t, "2026-01-26", Weekday(thursday, 2))
	assert.Equal(t, "2026-01-26", Weekday(thursday, 3))
	assert.Equal(t, "2026-01-26", Weekday(thursday, 4))
	assert.Equal(t, "2026-01-27", Weekday(thursday, 5))
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	st := sqlitetest.New(t)
	// Thursday: several offsets roll onto the same Monday.
	today := time.Date(2026, 1, 22, 15, 0, 0, 0, time.UTC)

	res, err := Load(ctx, st, today, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, res.Users, len(demoUsers))
	require.Len(t, res.Appointments, len(demoAppointments))
	assert.Nil(t, res.Users[4].Name)

	seen := map[string]bool{}
	for _, a := range res.Appointments {
		d, err := slots.ParseDate(a.Date)
		require.NoError(t, err)
		assert.False(t, slots.IsWeekend(d), a.Date)
		if a.Status == model.StatusBooked {
			key := a.Date + " " + a.Time
			assert.False(t, seen[key], "double booked %s", key)
			seen[key] = true
		}
	}

	sarah, err := st.Appointments().ListByUser(ctx, res.Users[1].ID, true)
	require.NoError(t, err)
	assert.Len(t, sarah, 2)

	conv, err := st.Conversations().LatestByRoom(ctx, DemoRoom)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", *conv.UserName)
	assert.Len(t, conv.Appointments, 1)

	again, err := Load(ctx, st, today, zerolog.Nop())
	assert.ErrorIs(t, err, ErrAlreadySeeded)
	assert.True(t, again.Skipped)
}

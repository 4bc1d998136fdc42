package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationView(t *testing.T) {
	name := "Asha"
	c := &Conversation{
		Summary: "Booked and moved.",
		Appointments: []DiscussedAppointment{
			{Action: ActionBooked, ID: "id-1", Code: "aaaa1111", Date: "2026-01-26", Time: "10:00"},
			{Action: ActionModified, ID: "id-1", Code: "aaaa1111", Date: "2026-01-27", Time: "14:00", OldDate: "2026-01-26", OldTime: "10:00"},
		},
		UserName:        &name,
		DurationSeconds: 42,
	}

	v := c.View()
	require.Len(t, v.Appointments, 2)
	assert.Equal(t, "aaaa1111", v.Appointments[0].ID)
	assert.Nil(t, v.Appointments[0].RescheduledTime)

	mod := v.Appointments[1]
	require.NotNil(t, mod.RescheduledTime)
	assert.Equal(t, "2026-01-27 at 14:00", *mod.RescheduledTime)
	assert.Equal(t, "2026-01-26", mod.Date)
	assert.Equal(t, "10:00", mod.Time)

	assert.NotNil(t, v.Preferences)
	assert.Equal(t, 42, v.DurationSeconds)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(ErrNotFound))
	assert.Equal(t, KindInvalidFormat, KindOf(NewValidationError("date", "bad")))
	assert.Equal(t, KindUpstreamUnavailable, KindOf(assert.AnError))
	assert.Equal(t, "", KindOf(nil))
}

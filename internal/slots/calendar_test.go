package slots

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
)

func times(ss []Slot) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.Time)
	}
	return out
}

func TestForDate_WeekendsAreEmpty(t *testing.T) {
	// Every Saturday and Sunday across a full year.
	d := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 366; i++ {
		day := d.AddDate(0, 0, i)
		got, err := ForDate(day.Format(DateLayout))
		require.NoError(t, err)
		if IsWeekend(day) {
			assert.Empty(t, got, day.Format(DateLayout))
			assert.NotNil(t, got)
		} else {
			assert.Len(t, got, 7, day.Format(DateLayout))
		}
	}
}

func TestForDate_WeekdayLabels(t *testing.T) {
	got, err := ForDate("2026-01-26")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00"}, times(got))
	assert.Equal(t, "Morning - 9:00 AM", got[0].Label)
	assert.Equal(t, "Afternoon - 12:00 PM", got[3].Label)
	assert.Equal(t, "Afternoon - 3:00 PM", got[6].Label)
}

func TestAvailable_RemovesOccupiedInOrder(t *testing.T) {
	got, err := Available("2026-01-26", []string{"14:00", "09:00"})
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "11:00", "12:00", "13:00", "15:00"}, times(got))

	weekend, err := Available("2026-01-24", nil)
	require.NoError(t, err)
	assert.Empty(t, weekend)
}

func TestParse_RejectsMalformed(t *testing.T) {
	for _, s := range []string{"2026-1-26", "26/01/2026", "2026-02-30", "", "tomorrow"} {
		_, err := ParseDate(s)
		assert.ErrorIs(t, err, model.ErrInvalidFormat, s)
	}
	for _, s := range []string{"9:00", "25:00", "14:00:00", "2pm"} {
		_, err := ParseTime(s)
		assert.ErrorIs(t, err, model.ErrInvalidFormat, s)
	}
	norm, err := ParseTime(" 14:00 ")
	require.NoError(t, err)
	assert.Equal(t, "14:00", norm)
}

func TestLookup(t *testing.T) {
	s, err := Lookup("2026-01-26", "14:00")
	require.NoError(t, err)
	assert.Equal(t, "Afternoon - 2:00 PM", s.Label)

	_, err = Lookup("2026-01-24", "14:00")
	assert.True(t, errors.Is(err, ErrInvalidSlot))
	assert.ErrorIs(t, err, model.ErrSlotUnavailable)

	_, err = Lookup("2026-01-26", "16:00")
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = Lookup("2026-01-26", "14:30")
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = Lookup("2026-01-26", "2pm")
	assert.ErrorIs(t, err, model.ErrInvalidFormat)
}

func TestUpcoming_SkipsTodayAndWeekends(t *testing.T) {
	// Friday 2026-01-23: next three days are Sat, Sun, Mon.
	from := time.Date(2026, 1, 23, 17, 0, 0, 0, time.UTC)
	got := Upcoming(from, 3)
	require.Len(t, got, 7)
	for _, s := range got {
		assert.Equal(t, "2026-01-26", s.Date)
	}
}

func TestForSpeech(t *testing.T) {
	assert.Equal(t, "I don't have any available slots for that time.", ForSpeech(nil, 6))

	in := []Slot{
		{Date: "2026-01-26", Time: "09:00", Label: "Morning - 9:00 AM"},
		{Date: "2026-01-26", Time: "14:00", Label: "Afternoon - 2:00 PM"},
		{Date: "2026-01-27", Time: "10:00", Label: "Morning - 10:00 AM"},
		{Date: "2026-01-27", Time: "11:00", Label: "Morning - 11:00 AM"},
	}
	assert.Equal(t,
		"On Monday, January 26, 2026, I have Morning - 9:00 AM and Afternoon - 2:00 PM. On Tuesday, January 27, 2026, I have Morning - 10:00 AM.",
		ForSpeech(in, 3))
}

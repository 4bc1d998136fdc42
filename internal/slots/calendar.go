// Package slots computes the bookable one-hour windows for a calendar date.
//
// A weekday offers seven slots starting on the hour from 09:00 to 15:00 (the
// last one ends at 16:00). Weekends offer none. Everything here is pure and
// safe for concurrent use; occupancy is supplied by the caller.
package slots

import (
	"fmt"
	"strings"
	"time"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Hours are the start hours of the fixed daily slots, in chronological order.
var Hours = []int{9, 10, 11, 12, 13, 14, 15}

// ErrInvalidSlot marks a date/time outside the derivable slot set. It is a
// SlotUnavailable for callers, which recover by offering current availability.
var ErrInvalidSlot = fmt.Errorf("%w: not a bookable slot", model.ErrSlotUnavailable)

// Slot is a derived, never persisted booking unit.
type Slot struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Label string `json:"slot"`
}

// ParseDate parses a strict YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	d, err := time.Parse(DateLayout, s)
	if err != nil || len(s) != len(DateLayout) {
		return time.Time{}, model.NewValidationError("date", fmt.Sprintf("%q is not a YYYY-MM-DD date", s))
	}
	return d, nil
}

// ParseTime validates a strict 24-hour HH:MM time and returns it normalized.
func ParseTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(TimeLayout, s)
	if err != nil || len(s) != len(TimeLayout) {
		return "", model.NewValidationError("time", fmt.Sprintf("%q is not an HH:MM time", s))
	}
	return t.Format(TimeLayout), nil
}

// IsWeekend reports whether d falls on Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Label renders the spoken name of the slot starting at hour, e.g. "Afternoon - 2:00 PM".
func Label(hour int) string {
	period := "Morning"
	if hour >= 12 {
		period = "Afternoon"
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%s - %d:00 %s", period, h12, suffix)
}

func forDay(d time.Time) []Slot {
	if IsWeekend(d) {
		return []Slot{}
	}
	date := d.Format(DateLayout)
	out := make([]Slot, 0, len(Hours))
	for _, h := range Hours {
		out = append(out, Slot{Date: date, Time: fmt.Sprintf("%02d:00", h), Label: Label(h)})
	}
	return out
}

// ForDate returns every slot of the date in chronological order; empty on weekends.
func ForDate(date string) ([]Slot, error) {
	d, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	return forDay(d), nil
}

// Available returns the slots of date minus the occupied times, preserving order.
func Available(date string, occupied []string) ([]Slot, error) {
	all, err := ForDate(date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(occupied))
	for _, t := range occupied {
		taken[t] = struct{}{}
	}
	out := make([]Slot, 0, len(all))
	for _, s := range all {
		if _, ok := taken[s.Time]; !ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// Lookup validates that date/time name one of the derivable slots.
// Malformed input fails with InvalidFormat, a well-formed but
// non-bookable slot with ErrInvalidSlot.
func Lookup(date, tm string) (Slot, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Slot{}, err
	}
	norm, err := ParseTime(tm)
	if err != nil {
		return Slot{}, err
	}
	for _, s := range forDay(d) {
		if s.Time == norm {
			return s, nil
		}
	}
	if IsWeekend(d) {
		return Slot{}, fmt.Errorf("%w: %s is a weekend", ErrInvalidSlot, d.Format(DateLayout))
	}
	return Slot{}, fmt.Errorf("%w: %s is outside 09:00-16:00 hourly slots", ErrInvalidSlot, norm)
}

// Upcoming lists the weekday slots of the daysAhead days following from.
func Upcoming(from time.Time, daysAhead int) []Slot {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	var out []Slot
	for i := 1; i <= daysAhead; i++ {
		out = append(out, forDay(start.AddDate(0, 0, i))...)
	}
	return out
}

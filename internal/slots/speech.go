package slots

import (
	"fmt"
	"strings"
	"time"
)

// SpokenDateLayout renders dates the way the assistant reads them out.
const SpokenDateLayout = "Monday, January 2, 2006"

// SpokenDate formats a YYYY-MM-DD date for speech, returning the input unchanged if it does not parse.
func SpokenDate(date string) string {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format(SpokenDateLayout)
}

// ForSpeech renders up to limit slots grouped by date:
// "On Monday, January 26, 2026, I have Morning - 9:00 AM and Afternoon - 2:00 PM."
func ForSpeech(available []Slot, limit int) string {
	if len(available) == 0 {
		return "I don't have any available slots for that time."
	}
	if limit > 0 && len(available) > limit {
		available = available[:limit]
	}

	var order []string
	byDate := map[string][]string{}
	for _, s := range available {
		if _, ok := byDate[s.Date]; !ok {
			order = append(order, s.Date)
		}
		byDate[s.Date] = append(byDate[s.Date], s.Label)
	}

	parts := make([]string, 0, len(order))
	for _, date := range order {
		parts = append(parts, fmt.Sprintf("On %s, I have %s", SpokenDate(date), joinAnd(byDate[date])))
	}
	return strings.Join(parts, ". ") + "."
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

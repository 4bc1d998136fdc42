package model

// AppointmentOutcome is the front-end view of one discussed appointment.
type AppointmentOutcome struct {
	ID              string  `json:"id"`
	Action          string  `json:"action"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	RescheduledTime *string `json:"rescheduled_time,omitempty"`
}

// SummaryView is the payload of the summary event and the summary read endpoint.
type SummaryView struct {
	Summary         string               `json:"summary"`
	Appointments    []AppointmentOutcome `json:"appointments"`
	Preferences     []string             `json:"preferences"`
	UserName        *string              `json:"user_name,omitempty"`
	UserPhone       *string              `json:"user_phone,omitempty"`
	DurationSeconds int                  `json:"duration_seconds"`
	Costs           CostBreakdown        `json:"costs"`
}

// View renders c for the front end. Modified appointments carry the new slot
// in RescheduledTime as "YYYY-MM-DD at HH:MM".
func (c *Conversation) View() SummaryView {
	v := SummaryView{
		Summary:         c.Summary,
		Appointments:    make([]AppointmentOutcome, 0, len(c.Appointments)),
		Preferences:     c.Preferences,
		UserName:        c.UserName,
		UserPhone:       c.UserPhone,
		DurationSeconds: c.DurationSeconds,
		Costs:           c.Costs,
	}
	if v.Preferences == nil {
		v.Preferences = []string{}
	}
	for _, d := range c.Appointments {
		out := AppointmentOutcome{ID: d.Code, Action: d.Action, Date: d.Date, Time: d.Time}
		if d.Action == ActionModified {
			r := d.Date + " at " + d.Time
			out.RescheduledTime = &r
			if d.OldDate != "" {
				out.Date, out.Time = d.OldDate, d.OldTime
			}
		}
		v.Appointments = append(v.Appointments, out)
	}
	return v
}

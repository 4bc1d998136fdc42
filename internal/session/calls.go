package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
)

// Tool names exposed to the language model.
const (
	ToolIdentifyUser         = "identify_user"
	ToolFetchSlots           = "fetch_slots"
	ToolBookAppointment      = "book_appointment"
	ToolRetrieveAppointments = "retrieve_appointments"
	ToolCancelAppointment    = "cancel_appointment"
	ToolModifyAppointment    = "modify_appointment"
	ToolNotePreference       = "note_preference"
	ToolEndConversation      = "end_conversation"
)

// Call is one validated tool invocation. The set of implementations is closed.
type Call interface {
	Tool() string
	isCall()
}

type IdentifyUser struct {
	Phone string  `json:"phone_number"`
	Name  *string `json:"name,omitempty"`
}

// FetchSlots lists free slots of Date, or of the next DaysAhead days when Date is empty.
type FetchSlots struct {
	Date      string `json:"date,omitempty"`
	DaysAhead int    `json:"days_ahead,omitempty"`
}

// UnmarshalJSON accepts days_ahead as any JSON number; models often send 7.0.
// Fractions are truncated.
func (f *FetchSlots) UnmarshalJSON(b []byte) error {
	var raw struct {
		Date      string   `json:"date"`
		DaysAhead *float64 `json:"days_ahead"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	f.Date = raw.Date
	f.DaysAhead = 0
	if raw.DaysAhead != nil {
		f.DaysAhead = int(*raw.DaysAhead)
	}
	return nil
}

type BookAppointment struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type RetrieveAppointments struct {
	IncludeCancelled bool `json:"include_cancelled,omitempty"`
}

type CancelAppointment struct {
	Code string `json:"appointment_id"`
}

type ModifyAppointment struct {
	Code    string `json:"appointment_id"`
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
}

type NotePreference struct {
	Text string `json:"preference"`
}

type EndConversation struct {
	Reason string `json:"reason,omitempty"`
}

func (IdentifyUser) Tool() string         { return ToolIdentifyUser }
func (FetchSlots) Tool() string           { return ToolFetchSlots }
func (BookAppointment) Tool() string      { return ToolBookAppointment }
func (RetrieveAppointments) Tool() string { return ToolRetrieveAppointments }
func (CancelAppointment) Tool() string    { return ToolCancelAppointment }
func (ModifyAppointment) Tool() string    { return ToolModifyAppointment }
func (NotePreference) Tool() string       { return ToolNotePreference }
func (EndConversation) Tool() string      { return ToolEndConversation }

func (IdentifyUser) isCall()         {}
func (FetchSlots) isCall()           {}
func (BookAppointment) isCall()      {}
func (RetrieveAppointments) isCall() {}
func (CancelAppointment) isCall()    {}
func (ModifyAppointment) isCall()    {}
func (NotePreference) isCall()       {}
func (EndConversation) isCall()      {}

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return model.NewValidationError(field, "is required")
	}
	return nil
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, model.NewValidationError("arguments", err.Error())
	}
	return v, nil
}

// ParseCall decodes the JSON arguments of tool name into its Call.
// Unknown tools and malformed or missing arguments fail with model.ErrInvalidFormat.
// Value formats (phone, date, time, code) are validated by the handlers.
func ParseCall(name string, raw json.RawMessage) (Call, error) {
	switch name {
	case ToolIdentifyUser:
		c, err := decode[IdentifyUser](raw)
		if err != nil {
			return nil, err
		}
		if c.Name != nil && strings.TrimSpace(*c.Name) == "" {
			c.Name = nil
		}
		if strings.TrimSpace(c.Phone) == "" && c.Name == nil {
			return nil, model.NewValidationError("phone_number", "is required")
		}
		return c, nil
	case ToolFetchSlots:
		c, err := decode[FetchSlots](raw)
		if err != nil {
			return nil, err
		}
		if c.DaysAhead < 0 {
			return nil, model.NewValidationError("days_ahead", "must not be negative")
		}
		return c, nil
	case ToolBookAppointment:
		c, err := decode[BookAppointment](raw)
		if err != nil {
			return nil, err
		}
		if err := required("date", c.Date); err != nil {
			return nil, err
		}
		if err := required("time", c.Time); err != nil {
			return nil, err
		}
		return c, nil
	case ToolRetrieveAppointments:
		return decode[RetrieveAppointments](raw)
	case ToolCancelAppointment:
		c, err := decode[CancelAppointment](raw)
		if err != nil {
			return nil, err
		}
		if err := required("appointment_id", c.Code); err != nil {
			return nil, err
		}
		return c, nil
	case ToolModifyAppointment:
		c, err := decode[ModifyAppointment](raw)
		if err != nil {
			return nil, err
		}
		for _, f := range [][2]string{{"appointment_id", c.Code}, {"new_date", c.NewDate}, {"new_time", c.NewTime}} {
			if err := required(f[0], f[1]); err != nil {
				return nil, err
			}
		}
		return c, nil
	case ToolNotePreference:
		c, err := decode[NotePreference](raw)
		if err != nil {
			return nil, err
		}
		c.Text = strings.TrimSpace(c.Text)
		if err := required("preference", c.Text); err != nil {
			return nil, err
		}
		return c, nil
	case ToolEndConversation:
		c, err := decode[EndConversation](raw)
		if err != nil {
			return nil, err
		}
		if c.Reason == "" {
			c.Reason = "user requested"
		}
		return c, nil
	default:
		return nil, model.NewValidationError("tool", fmt.Sprintf("unknown tool %q", name))
	}
}

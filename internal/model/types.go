package model

import "time"

// User is a caller identified by phone number.
type User struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the user's name or an empty string before registration completes.
func (u *User) DisplayName() string {
	if u == nil || u.Name == nil {
		return ""
	}
	return *u.Name
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Appointment occupies one slot while its status is not cancelled.
type Appointment struct {
	ID        string            `json:"id"`
	Code      string            `json:"code"`
	UserID    string            `json:"user_id"`
	Date      string            `json:"date"`
	Time      string            `json:"time"`
	Slot      string            `json:"slot"`
	Status    AppointmentStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Live reports whether the appointment still holds its slot.
func (a *Appointment) Live() bool { return a.Status != StatusCancelled }

// Role tags a transcript entry with its speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// TranscriptEntry is one utterance or tool invocation in call order.
type TranscriptEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Tool      string    `json:"tool,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Discussed-appointment actions.
const (
	ActionBooked    = "booked"
	ActionModified  = "modified"
	ActionCancelled = "cancelled"
)

// DiscussedAppointment records one successful ledger mutation in a session.
// For modified appointments Date/Time carry the new slot and OldDate/OldTime the previous one.
type DiscussedAppointment struct {
	Action  string `json:"action"`
	ID      string `json:"id"`
	Code    string `json:"code"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Slot    string `json:"slot,omitempty"`
	OldDate string `json:"old_date,omitempty"`
	OldTime string `json:"old_time,omitempty"`
}

// Usage holds raw metered quantities reported by the speech and language services.
type Usage struct {
	STTSeconds      float64 `json:"stt_seconds"`
	TTSCharacters   int     `json:"tts_characters"`
	LLMInputTokens  int     `json:"llm_input_tokens"`
	LLMOutputTokens int     `json:"llm_output_tokens"`
}

// CostBreakdown is the priced view of a session's usage in USD.
type CostBreakdown struct {
	STTCost   float64 `json:"stt_cost"`
	TTSCost   float64 `json:"tts_cost"`
	LLMCost   float64 `json:"llm_cost"`
	TotalCost float64 `json:"total_cost"`
	Usage     Usage   `json:"usage"`
}

// Conversation is the persisted snapshot of a closed session.
type Conversation struct {
	ID              string                 `json:"id"`
	UserID          *string                `json:"user_id,omitempty"`
	RoomName        string                 `json:"room_name"`
	Summary         string                 `json:"summary"`
	Appointments    []DiscussedAppointment `json:"appointments_discussed"`
	Preferences     []string               `json:"preferences_mentioned"`
	Transcript      []TranscriptEntry      `json:"transcript"`
	Costs           CostBreakdown          `json:"cost_breakdown"`
	DurationSeconds int                    `json:"duration_seconds"`
	UserName        *string                `json:"user_name,omitempty"`
	UserPhone       *string                `json:"user_phone,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

package session

import "github.com/mark3labs/mcp-go/mcp"

// Catalog returns the tool definitions offered to the language model.
func Catalog() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolIdentifyUser,
			mcp.WithDescription("Identify the caller by phone number. Call this before booking, retrieving, cancelling or changing appointments. If the number is new, ask for the caller's name and call again with it; the phone number may then be omitted."),
			mcp.WithString("phone_number", mcp.Description("The caller's 10-digit phone number. Required except when only answering the name prompt for a new number")),
			mcp.WithString("name", mcp.Description("The caller's name, when registering a new number")),
		),
		mcp.NewTool(ToolFetchSlots,
			mcp.WithDescription("List available appointment slots, either for one date or for the coming days. Never invent times; always use this."),
			mcp.WithString("date", mcp.Description("A specific date in YYYY-MM-DD format")),
			mcp.WithNumber("days_ahead", mcp.Description("Days to look ahead starting tomorrow when no date is given (default 7, max 14)")),
		),
		mcp.NewTool(ToolBookAppointment,
			mcp.WithDescription("Book an appointment for the identified caller after they confirm the date and time."),
			mcp.WithString("date", mcp.Required(), mcp.Description("Appointment date in YYYY-MM-DD format")),
			mcp.WithString("time", mcp.Required(), mcp.Description("Appointment time in HH:MM 24-hour format")),
		),
		mcp.NewTool(ToolRetrieveAppointments,
			mcp.WithDescription("Retrieve the identified caller's appointments with their confirmation codes."),
			mcp.WithBoolean("include_cancelled", mcp.Description("Whether to include cancelled appointments")),
		),
		mcp.NewTool(ToolCancelAppointment,
			mcp.WithDescription("Cancel one of the identified caller's appointments."),
			mcp.WithString("appointment_id", mcp.Required(), mcp.Description("The 8-character confirmation code")),
		),
		mcp.NewTool(ToolModifyAppointment,
			mcp.WithDescription("Move one of the identified caller's appointments to a new date and time."),
			mcp.WithString("appointment_id", mcp.Required(), mcp.Description("The 8-character confirmation code")),
			mcp.WithString("new_date", mcp.Required(), mcp.Description("New date in YYYY-MM-DD format")),
			mcp.WithString("new_time", mcp.Required(), mcp.Description("New time in HH:MM 24-hour format")),
		),
		mcp.NewTool(ToolNotePreference,
			mcp.WithDescription("Remember a preference or note the caller mentions, such as preferred times."),
			mcp.WithString("preference", mcp.Required(), mcp.Description("The preference in a few words")),
		),
		mcp.NewTool(ToolEndConversation,
			mcp.WithDescription("End the conversation when the caller says goodbye or is done. This produces the call summary."),
			mcp.WithString("reason", mcp.Description("Why the conversation is ending, e.g. 'user requested'")),
		),
	}
}

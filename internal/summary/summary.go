// Package summary produces the closing summary of a conversation.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/llm"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/slots"
)

// RecentLines bounds how much of the transcript is sent to the summarizer.
const RecentLines = 20

// NoActions is rendered when a session changed no appointments.
const NoActions = "No appointment actions taken."

// Input is everything a summary is built from.
type Input struct {
	UserName     string
	Transcript   []model.TranscriptEntry
	Appointments []model.DiscussedAppointment
	Preferences  []string
	// OnUsage, when set, receives the token usage of the summary call.
	OnUsage func(inputTokens, outputTokens int)
}

// Summarizer turns a session into a short human-readable summary.
type Summarizer interface {
	Summarize(ctx context.Context, in Input) (string, error)
}

func actionLines(apts []model.DiscussedAppointment) string {
	if len(apts) == 0 {
		return NoActions
	}
	lines := make([]string, 0, len(apts))
	for _, a := range apts {
		line := fmt.Sprintf("- %s: %s at %s", a.Action, a.Date, a.Time)
		if a.Action == model.ActionModified && a.OldDate != "" {
			line += fmt.Sprintf(" (was %s at %s)", a.OldDate, a.OldTime)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Prompt renders the summarization request for in.
func Prompt(in Input) string {
	recent := in.Transcript
	if len(recent) > RecentLines {
		recent = recent[len(recent)-RecentLines:]
	}
	var transcript strings.Builder
	for i, e := range recent {
		if i > 0 {
			transcript.WriteByte('\n')
		}
		fmt.Fprintf(&transcript, "%s: %s", e.Role, e.Content)
	}

	prefs := "None mentioned."
	if len(in.Preferences) > 0 {
		prefs = "- " + strings.Join(in.Preferences, "\n- ")
	}

	return fmt.Sprintf(`Summarize this appointment booking conversation concisely.

## Conversation Transcript (recent):
%s

## Appointment Actions:
%s

## Preferences Mentioned:
%s

## Generate a summary with:
1. Brief overview (1-2 sentences)
2. List of appointments booked/modified/cancelled
3. Any user preferences or notes mentioned
4. Next steps (if any)

Keep the summary concise and actionable.`, transcript.String(), actionLines(in.Appointments), prefs)
}

// Fallback builds a summary from the discussed log alone. It is used when the
// summarizer fails or times out, so it must never fail itself.
func Fallback(in Input) string {
	var b strings.Builder
	if in.UserName != "" {
		fmt.Fprintf(&b, "Conversation with %s. ", in.UserName)
	}
	if len(in.Appointments) == 0 {
		b.WriteString(NoActions)
	}
	for i, a := range in.Appointments {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch a.Action {
		case model.ActionModified:
			fmt.Fprintf(&b, "Moved appointment %s from %s at %s to %s at %s.",
				a.Code, slots.SpokenDate(a.OldDate), a.OldTime, slots.SpokenDate(a.Date), a.Time)
		case model.ActionCancelled:
			fmt.Fprintf(&b, "Cancelled appointment %s on %s at %s.", a.Code, slots.SpokenDate(a.Date), a.Time)
		default:
			fmt.Fprintf(&b, "Booked appointment %s on %s at %s.", a.Code, slots.SpokenDate(a.Date), a.Time)
		}
	}
	if len(in.Preferences) > 0 {
		fmt.Fprintf(&b, " Preferences: %s.", strings.Join(in.Preferences, "; "))
	}
	return b.String()
}

// LLMSummarizer asks a chat model for the summary.
type LLMSummarizer struct {
	chat llm.Chatter
	log  zerolog.Logger
}

func NewLLMSummarizer(chat llm.Chatter, log zerolog.Logger) *LLMSummarizer {
	return &LLMSummarizer{chat: chat, log: log.With().Str("component", "summary").Logger()}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, in Input) (string, error) {
	out, err := s.chat.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: Prompt(in)}}, nil)
	if err != nil {
		return "", err
	}
	if in.OnUsage != nil {
		in.OnUsage(out.Usage.PromptTokens, out.Usage.CompletionTokens)
	}
	text := strings.TrimSpace(out.Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty summary", model.ErrUpstreamUnavailable)
	}
	s.log.Debug().Int("chars", len(text)).Msg("summary generated")
	return text, nil
}

// FallbackSummarizer renders the deterministic summary without a model.
type FallbackSummarizer struct{}

func (FallbackSummarizer) Summarize(_ context.Context, in Input) (string, error) {
	return Fallback(in), nil
}

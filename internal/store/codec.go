package store

import (
	"encoding/json"
	"fmt"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
)

// EncodeConversation renders the JSON columns of a conversation row.
func EncodeConversation(c *model.Conversation) (apts, prefs, transcript, costs string, err error) {
	enc := func(v any, empty string) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		if string(b) == "null" {
			return empty, nil
		}
		return string(b), nil
	}
	if apts, err = enc(c.Appointments, "[]"); err != nil {
		return "", "", "", "", fmt.Errorf("encode appointments: %w", err)
	}
	if prefs, err = enc(c.Preferences, "[]"); err != nil {
		return "", "", "", "", fmt.Errorf("encode preferences: %w", err)
	}
	if transcript, err = enc(c.Transcript, "[]"); err != nil {
		return "", "", "", "", fmt.Errorf("encode transcript: %w", err)
	}
	if costs, err = enc(c.Costs, "{}"); err != nil {
		return "", "", "", "", fmt.Errorf("encode costs: %w", err)
	}
	return apts, prefs, transcript, costs, nil
}

// DecodeConversation fills the JSON-backed fields of c from raw column values.
func DecodeConversation(c *model.Conversation, apts, prefs, transcript, costs []byte) error {
	c.Appointments = []model.DiscussedAppointment{}
	c.Preferences = []string{}
	c.Transcript = []model.TranscriptEntry{}
	if len(apts) > 0 {
		if err := json.Unmarshal(apts, &c.Appointments); err != nil {
			return fmt.Errorf("decode appointments: %w", err)
		}
	}
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &c.Preferences); err != nil {
			return fmt.Errorf("decode preferences: %w", err)
		}
	}
	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &c.Transcript); err != nil {
			return fmt.Errorf("decode transcript: %w", err)
		}
	}
	if len(costs) > 0 {
		if err := json.Unmarshal(costs, &c.Costs); err != nil {
			return fmt.Errorf("decode costs: %w", err)
		}
	}
	return nil
}

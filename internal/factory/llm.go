package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/config"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/llm"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/summary"
)

// NewChatClient builds the chat-completions client. An API key is required.
func NewChatClient(cfg *config.Config) (*llm.Client, error) {
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("VOICE_AGENT_LLM_API_KEY is required")
	}
	return llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout()), nil
}

// NewSummarizer uses the model when a key is configured and the
// deterministic fallback otherwise.
func NewSummarizer(cfg *config.Config, log zerolog.Logger) summary.Summarizer {
	chat, err := NewChatClient(cfg)
	if err != nil {
		log.Warn().Msg("no LLM key configured, summaries use the fallback")
		return summary.FallbackSummarizer{}
	}
	return summary.NewLLMSummarizer(chat, log)
}

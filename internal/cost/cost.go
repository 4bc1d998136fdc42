// Package cost aggregates per-session service usage and prices it against a fixed rate table.
package cost

import (
	"math"
	"sync"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
)

// Rates are USD prices per unit of metered usage.
type Rates struct {
	STTPerMinute         float64
	TTSPerCharacter      float64
	LLMPerThousandInput  float64
	LLMPerThousandOutput float64
}

// DefaultRates: Deepgram Nova-2 speech recognition, Cartesia Sonic-2 synthesis, gpt-4o-mini tokens.
var DefaultRates = Rates{
	STTPerMinute:         0.0058,
	TTSPerCharacter:      0.0000099,
	LLMPerThousandInput:  0.00015,
	LLMPerThousandOutput: 0.0006,
}

// Meter accumulates usage reported by the speech and language collaborators.
// It is safe for concurrent use.
type Meter struct {
	mu    sync.Mutex
	rates Rates
	usage model.Usage
}

func NewMeter(rates Rates) *Meter { return &Meter{rates: rates} }

// AddSTT records seconds of recognised audio.
func (m *Meter) AddSTT(seconds float64) {
	if seconds <= 0 {
		return
	}
	m.mu.Lock()
	m.usage.STTSeconds += seconds
	m.mu.Unlock()
}

// AddTTS records synthesised characters.
func (m *Meter) AddTTS(chars int) {
	if chars <= 0 {
		return
	}
	m.mu.Lock()
	m.usage.TTSCharacters += chars
	m.mu.Unlock()
}

// AddLLM records prompt and completion tokens.
func (m *Meter) AddLLM(inputTokens, outputTokens int) {
	m.mu.Lock()
	if inputTokens > 0 {
		m.usage.LLMInputTokens += inputTokens
	}
	if outputTokens > 0 {
		m.usage.LLMOutputTokens += outputTokens
	}
	m.mu.Unlock()
}

// Usage returns a copy of the raw totals.
func (m *Meter) Usage() model.Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

// Breakdown prices the current totals. Costs are rounded to 6 decimals, seconds to 2.
func (m *Meter) Breakdown() model.CostBreakdown {
	u := m.Usage()
	stt := u.STTSeconds * m.rates.STTPerMinute / 60
	tts := float64(u.TTSCharacters) * m.rates.TTSPerCharacter
	llm := float64(u.LLMInputTokens)*m.rates.LLMPerThousandInput/1000 +
		float64(u.LLMOutputTokens)*m.rates.LLMPerThousandOutput/1000
	u.STTSeconds = round(u.STTSeconds, 2)
	return model.CostBreakdown{
		STTCost:   round(stt, 6),
		TTSCost:   round(tts, 6),
		LLMCost:   round(llm, 6),
		TotalCost: round(stt+tts+llm, 6),
		Usage:     u,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

package cost

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakdown(t *testing.T) {
	m := NewMeter(DefaultRates)
	m.AddSTT(120)         // 2 min * 0.0058
	m.AddTTS(1000)        // 1000 * 0.0000099
	m.AddLLM(10000, 2000) // 10 * 0.00015 + 2 * 0.0006
	m.AddSTT(-5)          // ignored
	m.AddTTS(0)           // ignored

	b := m.Breakdown()
	assert.InDelta(t, 0.0116, b.STTCost, 1e-9)
	assert.InDelta(t, 0.0099, b.TTSCost, 1e-9)
	assert.InDelta(t, 0.0027, b.LLMCost, 1e-9)
	assert.InDelta(t, 0.0242, b.TotalCost, 1e-9)
	assert.Equal(t, 120.0, b.Usage.STTSeconds)
	assert.Equal(t, 1000, b.Usage.TTSCharacters)
	assert.Equal(t, 10000, b.Usage.LLMInputTokens)
	assert.Equal(t, 2000, b.Usage.LLMOutputTokens)
}

func TestBreakdown_RoundsSeconds(t *testing.T) {
	m := NewMeter(DefaultRates)
	m.AddSTT(1.23456)
	assert.Equal(t, 1.23, m.Breakdown().Usage.STTSeconds)
}

func TestMeter_ConcurrentCallbacks(t *testing.T) {
	m := NewMeter(DefaultRates)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); m.AddTTS(2) }()
		go func() { defer wg.Done(); m.AddLLM(1, 1) }()
		go func() { defer wg.Done(); m.AddSTT(0.5) }()
	}
	wg.Wait()
	u := m.Usage()
	assert.Equal(t, 100, u.TTSCharacters)
	assert.Equal(t, 50, u.LLMInputTokens)
	assert.Equal(t, 25.0, u.STTSeconds)
}

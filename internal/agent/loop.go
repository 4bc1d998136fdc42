// Package agent drives one conversation: each caller utterance goes to the
// language model, whose tool calls are dispatched against the session until
// it produces a spoken reply.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/llm"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/notify"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/session"
)

// DefaultMaxToolRounds bounds model round trips per utterance.
const DefaultMaxToolRounds = 5

// Speaker renders assistant text to the caller.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Loop is the control loop of one session. Handle must not be called
// concurrently; Interrupt may be called from any goroutine.
type Loop struct {
	sess    *session.Session
	disp    *session.Dispatcher
	closer  *session.Closer
	chat    llm.Chatter
	speaker Speaker
	pub     notify.Publisher
	tools   []mcp.Tool
	history []llm.Message
	rounds  int
	now     func() time.Time
	log     zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Option configures a Loop.
type Option func(*Loop)

func WithMaxToolRounds(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.rounds = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

func New(sess *session.Session, disp *session.Dispatcher, closer *session.Closer, chat llm.Chatter, speaker Speaker, pub notify.Publisher, log zerolog.Logger, opts ...Option) *Loop {
	l := &Loop{
		sess:    sess,
		disp:    disp,
		closer:  closer,
		chat:    chat,
		speaker: speaker,
		pub:     pub,
		tools:   session.Catalog(),
		rounds:  DefaultMaxToolRounds,
		now:     time.Now,
		log:     log.With().Str("component", "agent").Str("room", sess.Room()).Logger(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Loop) Session() *session.Session { return l.sess }

// Start announces readiness to the front end and greets the caller.
func (l *Loop) Start(ctx context.Context) error {
	if err := l.pub.Publish(ctx, notify.NewEvent(l.sess.Room(), notify.EventAgentReady, map[string]bool{"has_avatar": false}, l.now())); err != nil {
		l.log.Warn().Err(err).Msg("agent_ready event not delivered")
	}
	return l.say(ctx, greeting)
}

// Interrupt cancels the turn in flight, if any. Effects already committed
// by tool calls stand; their replies are not spoken.
func (l *Loop) Interrupt() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
}

func (l *Loop) beginTurn(ctx context.Context) (context.Context, func()) {
	turnCtx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()
	return turnCtx, func() {
		l.mu.Lock()
		l.cancel = nil
		l.mu.Unlock()
		cancel()
	}
}

func (l *Loop) messages() []llm.Message {
	out := make([]llm.Message, 0, len(l.history)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt(l.now())})
	return append(out, l.history...)
}

func (l *Loop) say(ctx context.Context, text string) error {
	l.sess.AddUtterance(model.RoleAssistant, text)
	l.sess.RecordTTS(len(text))
	if ctx.Err() != nil {
		return nil
	}
	return l.speaker.Speak(ctx, text)
}

// Handle processes one caller utterance. It reports whether the
// conversation has ended.
func (l *Loop) Handle(ctx context.Context, utterance string) (ended bool, err error) {
	if l.sess.State() == session.Closed {
		return true, model.ErrAlreadyClosed
	}
	turnCtx, done := l.beginTurn(ctx)
	defer done()

	l.sess.AddUtterance(model.RoleUser, utterance)
	l.history = append(l.history, llm.Message{Role: llm.RoleUser, Content: utterance})

	for round := 0; round <= l.rounds; round++ {
		out, err := l.chat.Chat(turnCtx, l.messages(), l.tools)
		if err != nil {
			if turnCtx.Err() != nil {
				l.log.Debug().Msg("turn interrupted while waiting for the model")
				return ended, nil
			}
			l.log.Error().Err(err).Int("round", round).Msg("model call failed")
			return ended, l.say(turnCtx, apology)
		}
		l.sess.RecordLLM(out.Usage.PromptTokens, out.Usage.CompletionTokens)

		msg := out.Message
		msg.Role = llm.RoleAssistant
		l.history = append(l.history, msg)
		if len(msg.ToolCalls) == 0 {
			if msg.Content == "" {
				return ended, nil
			}
			return ended, l.say(turnCtx, msg.Content)
		}

		suppressed := false
		for _, tc := range msg.ToolCalls {
			res := l.disp.DispatchRaw(turnCtx, l.sess, tc.Function.Name, json.RawMessage(tc.Function.Arguments))
			body, _ := json.Marshal(res)
			l.history = append(l.history, llm.Message{Role: llm.RoleTool, Content: string(body), ToolCallID: tc.ID})
			ended = ended || res.EndConversation
			suppressed = suppressed || res.Suppressed
		}
		if suppressed {
			l.log.Debug().Msg("turn interrupted during tool calls; reply suppressed")
			return ended, nil
		}
	}
	l.log.Warn().Int("rounds", l.rounds).Msg("tool round limit reached")
	return ended, l.say(turnCtx, giveUp)
}

// Shutdown interrupts any turn and closes the session if nothing else has.
func (l *Loop) Shutdown(ctx context.Context, reason string) (*model.Conversation, error) {
	l.Interrupt()
	conv, err := l.closer.Close(ctx, l.sess, reason)
	if errors.Is(err, model.ErrAlreadyClosed) {
		return nil, nil
	}
	return conv, err
}

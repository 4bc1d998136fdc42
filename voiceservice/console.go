package voiceservice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/agent"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/llm"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/session"
)

// HangUpReason closes a console conversation that ended without end_conversation.
const HangUpReason = "caller hung up"

// textSpeaker prints assistant replies as lines of text.
type textSpeaker struct{ w io.Writer }

func (s textSpeaker) Speak(_ context.Context, text string) error {
	_, err := fmt.Fprintf(s.w, "agent> %s\n", text)
	return err
}

// Console runs one text conversation: each input line is a caller utterance.
// It returns the persisted conversation once the agent ends the call or
// input runs out.
func Console(ctx context.Context, deps *Deps, chat llm.Chatter, in io.Reader, out io.Writer, opts ...agent.Option) (*model.Conversation, error) {
	room := "console-" + uuid.NewString()[:8]
	loop := agent.New(session.New(room), deps.Dispatcher, deps.Closer, chat, textSpeaker{w: out}, deps.Publisher, deps.Log, opts...)
	if err := loop.Start(ctx); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ended, err := loop.Handle(ctx, line)
		if err != nil {
			return nil, err
		}
		if ended {
			return deps.Store.Conversations().LatestByRoom(context.WithoutCancel(ctx), room)
		}
		if ctx.Err() != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		deps.Log.Warn().Err(err).Msg("console input failed")
	}
	return loop.Shutdown(context.WithoutCancel(ctx), HangUpReason)
}

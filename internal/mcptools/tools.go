// Package mcptools exposes the session tool catalog over the Model Context
// Protocol. Each MCP client session drives its own conversation session.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/session"
)

const defaultClient = "default"

// Handler maps MCP tool calls onto conversation sessions.
type Handler struct {
	disp   *session.Dispatcher
	closer *session.Closer
	log    zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session
}

func NewHandler(disp *session.Dispatcher, closer *session.Closer, log zerolog.Logger) *Handler {
	return &Handler{
		disp:     disp,
		closer:   closer,
		log:      log.With().Str("component", "mcptools").Logger(),
		sessions: map[string]*session.Session{},
	}
}

// NewServer builds an MCP server with every catalog tool registered. A client
// that goes away has its conversation closed.
func NewServer(name, version string, h *Handler) *server.MCPServer {
	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(func(ctx context.Context, cs server.ClientSession) {
		h.Disconnect(ctx, cs.SessionID())
	})
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)
	h.RegisterTools(s)
	return s
}

// RegisterTools adds the catalog to s.
func (h *Handler) RegisterTools(s *server.MCPServer) {
	for _, tool := range session.Catalog() {
		s.AddTool(tool, h.handle)
	}
}

func clientKey(ctx context.Context) string {
	if cs := server.ClientSessionFromContext(ctx); cs != nil && cs.SessionID() != "" {
		return cs.SessionID()
	}
	return defaultClient
}

// sessionFor returns the open session of the calling client, starting one if needed.
func (h *Handler) sessionFor(ctx context.Context) *session.Session {
	key := clientKey(ctx)
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[key]
	if !ok || s.State() == session.Closed {
		s = session.New("mcp-" + key)
		h.sessions[key] = s
		h.log.Info().Str("client", key).Str("room", s.Room()).Msg("session started")
	}
	return s
}

func (h *Handler) handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := json.Marshal(req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError("arguments are not valid JSON"), nil
	}
	s := h.sessionFor(ctx)
	res := h.disp.DispatchRaw(ctx, s, req.Params.Name, args)

	body, err := json.Marshal(res)
	if err != nil {
		return mcp.NewToolResultError(res.Message), nil
	}
	if !res.OK {
		return mcp.NewToolResultError(string(body)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

// Disconnect closes and forgets the conversation of clientID.
func (h *Handler) Disconnect(ctx context.Context, clientID string) {
	if clientID == "" {
		clientID = defaultClient
	}
	h.mu.Lock()
	s, ok := h.sessions[clientID]
	delete(h.sessions, clientID)
	h.mu.Unlock()
	if !ok || s.State() == session.Closed {
		return
	}

	_, err := h.closer.Close(ctx, s, "client disconnected")
	switch {
	case errors.Is(err, model.ErrAlreadyClosed):
	case err != nil:
		h.log.Warn().Err(err).Str("client", clientID).Str("room", s.Room()).Msg("session not closed cleanly")
	default:
		h.log.Info().Str("client", clientID).Str("room", s.Room()).Msg("client disconnected")
	}
}

// Shutdown closes every session that is still open.
func (h *Handler) Shutdown(ctx context.Context) {
	h.mu.Lock()
	open := make([]*session.Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if s.State() != session.Closed {
			open = append(open, s)
		}
	}
	h.sessions = map[string]*session.Session{}
	h.mu.Unlock()

	for _, s := range open {
		if _, err := h.closer.Close(ctx, s, "server shutdown"); err != nil {
			h.log.Warn().Err(err).Str("room", s.Room()).Msg("session not closed cleanly")
		}
	}
}

package voiceservice

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/config"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/mcptools"
)

// RunStdio serves the tool catalog to a single MCP host over stdin/stdout.
// The log must not write to stdout.
func RunStdio(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := newServerContext()
	defer stop()

	deps, err := Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close() }()

	tools := mcptools.NewHandler(deps.Dispatcher, deps.Closer, log)
	log.Info().Msg("Starting voice agent MCP server (stdio transport)")
	err = server.ServeStdio(mcptools.NewServer(serverName, serverVersion, tools))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tools.Shutdown(shutdownCtx)
	return err
}

// Package voiceservice runs the voice agent backend processes.
package voiceservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/api"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/config"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/health"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/mcptools"
)

const (
	serverName    = "voice-agent"
	serverVersion = "0.1.0"
)

// Run starts the HTTP API and the streamable MCP endpoint and blocks until
// shutdown or error.
func Run(cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Str("notify_driver", cfg.NotifyDriver).
		Int("http_port", cfg.HTTPPort).
		Int("mcp_port", cfg.MCPPort).
		Msg("Voice agent starting")

	ctx, stop := newServerContext()
	defer stop()

	deps, err := Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.Warn().Err(err).Msg("closing adapters")
		}
	}()

	svcHealth := startHealthCheckers(ctx, cfg, log, deps)
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	apiDeps := api.Deps{
		Store:     deps.Store,
		Slots:     deps.Ledger,
		IsHealthy: svcHealth.IsHealthy,
		Policy:    deps.Policy,
		Log:       log,
	}
	// Only the Redis bus can be read back; other publishers serve no stream.
	if sub, ok := deps.Publisher.(api.EventSubscriber); ok {
		apiDeps.Events = sub
	}
	router := api.NewRouter(apiDeps)
	tools := mcptools.NewHandler(deps.Dispatcher, deps.Closer, log)
	streamSrv := server.NewStreamableHTTPServer(
		mcptools.NewServer(serverName, serverVersion, tools),
		server.WithEndpointPath("/mcp"),
		server.WithHeartbeatInterval(30*time.Second),
	)

	apiSrv := newHTTPServer(ctx, cfg.GetHTTPAddr(), router, 15*time.Second)
	// Streaming responses must not hit a write deadline.
	mcpSrv := newHTTPServer(ctx, cfg.GetMCPAddr(), streamSrv, 0)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(apiSrv, "api", log) })
	g.Go(func() error { return serve(mcpSrv, "mcp", log) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := errors.Join(
			apiSrv.Shutdown(shutdownCtx),
			streamSrv.Shutdown(shutdownCtx),
			mcpSrv.Shutdown(shutdownCtx),
		)
		// Close the conversations MCP clients left open so they are persisted.
		tools.Shutdown(shutdownCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Stack().Err(err).Msg("Server exited with error")
		return err
	}
	log.Info().Msg("Server exited")
	return nil
}

// startHealthCheckers probes the store and, when it supports it, the publisher.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, deps *Deps) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	var checkers []health.HealthChecker
	if p, ok := deps.Store.(health.HealthPinger); ok {
		checkers = append(checkers, health.NewPingChecker("store", p, log, probeTimeout))
	}
	if p, ok := deps.Publisher.(health.HealthPinger); ok {
		checkers = append(checkers, health.NewPingChecker("notify", p, log, probeTimeout))
	}
	for _, c := range checkers {
		go c.Start(ctx, interval)
	}

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, addr string, handler http.Handler, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serve(srv *http.Server, name string, log zerolog.Logger) error {
	log.Info().Str("server", name).Str("addr", srv.Addr).Msg("HTTP server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

// startupHealthTimeout is twice the probe interval, at least 10 seconds.
func startupHealthTimeout(healthIntervalSeconds int) time.Duration {
	timeout := healthIntervalSeconds * 2
	if timeout < 10 {
		timeout = 10
	}
	return time.Duration(timeout) * time.Second
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeout := startupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.Evaluate() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a context cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store/storetest"
)

// startPostgres launches a throwaway postgres container and returns its DSN.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "voice",
			"POSTGRES_PASSWORD": "voice",
			"POSTGRES_DB":       "voice_agent",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}
	return fmt.Sprintf("postgres://voice:voice@%s:%s/voice_agent?sslmode=disable", host, port.Port())
}

func TestPostgresStore_ComplianceContainer(t *testing.T) {
	if os.Getenv("VOICE_AGENT_TESTCONTAINERS") != "1" {
		t.Skip("VOICE_AGENT_TESTCONTAINERS!=1; skipping containerised postgres test")
	}
	ctx := context.Background()
	dsn := startPostgres(ctx, t)

	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("postgres migrate: %v", err)
	}

	storetest.Run(t, func(t *testing.T) store.Store { return NewWithDB(db) })
}

// Package factory builds the infrastructure adapters selected by configuration.
package factory

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/config"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/health"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
	storepg "github.com/SahanaGS-tech/voice-agent-backend/internal/store/postgres"
	storelite "github.com/SahanaGS-tech/voice-agent-backend/internal/store/sqlite"
)

// Store is a store.Store that can be probed and released.
type Store interface {
	store.Store
	health.HealthPinger
	io.Closer
}

// NewStore opens the configured driver and applies the schema.
// Requires a resolved config (cfg.ResolveDefaults).
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Store, error) {
	var (
		db      *sql.DB
		migrate func(context.Context, *sql.DB) error
		wrap    func(*sql.DB) store.Store
		err     error
	)
	switch cfg.DBDriver {
	case "postgres":
		db, err = storepg.Open(cfg.PostgresDSN)
		migrate, wrap = storepg.Migrate, storepg.NewWithDB
	case "sqlite":
		db, err = storelite.Open(cfg.SQLitePath)
		migrate, wrap = storelite.Migrate, storelite.NewWithDB
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s store: %w", cfg.DBDriver, err)
	}

	st, ok := wrap(db).(Store)
	if !ok {
		_ = db.Close()
		return nil, fmt.Errorf("%s store does not support health probes", cfg.DBDriver)
	}
	log.Debug().Str("driver", cfg.DBDriver).Msg("store ready")
	return st, nil
}

package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/config"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/notify"
)

// NewPublisher returns the Redis publisher or the log-only one.
// The returned close func is never nil.
func NewPublisher(ctx context.Context, cfg *config.Config, log zerolog.Logger) (notify.Publisher, func() error, error) {
	switch cfg.NotifyDriver {
	case "redis":
		p, err := notify.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisChannelPrefix, log)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case "log":
		return notify.NewLogPublisher(log), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown NOTIFY_DRIVER: %s", cfg.NotifyDriver)
	}
}

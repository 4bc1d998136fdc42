package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisPublisher publishes events as JSON on the channel "<prefix>:<room>".
type RedisPublisher struct {
	rdb    *goredis.Client
	prefix string
	log    zerolog.Logger
}

// NewRedisPublisher connects to addr and verifies it with a ping.
func NewRedisPublisher(ctx context.Context, addr, prefix string, log zerolog.Logger) (*RedisPublisher, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	if prefix == "" {
		prefix = Topic
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisPublisher{
		rdb:    rdb,
		prefix: prefix,
		log:    log.With().Str("component", "notify").Str("driver", "redis").Logger(),
	}, nil
}

// Channel returns the channel events for room are published on.
func (p *RedisPublisher) Channel(room string) string { return p.prefix + ":" + room }

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.Channel(ev.Room), raw).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", ev.Type, err)
	}
	p.log.Debug().Str("room", ev.Room).Str("type", string(ev.Type)).Msg("event published")
	return nil
}

// Subscribe delivers the events of room to fn until ctx is done.
func (p *RedisPublisher) Subscribe(ctx context.Context, room string, fn func(Event)) error {
	sub := p.rdb.Subscribe(ctx, p.Channel(room))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	go func() {
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					p.log.Warn().Err(err).Msg("bad event payload")
					continue
				}
				ev.Room = room
				fn(ev)
			}
		}
	}()
	return nil
}

// HealthPing checks the Redis connection.
func (p *RedisPublisher) HealthPing(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

func (p *RedisPublisher) Close() error { return p.rdb.Close() }

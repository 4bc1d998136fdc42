package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) HealthPing(ctx context.Context) error { return f(ctx) }

func TestPingChecker_Probe(t *testing.T) {
	var fail bool
	c := NewPingChecker("store", pingerFunc(func(context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	}), zerolog.Nop(), time.Second)

	assert.False(t, c.IsHealthy(), "starts unhealthy")
	assert.True(t, c.Probe(context.Background()))
	assert.True(t, c.IsHealthy())

	fail = true
	assert.False(t, c.Probe(context.Background()))
	assert.False(t, c.IsHealthy())
	assert.Equal(t, "store", c.Name())
}

func TestServiceHealthChecker_Evaluate(t *testing.T) {
	up := NewPingChecker("up", pingerFunc(func(context.Context) error { return nil }), zerolog.Nop(), time.Second)
	down := NewPingChecker("down", pingerFunc(func(context.Context) error { return errors.New("x") }), zerolog.Nop(), time.Second)
	up.Probe(context.Background())
	down.Probe(context.Background())

	assert.True(t, NewServiceHealthChecker(zerolog.Nop(), up).Evaluate())
	svc := NewServiceHealthChecker(zerolog.Nop(), up, down)
	assert.False(t, svc.Evaluate())
	assert.False(t, svc.IsHealthy())
}

func TestPingChecker_StartStopsOnCancel(t *testing.T) {
	c := NewPingChecker("store", pingerFunc(func(context.Context) error { return nil }), zerolog.Nop(), time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { c.Start(ctx, 10*time.Millisecond); close(done) }()
	assert.Eventually(t, c.IsHealthy, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

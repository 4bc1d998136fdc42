// Package retry wraps idempotent reads in a single backed-off retry.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
)

// Policy bounds how an idempotent operation is retried.
type Policy struct {
	InitialInterval time.Duration
	MaxRetries      uint64
}

// Once is the default read policy: one retry after a short backoff.
var Once = Policy{InitialInterval: 150 * time.Millisecond, MaxRetries: 1}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.Multiplier = 2
	exp.MaxInterval = 4 * p.InitialInterval
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, p.MaxRetries), ctx)
}

// Do runs op, retrying infrastructure failures per p. Domain errors
// (not found, invalid format, ...) and context cancellation are returned as is;
// an exhausted retry is reported as model.ErrUpstreamUnavailable wrapping the cause.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	out, err := backoff.RetryWithData(func() (T, error) {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if model.IsDomainError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, p.backOff(ctx))
	if err == nil || model.IsDomainError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return out, err
	}
	return out, fmt.Errorf("%w: %w", model.ErrUpstreamUnavailable, err)
}

// Upstream marks a non-domain write failure as model.ErrUpstreamUnavailable without retrying.
func Upstream(err error) error {
	if err == nil || model.IsDomainError(err) || errors.Is(err, model.ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrUpstreamUnavailable, err)
}

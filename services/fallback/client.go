package fallback

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
)

const defaultRetryDelay = 300 * time.Millisecond

// Provider is one external source able to answer queries of type Q with a
// record of type T. Call performs the request and adapts the response shape;
// it returns a StatusError, ShapeError or ConfigError for the typed failures
// and any other error for transport problems.
type Provider[Q, T any] struct {
	Name    string
	Timeout time.Duration
	// Attempts bounds how often a transient failure (timeout, connection,
	// 429 or 5xx) is tried again. Zero means a single attempt.
	Attempts uint
	Call     func(ctx context.Context, q Q) (T, error)
}

// Result is the outcome of a provider call or of a chain resolution.
// Exactly one of Value (with Provider set) or Failure is meaningful.
type Result[T any] struct {
	Value    T
	Provider string
	Failure  *Failure
}

// Success wraps a value returned by the named provider.
func Success[T any](provider string, value T) Result[T] {
	return Result[T]{Value: value, Provider: provider}
}

// Fail wraps a failure.
func Fail[T any](f *Failure) Result[T] {
	return Result[T]{Failure: f}
}

// OK reports whether the result carries a value.
func (r Result[T]) OK() bool { return r.Failure == nil }

// Err returns the failure as an error, or nil on success.
func (r Result[T]) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

func (p Provider[Q, T]) validate() error {
	switch {
	case p.Name == "":
		return ConfigErrorf("provider name is empty")
	case p.Timeout <= 0:
		return ConfigErrorf("provider %s: timeout must be positive", p.Name)
	case p.Call == nil:
		return ConfigErrorf("provider %s: no call function", p.Name)
	}
	return nil
}

// Call performs one provider call with the provider's timeout applied to
// every attempt. It never panics and never returns a nil-failure zero value:
// the outcome is either a Success or a single provider Failure.
func Call[Q, T any](ctx context.Context, p Provider[Q, T], q Q, logger zerolog.Logger) Result[T] {
	start := time.Now()

	if err := p.validate(); err != nil {
		f := &Failure{Provider: p.Name, Reason: ReasonConfig, Err: err}
		logOutcome(logger, p.Name, f, time.Since(start))
		return Fail[T](f)
	}

	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}

	var value T
	err := retry.Do(
		func() error {
			v, err := invoke(ctx, p, q)
			if err != nil {
				return err
			}
			value = v
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(defaultRetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug().
				Str("provider", p.Name).
				Uint("attempt", n+1).
				Err(err).
				Msg("retrying provider call")
		}),
	)

	if err != nil {
		reason, status := Classify(err)
		f := &Failure{Provider: p.Name, Reason: reason, Status: status, Err: err}
		logOutcome(logger, p.Name, f, time.Since(start))
		return Fail[T](f)
	}

	logOutcome(logger, p.Name, nil, time.Since(start))
	return Success(p.Name, value)
}

// invoke runs a single attempt under its own deadline and turns a panic in
// the provider into an error.
func invoke[Q, T any](ctx context.Context, p Provider[Q, T], q Q) (value T, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider %s panicked: %v", p.Name, r)
		}
	}()

	value, err = p.Call(attemptCtx, q)
	if err == nil || attemptCtx.Err() != context.DeadlineExceeded || ctx.Err() != nil {
		return value, err
	}
	// Some transports report the expired deadline as a plain read error.
	if reason, _ := Classify(err); reason == ReasonUnknown || reason == ReasonConnection {
		return value, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return value, err
}

func logOutcome(logger zerolog.Logger, provider string, f *Failure, elapsed time.Duration) {
	if f == nil {
		logger.Debug().
			Str("provider", provider).
			Str("outcome", "success").
			Dur("duration", elapsed).
			Msg("provider call")
		return
	}
	ev := logger.Warn().
		Str("provider", provider).
		Str("outcome", "failure").
		Str("reason", string(f.Reason)).
		Dur("duration", elapsed)
	if f.Status != 0 {
		ev = ev.Int("status", f.Status)
	}
	ev.Err(f.Err).Msg("provider call")
}

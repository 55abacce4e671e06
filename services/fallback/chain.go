package fallback

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

var errNotAttempted = errors.New("not attempted: request cancelled")

// Chain is the ordered provider list for one capability. The order is the
// priority: the first provider to succeed wins and later ones are not called.
// A Chain is built once and never mutated.
type Chain[Q, T any] struct {
	capability string
	providers  []Provider[Q, T]
	logger     zerolog.Logger
}

// NewChain copies providers into an immutable chain for capability.
func NewChain[Q, T any](capability string, logger zerolog.Logger, providers ...Provider[Q, T]) *Chain[Q, T] {
	ps := make([]Provider[Q, T], len(providers))
	copy(ps, providers)
	return &Chain[Q, T]{
		capability: capability,
		providers:  ps,
		logger:     logger.With().Str("capability", capability).Logger(),
	}
}

// Capability returns the capability name the chain serves.
func (c *Chain[Q, T]) Capability() string { return c.capability }

// Providers returns the provider names in priority order.
func (c *Chain[Q, T]) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name)
	}
	return names
}

// Len returns the number of providers in the chain.
func (c *Chain[Q, T]) Len() int { return len(c.providers) }

// Resolve walks the providers in order and returns the first success. When
// every provider fails the result is an aggregated failure listing each
// provider's failure in order. If ctx is done before a provider is reached,
// that provider and the ones after it are recorded as not attempted.
func (c *Chain[Q, T]) Resolve(ctx context.Context, q Q) Result[T] {
	causes := make([]Failure, 0, len(c.providers))

	for i, p := range c.providers {
		if ctx.Err() != nil {
			for _, rest := range c.providers[i:] {
				causes = append(causes, Failure{Provider: rest.Name, Reason: ReasonUnknown, Err: errNotAttempted})
			}
			break
		}

		res := Call(ctx, p, q, c.logger)
		if res.OK() {
			if i > 0 {
				c.logger.Info().
					Str("provider", p.Name).
					Int("position", i).
					Msg("resolved by fallback provider")
			}
			return res
		}
		causes = append(causes, *res.Failure)
	}

	f := aggregate(c.capability, causes)
	c.logger.Warn().
		Str("reason", string(f.Reason)).
		Int("providers", len(c.providers)).
		Msg("all providers failed")
	return Fail[T](f)
}

package notify

import (
	"context"
	"errors"
	"time"

	"github.com/baechuer/property-recs/internal/domain"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Breaker stops hammering a failing notifier. Once open, deliveries fail fast
// with a TemporaryError until the open timeout elapses.
type Breaker struct {
	next domain.Notifier
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreaker(next domain.Notifier, maxFailures int, openTimeout time.Duration, lg zerolog.Logger) *Breaker {
	lg = lg.With().Str("component", "notifier_breaker").Logger()
	threshold := uint32(max(maxFailures, 1))

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "notifier",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// a malformed batch says nothing about the transport
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn().Str("from", from.String()).Str("to", to.String()).Msg("breaker state change")
		},
	})
	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) Deliver(ctx context.Context, batch domain.RecommendationBatch) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Deliver(ctx, batch)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return TemporaryError{Err: err}
	}
	return err
}

func (b *Breaker) State() string { return b.cb.State().String() }

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/baechuer/property-recs/internal/domain"
	"github.com/baechuer/property-recs/internal/metrics"
	"github.com/rs/zerolog"
)

type IdempotencyStore interface {
	// Seen returns true if key already marked as sent.
	Seen(ctx context.Context, key string) (bool, error)

	// MarkSent marks key as sent with TTL. An existing key counts as success.
	MarkSent(ctx context.Context, key string, ttl time.Duration) error
}

// Idempotent delivers each user's batch at most once per UTC day, so a
// restart inside the same day does not mail users twice.
type Idempotent struct {
	next  domain.Notifier
	store IdempotencyStore
	ttl   time.Duration
	lg    zerolog.Logger
}

func NewIdempotent(next domain.Notifier, store IdempotencyStore, ttl time.Duration, lg zerolog.Logger) *Idempotent {
	return &Idempotent{
		next:  next,
		store: store,
		ttl:   ttl,
		lg:    lg.With().Str("component", "idempotent_notifier").Logger(),
	}
}

// DeliveryKey is the per-user, per-day marker for a sent batch.
func DeliveryKey(b domain.RecommendationBatch) string {
	return fmt.Sprintf("recs:sent:%d:%s", b.UserID, b.GeneratedAt.UTC().Format(time.DateOnly))
}

func (n *Idempotent) Deliver(ctx context.Context, b domain.RecommendationBatch) error {
	key := DeliveryKey(b)

	seen, err := n.store.Seen(ctx, key)
	if err != nil {
		metrics.RecordDelivery("error")
		return TemporaryError{Err: err}
	}
	if seen {
		metrics.RecordDelivery("duplicate")
		n.lg.Info().Int64("user_id", b.UserID).Str("key", key).Msg("idempotent skip (already sent)")
		return nil
	}

	if err := n.next.Deliver(ctx, b); err != nil {
		metrics.RecordDelivery("failed")
		return err
	}
	metrics.RecordDelivery("delivered")

	if err := n.store.MarkSent(ctx, key, n.ttl); err != nil {
		n.lg.Warn().Err(err).Str("key", key).Msg("idempotency mark failed (send already succeeded)")
	}
	return nil
}

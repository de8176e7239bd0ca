package notify

import (
	"context"

	"github.com/baechuer/property-recs/internal/domain"
	"github.com/rs/zerolog"
)

// LogNotifier writes batches to the log instead of sending them. Used in dev.
type LogNotifier struct {
	lg zerolog.Logger
}

func NewLogNotifier(lg zerolog.Logger) *LogNotifier {
	return &LogNotifier{lg: lg.With().Str("component", "log_notifier").Logger()}
}

func (n *LogNotifier) Deliver(_ context.Context, b domain.RecommendationBatch) error {
	ids := make([]int64, len(b.Listings))
	for i, l := range b.Listings {
		ids[i] = l.ID
	}
	n.lg.Info().
		Str("run_id", b.RunID).
		Int64("user_id", b.UserID).
		Str("recipient", b.Recipient).
		Str("display_name", b.DisplayName).
		Ints64("listing_ids", ids).
		Msg("recommendations ready")
	return nil
}

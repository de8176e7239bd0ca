package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/baechuer/property-recs/internal/domain"
)

// ViewDedupGuard decides whether a view is new. A view is a duplicate when the
// same listing was viewed inside the window from the same source address, or
// by the same user when authenticated.
type ViewDedupGuard interface {
	ShouldRecordView(ctx context.Context, listingID int64, userID *int64, sourceAddress string) (bool, error)
	// Release undoes a positive ShouldRecordView whose records were not written.
	Release(ctx context.Context, listingID int64, userID *int64, sourceAddress string) error
}

// StoreGuard answers from the activity records already persisted.
type StoreGuard struct {
	activity domain.ActivityStore
	window   time.Duration
	now      func() time.Time
}

func NewStoreGuard(activity domain.ActivityStore, window time.Duration) *StoreGuard {
	return &StoreGuard{activity: activity, window: window, now: time.Now}
}

func (g *StoreGuard) ShouldRecordView(ctx context.Context, listingID int64, userID *int64, sourceAddress string) (bool, error) {
	viewer := domain.Viewer{UserID: userID, SourceAddress: sourceAddress}
	seen, err := g.activity.HasRecentView(ctx, listingID, viewer, g.now().Add(-g.window))
	if err != nil {
		return false, fmt.Errorf("recent view lookup: %w", err)
	}
	return !seen, nil
}

// Release is a no-op: the store guard holds no claim beyond the records.
func (g *StoreGuard) Release(context.Context, int64, *int64, string) error { return nil }

// ViewUnits is how many activity records one unique view produces.
// Promoted listings count double.
func ViewUnits(l domain.Listing) int {
	if l.Promoted {
		return 2
	}
	return 1
}

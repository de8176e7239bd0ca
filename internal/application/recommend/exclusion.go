package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/baechuer/property-recs/internal/domain"
)

// ExclusionBuilder computes the ids a user must never be shown:
// everything viewed since the window start plus every favorite.
type ExclusionBuilder struct {
	activity domain.ActivityStore
}

func NewExclusionBuilder(activity domain.ActivityStore) *ExclusionBuilder {
	return &ExclusionBuilder{activity: activity}
}

func (b *ExclusionBuilder) Build(ctx context.Context, userID int64, since time.Time) (domain.ExclusionSet, error) {
	viewed, err := b.activity.ViewedListingIDs(ctx, userID, since)
	if err != nil {
		return domain.ExclusionSet{}, fmt.Errorf("viewed listings of user %d: %w", userID, err)
	}
	favs, err := b.activity.FavoritedListingIDs(ctx, userID)
	if err != nil {
		return domain.ExclusionSet{}, fmt.Errorf("favorites of user %d: %w", userID, err)
	}
	return domain.NewExclusionSet(viewed, favs), nil
}

package domain

import (
	"context"
	"time"

	"github.com/baechuer/property-recs/internal/geo"
	"github.com/shopspring/decimal"
)

// ListingStore reads listing snapshots. Every query except ListingByID is
// limited to approved listings and skips ids in excluded.
type ListingStore interface {
	ListingByID(ctx context.Context, id int64) (Listing, error)
	CategoriesOf(ctx context.Context, listingID int64) ([]int64, error)
	ListingsByCategory(ctx context.Context, categoryIDs []int64, excluded ExclusionSet, limit int) ([]Listing, error)
	ListingsByPriceRange(ctx context.Context, min, max decimal.Decimal, excluded ExclusionSet, limit int) ([]Listing, error)
	ListingsByBoundingBox(ctx context.Context, box geo.Box, excluded ExclusionSet, limit int) ([]Listing, error)
	// ListingsNearest is ListingsByBoundingBox ordered by approximate distance
	// from center (geo.ApproxDistanceSq) instead of promoted/newest.
	ListingsNearest(ctx context.Context, center geo.Point, box geo.Box, excluded ExclusionSet, limit int) ([]Listing, error)
}

type ActivityStore interface {
	// UsersWithActivitySince returns users with at least one view at or after since,
	// each with up to perUser distinct most recently viewed listings.
	UsersWithActivitySince(ctx context.Context, since time.Time, perUser int) ([]ActiveUser, error)
	FavoritedListingIDs(ctx context.Context, userID int64) ([]int64, error)
	ViewedListingIDs(ctx context.Context, userID int64, since time.Time) ([]int64, error)

	// HasRecentView reports whether a view of listingID exists at or after
	// since from the same address, or from the same user when authenticated.
	HasRecentView(ctx context.Context, listingID int64, viewer Viewer, since time.Time) (bool, error)
	RecordViews(ctx context.Context, records []ActivityRecord) error
}

// Notifier delivers a ranked batch out of band.
type Notifier interface {
	Deliver(ctx context.Context, batch RecommendationBatch) error
}

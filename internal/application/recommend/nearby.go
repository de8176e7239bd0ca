package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/baechuer/property-recs/internal/domain"
)

const SimilarLimit = 10

// SimilarListings answers "what else is around this listing" for a single
// approved listing, using the refined geo policy.
type SimilarListings struct {
	store domain.ListingStore
	geo   *GeoRadiusMatch
}

// NewSimilarListings builds the detail-page lookup. prefetch <= 0 keeps the
// policy default.
func NewSimilarListings(store domain.ListingStore, prefetch int) *SimilarListings {
	policy := SimilarListingsGeo
	if prefetch > 0 {
		policy.Prefetch = prefetch
	}
	return &SimilarListings{store: store, geo: NewGeoRadiusMatch(store, policy)}
}

// Find returns up to 10 approved listings within 10 km of listingID, nearest
// first. It fails with ErrListingNotFound, ErrListingIneligible or
// ErrMissingCoordinate when the listing cannot seed the lookup.
func (s *SimilarListings) Find(ctx context.Context, listingID int64) ([]domain.NearbyListing, error) {
	ref, err := s.store.ListingByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load listing %d: %w", listingID, err)
	}
	if !ref.Eligible() {
		return nil, domain.ErrListingIneligible
	}
	if !ref.HasLocation() {
		return nil, domain.ErrMissingCoordinate
	}

	return s.geo.Nearby(ctx, ref, domain.NewExclusionSet([]int64{ref.ID}), SimilarLimit)
}

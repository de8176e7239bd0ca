package recommend

import (
	"context"
	"fmt"
	"slices"

	"github.com/baechuer/property-recs/internal/domain"
	"github.com/baechuer/property-recs/internal/geo"
	"github.com/shopspring/decimal"
)

const (
	CategoryLimit = 5
	PriceLimit    = 3
	GeoLimit      = 3
)

var (
	bandLow  = decimal.RequireFromString("0.7")
	bandHigh = decimal.RequireFromString("1.3")
)

// CandidateSource finds listings similar to ref by one signal. Results are
// approved, never in excluded, never ref itself, and at most limit long.
type CandidateSource interface {
	Signal() domain.Signal
	Find(ctx context.Context, ref domain.Listing, excluded domain.ExclusionSet, limit int) ([]domain.Listing, error)
}

var (
	_ CandidateSource = (*CategoryMatch)(nil)
	_ CandidateSource = (*PriceBandMatch)(nil)
	_ CandidateSource = (*GeoRadiusMatch)(nil)
)

// CategoryMatch returns listings sharing at least one category with ref.
type CategoryMatch struct {
	store domain.ListingStore
}

func NewCategoryMatch(store domain.ListingStore) *CategoryMatch {
	return &CategoryMatch{store: store}
}

func (s *CategoryMatch) Signal() domain.Signal { return domain.SignalCategory }

func (s *CategoryMatch) Find(ctx context.Context, ref domain.Listing, excluded domain.ExclusionSet, limit int) ([]domain.Listing, error) {
	cats := ref.CategoryIDs
	if len(cats) == 0 {
		var err error
		cats, err = s.store.CategoriesOf(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("categories of listing %d: %w", ref.ID, err)
		}
	}
	if len(cats) == 0 {
		return nil, nil
	}

	out, err := s.store.ListingsByCategory(ctx, cats, excluded, limit)
	if err != nil {
		return nil, fmt.Errorf("listings by category: %w", err)
	}
	return admit(out, ref.ID, excluded, limit), nil
}

// PriceBandMatch returns listings priced within [0.7p, 1.3p] of ref.
type PriceBandMatch struct {
	store domain.ListingStore
}

func NewPriceBandMatch(store domain.ListingStore) *PriceBandMatch {
	return &PriceBandMatch{store: store}
}

func (s *PriceBandMatch) Signal() domain.Signal { return domain.SignalPrice }

func (s *PriceBandMatch) Find(ctx context.Context, ref domain.Listing, excluded domain.ExclusionSet, limit int) ([]domain.Listing, error) {
	if !ref.HasPrice() {
		return nil, nil
	}
	lo, hi := PriceBand(*ref.Price)

	out, err := s.store.ListingsByPriceRange(ctx, lo, hi, excluded, limit)
	if err != nil {
		return nil, fmt.Errorf("listings by price range: %w", err)
	}
	return admit(out, ref.ID, excluded, limit), nil
}

// PriceBand returns the inclusive band used for price similarity.
func PriceBand(p decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return p.Mul(bandLow), p.Mul(bandHigh)
}

// GeoPolicy describes one way of matching by proximity.
type GeoPolicy struct {
	Name     string
	RadiusKm float64
	// Refine applies exact haversine filtering after the bounding box and
	// orders by ascending distance. Without it the store order is kept.
	Refine bool
	// Prefetch bounds the nearest-first bounding-box query when refining.
	Prefetch int
}

var (
	// RecommendationGeo feeds the sweep: bounding box only.
	RecommendationGeo = GeoPolicy{Name: "recommendation", RadiusKm: 5}

	// SimilarListingsGeo backs the listing detail page.
	SimilarListingsGeo = GeoPolicy{Name: "similar-listings", RadiusKm: 10, Refine: true, Prefetch: 500}
)

// GeoRadiusMatch returns listings near ref according to its policy.
type GeoRadiusMatch struct {
	store  domain.ListingStore
	policy GeoPolicy
}

func NewGeoRadiusMatch(store domain.ListingStore, policy GeoPolicy) *GeoRadiusMatch {
	return &GeoRadiusMatch{store: store, policy: policy}
}

func (s *GeoRadiusMatch) Signal() domain.Signal { return domain.SignalGeo }

func (s *GeoRadiusMatch) Policy() GeoPolicy { return s.policy }

func (s *GeoRadiusMatch) Find(ctx context.Context, ref domain.Listing, excluded domain.ExclusionSet, limit int) ([]domain.Listing, error) {
	nearby, err := s.Nearby(ctx, ref, excluded, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Listing, len(nearby))
	for i, n := range nearby {
		out[i] = n.Listing
	}
	return out, nil
}

// Nearby is Find with each listing's distance from ref attached, rounded to
// two decimals.
func (s *GeoRadiusMatch) Nearby(ctx context.Context, ref domain.Listing, excluded domain.ExclusionSet, limit int) ([]domain.NearbyListing, error) {
	if !ref.HasLocation() || limit <= 0 {
		return nil, nil
	}
	center := *ref.Location
	box := geo.BoxAround(center, s.policy.RadiusKm)

	var (
		found []domain.Listing
		err   error
	)
	fetch := limit
	if s.policy.Refine {
		// nearest-first prefetch so rank order never decides what gets refined
		fetch = max(s.policy.Prefetch, limit)
		found, err = s.store.ListingsNearest(ctx, center, box, excluded, fetch)
	} else {
		found, err = s.store.ListingsByBoundingBox(ctx, box, excluded, fetch)
	}
	if err != nil {
		return nil, fmt.Errorf("listings by bounding box: %w", err)
	}

	found = admit(found, ref.ID, excluded, fetch)
	out := make([]domain.NearbyListing, 0, len(found))
	for _, l := range found {
		if !l.HasLocation() || !box.Contains(*l.Location) {
			continue
		}
		d := geo.Distance(center, *l.Location)
		if s.policy.Refine && d > s.policy.RadiusKm {
			continue
		}
		out = append(out, domain.NearbyListing{Listing: l, DistanceKm: d})
	}

	if s.policy.Refine {
		slices.SortStableFunc(out, func(a, b domain.NearbyListing) int {
			switch {
			case a.DistanceKm < b.DistanceKm:
				return -1
			case a.DistanceKm > b.DistanceKm:
				return 1
			}
			return 0
		})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].DistanceKm = geo.RoundKm(out[i].DistanceKm)
	}
	return out, nil
}

// admit re-checks store output: approved only, not excluded, not the
// reference itself, capped at limit.
func admit(in []domain.Listing, refID int64, excluded domain.ExclusionSet, limit int) []domain.Listing {
	out := make([]domain.Listing, 0, min(len(in), max(limit, 0)))
	for _, l := range in {
		if len(out) >= limit {
			break
		}
		if !l.Eligible() || l.ID == refID || excluded.Contains(l.ID) {
			continue
		}
		out = append(out, l)
	}
	return out
}

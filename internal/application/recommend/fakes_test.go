package recommend

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/baechuer/property-recs/internal/domain"
	"github.com/baechuer/property-recs/internal/geo"
	"github.com/shopspring/decimal"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type listingOpt func(*domain.Listing)

func price(v int64) listingOpt {
	return func(l *domain.Listing) {
		d := decimal.NewFromInt(v)
		l.Price = &d
	}
}

func cats(ids ...int64) listingOpt {
	return func(l *domain.Listing) { l.CategoryIDs = ids }
}

func at(lat, lon float64) listingOpt {
	return func(l *domain.Listing) { l.Location = &geo.Point{Lat: lat, Lon: lon} }
}

func promoted() listingOpt {
	return func(l *domain.Listing) { l.Promoted = true }
}

func status(s domain.ListingStatus) listingOpt {
	return func(l *domain.Listing) { l.Status = s }
}

// ageHours makes the listing older than baseTime.
func ageHours(h int) listingOpt {
	return func(l *domain.Listing) { l.CreatedAt = baseTime.Add(-time.Duration(h) * time.Hour) }
}

func listing(id int64, opts ...listingOpt) domain.Listing {
	l := domain.Listing{ID: id, Status: domain.StatusApproved, CreatedAt: baseTime}
	for _, o := range opts {
		o(&l)
	}
	return l
}

// fakeListingStore filters and orders like the SQL store does.
type fakeListingStore struct {
	mu       sync.Mutex
	listings []domain.Listing
	calls    map[string]int
	err      error
}

func newFakeListingStore(ls ...domain.Listing) *fakeListingStore {
	return &fakeListingStore{listings: ls, calls: map[string]int{}}
}

func (f *fakeListingStore) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeListingStore) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeListingStore) ListingByID(_ context.Context, id int64) (domain.Listing, error) {
	f.hit("ListingByID")
	if f.err != nil {
		return domain.Listing{}, f.err
	}
	for _, l := range f.listings {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.Listing{}, domain.ErrListingNotFound
}

func (f *fakeListingStore) CategoriesOf(_ context.Context, id int64) ([]int64, error) {
	f.hit("CategoriesOf")
	if f.err != nil {
		return nil, f.err
	}
	for _, l := range f.listings {
		if l.ID == id {
			return l.CategoryIDs, nil
		}
	}
	return nil, nil
}

func (f *fakeListingStore) query(excluded domain.ExclusionSet, limit int, keep func(domain.Listing) bool) []domain.Listing {
	var out []domain.Listing
	for _, l := range f.listings {
		if l.Eligible() && !excluded.Contains(l.ID) && keep(l) {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b domain.Listing) int {
		switch {
		case a.RanksBefore(b):
			return -1
		case b.RanksBefore(a):
			return 1
		}
		return 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeListingStore) ListingsByCategory(_ context.Context, categoryIDs []int64, excluded domain.ExclusionSet, limit int) ([]domain.Listing, error) {
	f.hit("ListingsByCategory")
	if f.err != nil {
		return nil, f.err
	}
	return f.query(excluded, limit, func(l domain.Listing) bool {
		for _, c := range l.CategoryIDs {
			if slices.Contains(categoryIDs, c) {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeListingStore) ListingsByPriceRange(_ context.Context, lo, hi decimal.Decimal, excluded domain.ExclusionSet, limit int) ([]domain.Listing, error) {
	f.hit("ListingsByPriceRange")
	if f.err != nil {
		return nil, f.err
	}
	return f.query(excluded, limit, func(l domain.Listing) bool {
		return l.Price != nil && l.Price.GreaterThanOrEqual(lo) && l.Price.LessThanOrEqual(hi)
	}), nil
}

func (f *fakeListingStore) ListingsByBoundingBox(_ context.Context, box geo.Box, excluded domain.ExclusionSet, limit int) ([]domain.Listing, error) {
	f.hit("ListingsByBoundingBox")
	if f.err != nil {
		return nil, f.err
	}
	return f.query(excluded, limit, func(l domain.Listing) bool {
		return l.Location != nil && box.Contains(*l.Location)
	}), nil
}

func (f *fakeListingStore) ListingsNearest(_ context.Context, center geo.Point, box geo.Box, excluded domain.ExclusionSet, limit int) ([]domain.Listing, error) {
	f.hit("ListingsNearest")
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Listing
	for _, l := range f.listings {
		if l.Eligible() && !excluded.Contains(l.ID) && l.Location != nil && box.Contains(*l.Location) {
			out = append(out, l)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Listing) int {
		da, db := geo.ApproxDistanceSq(center, *a.Location), geo.ApproxDistanceSq(center, *b.Location)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeActivityStore struct {
	viewed    map[int64][]int64
	favorites map[int64][]int64
	err       error
}

func (f *fakeActivityStore) UsersWithActivitySince(context.Context, time.Time, int) ([]domain.ActiveUser, error) {
	return nil, nil
}

func (f *fakeActivityStore) FavoritedListingIDs(_ context.Context, userID int64) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.favorites[userID], nil
}

func (f *fakeActivityStore) ViewedListingIDs(_ context.Context, userID int64, _ time.Time) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.viewed[userID], nil
}

func (f *fakeActivityStore) HasRecentView(context.Context, int64, domain.Viewer, time.Time) (bool, error) {
	return false, nil
}

func (f *fakeActivityStore) RecordViews(context.Context, []domain.ActivityRecord) error {
	return nil
}

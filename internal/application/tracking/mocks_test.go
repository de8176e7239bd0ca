package tracking

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/property-recs/internal/domain"
	"github.com/baechuer/property-recs/internal/geo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockListings struct{ mock.Mock }

func (m *MockListings) ListingByID(ctx context.Context, id int64) (domain.Listing, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Listing), args.Error(1)
}
func (m *MockListings) CategoriesOf(context.Context, int64) ([]int64, error) { return nil, nil }
func (m *MockListings) ListingsByCategory(context.Context, []int64, domain.ExclusionSet, int) ([]domain.Listing, error) {
	return nil, nil
}
func (m *MockListings) ListingsByPriceRange(context.Context, decimal.Decimal, decimal.Decimal, domain.ExclusionSet, int) ([]domain.Listing, error) {
	return nil, nil
}
func (m *MockListings) ListingsByBoundingBox(context.Context, geo.Box, domain.ExclusionSet, int) ([]domain.Listing, error) {
	return nil, nil
}
func (m *MockListings) ListingsNearest(context.Context, geo.Point, geo.Box, domain.ExclusionSet, int) ([]domain.Listing, error) {
	return nil, nil
}

type MockGuard struct{ mock.Mock }

func (m *MockGuard) ShouldRecordView(ctx context.Context, listingID int64, userID *int64, addr string) (bool, error) {
	args := m.Called(ctx, listingID, userID, addr)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuard) Release(ctx context.Context, listingID int64, userID *int64, addr string) error {
	args := m.Called(ctx, listingID, userID, addr)
	return args.Error(0)
}

// memActivity keeps views in memory and answers HasRecentView like the SQL store.
type memActivity struct {
	mu      sync.Mutex
	records []domain.ActivityRecord
	failOn  error
	// failures is how many RecordViews calls fail with failOn before succeeding; 0 fails forever
	failures int
	calls    int
}

func (s *memActivity) UsersWithActivitySince(context.Context, time.Time, int) ([]domain.ActiveUser, error) {
	return nil, nil
}
func (s *memActivity) FavoritedListingIDs(context.Context, int64) ([]int64, error) { return nil, nil }
func (s *memActivity) ViewedListingIDs(context.Context, int64, time.Time) ([]int64, error) {
	return nil, nil
}

func (s *memActivity) HasRecentView(_ context.Context, listingID int64, v domain.Viewer, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	addr := strings.TrimSpace(v.SourceAddress)
	for _, r := range s.records {
		if r.ListingID != listingID || r.ViewedAt.Before(since) {
			continue
		}
		if addr != "" && r.SourceAddress == addr {
			return true, nil
		}
		if v.Authenticated() && r.UserID != nil && *r.UserID == *v.UserID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memActivity) RecordViews(_ context.Context, records []domain.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn != nil && (s.failures == 0 || s.calls <= s.failures) {
		return s.failOn
	}
	s.records = append(s.records, records...)
	return nil
}

func (s *memActivity) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

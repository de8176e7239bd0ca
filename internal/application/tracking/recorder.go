package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baechuer/property-recs/internal/domain"
	"github.com/baechuer/property-recs/internal/metrics"
	"github.com/rs/zerolog"
)

// Result reports what a Track call did.
type Result struct {
	Recorded bool
	Units    int
}

// Recorder turns a listing view into activity records, gated by the guard.
type Recorder struct {
	listings domain.ListingStore
	activity domain.ActivityStore
	guard    ViewDedupGuard
	now      func() time.Time
	lg       zerolog.Logger
}

func NewRecorder(listings domain.ListingStore, activity domain.ActivityStore, guard ViewDedupGuard, lg zerolog.Logger) *Recorder {
	return &Recorder{
		listings: listings,
		activity: activity,
		guard:    guard,
		now:      time.Now,
		lg:       lg.With().Str("component", "view_recorder").Logger(),
	}
}

// Track records a view of listingID. userID is nil for anonymous visitors.
func (r *Recorder) Track(ctx context.Context, listingID int64, userID *int64, sourceAddress, userAgent string) (Result, error) {
	l, err := r.listings.ListingByID(ctx, listingID)
	if err != nil {
		if !errors.Is(err, domain.ErrListingNotFound) {
			metrics.RecordView("error")
		}
		return Result{}, err
	}
	if !l.Eligible() {
		return Result{}, domain.ErrListingIneligible
	}

	ok, err := r.guard.ShouldRecordView(ctx, listingID, userID, sourceAddress)
	if err != nil {
		metrics.RecordView("error")
		return Result{}, err
	}
	if !ok {
		metrics.RecordView("duplicate")
		return Result{}, nil
	}

	units := ViewUnits(l)
	at := r.now().UTC()
	records := make([]domain.ActivityRecord, units)
	for i := range records {
		records[i] = domain.ActivityRecord{
			UserID:        userID,
			ListingID:     listingID,
			ViewedAt:      at,
			SourceAddress: sourceAddress,
			UserAgent:     userAgent,
		}
	}
	if err := r.activity.RecordViews(ctx, records); err != nil {
		metrics.RecordView("error")
		if rerr := r.guard.Release(context.WithoutCancel(ctx), listingID, userID, sourceAddress); rerr != nil {
			r.lg.Warn().Err(rerr).Int64("listing_id", listingID).Msg("release view claim")
		}
		return Result{}, fmt.Errorf("record views: %w", err)
	}

	metrics.RecordView("recorded")
	r.lg.Debug().
		Int64("listing_id", listingID).
		Bool("authenticated", userID != nil).
		Int("units", units).
		Msg("view recorded")
	return Result{Recorded: true, Units: units}, nil
}

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/baechuer/property-recs/internal/domain"
	"github.com/baechuer/property-recs/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// MaxReferences is how many recently viewed listings seed one user's run.
const MaxReferences = 3

type plan struct {
	source CandidateSource
	limit  int
}

// Engine runs the per-user pipeline: exclusions, candidates from every
// signal for every reference listing, then Merge.
type Engine struct {
	exclusions *ExclusionBuilder
	plans      []plan
	cap        int
	lg         zerolog.Logger
}

func NewEngine(listings domain.ListingStore, activity domain.ActivityStore, lg zerolog.Logger) *Engine {
	return &Engine{
		exclusions: NewExclusionBuilder(activity),
		plans: []plan{
			{source: NewCategoryMatch(listings), limit: CategoryLimit},
			{source: NewPriceBandMatch(listings), limit: PriceLimit},
			{source: NewGeoRadiusMatch(listings, RecommendationGeo), limit: GeoLimit},
		},
		cap: ResultCap,
		lg:  lg.With().Str("component", "recommend_engine").Logger(),
	}
}

// Recommend returns the ranked candidates for user. since is the start of
// the activity window used for the viewed-listing exclusions.
func (e *Engine) Recommend(ctx context.Context, user domain.ActiveUser, since time.Time) ([]domain.CandidateResult, error) {
	start := time.Now()
	defer func() { metrics.RecordPipeline(time.Since(start)) }()

	refs := user.RecentListings
	if len(refs) > MaxReferences {
		refs = refs[:MaxReferences]
	}
	if len(refs) == 0 {
		return nil, nil
	}

	excluded, err := e.exclusions.Build(ctx, user.UserID, since)
	if err != nil {
		return nil, err
	}

	// One slot per (reference, signal); queries run concurrently but the
	// merge reads slots in logical order.
	slots := make([][]domain.CandidateResult, len(refs)*len(e.plans))
	g, gctx := errgroup.WithContext(ctx)
	for ri, ref := range refs {
		for pi, p := range e.plans {
			slot := ri*len(e.plans) + pi
			g.Go(func() error {
				found, err := p.source.Find(gctx, ref, excluded, p.limit)
				if err != nil {
					return fmt.Errorf("%s candidates for listing %d: %w", p.source.Signal(), ref.ID, err)
				}
				res := make([]domain.CandidateResult, len(found))
				for i, l := range found {
					res[i] = domain.CandidateResult{Listing: l, Signal: p.source.Signal(), ReferenceID: ref.ID}
				}
				slots[slot] = res
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, s := range slots {
		metrics.RecordCandidates(string(e.plans[i%len(e.plans)].source.Signal()), len(s))
	}

	ranked := Merge(slots, e.cap)
	e.lg.Debug().
		Int64("user_id", user.UserID).
		Int("references", len(refs)).
		Int("excluded", excluded.Len()).
		Int("ranked", len(ranked)).
		Msg("pipeline done")
	return ranked, nil
}

package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/property-recs/internal/domain"
)

type fakeUsers struct {
	mu    sync.Mutex
	users []domain.ActiveUser
	err   error
	calls int
	since []time.Time
}

func (f *fakeUsers) UsersWithActivitySince(_ context.Context, since time.Time, perUser int) ([]domain.ActiveUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.since = append(f.since, since)
	return f.users, f.err
}

func (f *fakeUsers) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeEngine returns one candidate per user unless told otherwise.
type fakeEngine struct {
	fail   map[int64]error
	panics map[int64]bool
	empty  map[int64]bool
}

func (f *fakeEngine) Recommend(_ context.Context, u domain.ActiveUser, _ time.Time) ([]domain.CandidateResult, error) {
	if f.panics[u.UserID] {
		panic("bad activity record")
	}
	if err := f.fail[u.UserID]; err != nil {
		return nil, err
	}
	if f.empty[u.UserID] {
		return nil, nil
	}
	return []domain.CandidateResult{{Listing: domain.Listing{ID: 1000 + u.UserID}, Signal: domain.SignalCategory}}, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	batches []domain.RecommendationBatch
	ctxErrs []error
	err     map[int64]error
	onCall  func(domain.RecommendationBatch)
}

func (f *fakeNotifier) Deliver(ctx context.Context, b domain.RecommendationBatch) error {
	if f.onCall != nil {
		f.onCall(b)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if err := f.err[b.UserID]; err != nil {
		return err
	}
	f.batches = append(f.batches, b)
	return nil
}

func (f *fakeNotifier) delivered() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.batches))
	for i, b := range f.batches {
		out[i] = b.UserID
	}
	return out
}

func user(id int64) domain.ActiveUser {
	return domain.ActiveUser{
		UserID:         id,
		Email:          "user@example.com",
		RecentListings: []domain.Listing{{ID: id * 10}},
	}
}

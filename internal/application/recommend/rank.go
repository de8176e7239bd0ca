package recommend

import (
	"slices"

	"github.com/baechuer/property-recs/internal/domain"
)

const ResultCap = 10

// Merge flattens candidate lists in the order given, keeps the first
// occurrence of each listing id, sorts by promoted then newest, and
// truncates to limit. The caller supplies lists in logical order
// (reference recency, then signal) so the kept signal is deterministic.
func Merge(lists [][]domain.CandidateResult, limit int) []domain.CandidateResult {
	seen := make(map[int64]struct{})
	var out []domain.CandidateResult
	for _, list := range lists {
		for _, c := range list {
			if _, dup := seen[c.Listing.ID]; dup {
				continue
			}
			seen[c.Listing.ID] = struct{}{}
			out = append(out, c)
		}
	}

	slices.SortStableFunc(out, func(a, b domain.CandidateResult) int {
		switch {
		case a.Listing.RanksBefore(b.Listing):
			return -1
		case b.Listing.RanksBefore(a.Listing):
			return 1
		}
		return 0
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Listings strips the signal annotations.
func Listings(cs []domain.CandidateResult) []domain.Listing {
	out := make([]domain.Listing, len(cs))
	for i, c := range cs {
		out[i] = c.Listing
	}
	return out
}

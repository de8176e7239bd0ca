package domain

import "time"

type Signal string

const (
	SignalCategory Signal = "category"
	SignalPrice    Signal = "price"
	SignalGeo      Signal = "geo"
)

// Signals is the fixed logical order used when merging candidates.
var Signals = []Signal{SignalCategory, SignalPrice, SignalGeo}

// CandidateResult pairs a listing with the signal and reference that produced it.
type CandidateResult struct {
	Listing     Listing
	Signal      Signal
	ReferenceID int64
}

// RecommendationBatch is the ranked output for one user in one run.
type RecommendationBatch struct {
	RunID       string
	UserID      int64
	Recipient   string
	DisplayName string
	Listings    []Listing
	GeneratedAt time.Time
}

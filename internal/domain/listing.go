package domain

import (
	"time"

	"github.com/baechuer/property-recs/internal/geo"
	"github.com/shopspring/decimal"
)

type ListingStatus string

const (
	StatusPending  ListingStatus = "pending"
	StatusApproved ListingStatus = "approved"
	StatusRejected ListingStatus = "rejected"
	StatusHidden   ListingStatus = "hidden"
)

// Listing is a read-only snapshot of a property listing.
// Price and Location are nil when the listing does not carry them.
type Listing struct {
	ID          int64
	Title       string
	Address     string
	CategoryIDs []int64
	Price       *decimal.Decimal
	Location    *geo.Point
	Promoted    bool
	Status      ListingStatus
	CreatedAt   time.Time
}

func (l Listing) Eligible() bool { return l.Status == StatusApproved }

func (l Listing) HasPrice() bool    { return l.Price != nil }
func (l Listing) HasLocation() bool { return l.Location != nil }

// RanksBefore reports whether l sorts ahead of o: promoted first, then newest.
// ID descending breaks exact ties so the order is total.
func (l Listing) RanksBefore(o Listing) bool {
	if l.Promoted != o.Promoted {
		return l.Promoted
	}
	if !l.CreatedAt.Equal(o.CreatedAt) {
		return l.CreatedAt.After(o.CreatedAt)
	}
	return l.ID > o.ID
}

// NearbyListing is a listing annotated with its distance from a reference point.
type NearbyListing struct {
	Listing    Listing
	DistanceKm float64
}

package domain

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// ActivityRecord is one tracked user-listing view. UserID is nil for
// anonymous visitors.
type ActivityRecord struct {
	UserID        *int64
	ListingID     int64
	ViewedAt      time.Time
	SourceAddress string
	UserAgent     string
}

// Viewer identifies who produced a view: an authenticated user, a source
// address, or both.
type Viewer struct {
	UserID        *int64
	SourceAddress string
}

func (v Viewer) Authenticated() bool { return v.UserID != nil }

// Keys are the identities a view is deduplicated on: "a:<address>" when an
// address is known and "u:<id>" when authenticated. A view is a duplicate
// when any of them already viewed the listing inside the window.
func (v Viewer) Keys() []string {
	var keys []string
	if addr := strings.TrimSpace(v.SourceAddress); addr != "" {
		keys = append(keys, "a:"+addr)
	}
	if v.Authenticated() {
		keys = append(keys, "u:"+strconv.FormatInt(*v.UserID, 10))
	}
	return keys
}

// ActiveUser is a user with activity inside the sweep window.
type ActiveUser struct {
	UserID         int64
	Email          string
	FullName       string
	UserName       string
	RecentListings []Listing // most recent first, distinct, at most 3
	LastActivityAt time.Time
}

const defaultDisplayName = "Customer"

func (u ActiveUser) DisplayName() string {
	if n := strings.TrimSpace(u.FullName); n != "" {
		return n
	}
	if n := strings.TrimSpace(u.UserName); n != "" {
		return n
	}
	return defaultDisplayName
}

func (u ActiveUser) HasRecipient() bool {
	return strings.TrimSpace(u.Email) != ""
}

// ExclusionSet holds listing ids that must never be recommended to one user
// in one run.
type ExclusionSet struct {
	ids map[int64]struct{}
}

func NewExclusionSet(groups ...[]int64) ExclusionSet {
	s := ExclusionSet{ids: make(map[int64]struct{})}
	for _, g := range groups {
		for _, id := range g {
			s.ids[id] = struct{}{}
		}
	}
	return s
}

func (s ExclusionSet) Contains(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

func (s ExclusionSet) Len() int { return len(s.ids) }

// IDs returns the ids in ascending order.
func (s ExclusionSet) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

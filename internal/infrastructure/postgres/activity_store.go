package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/baechuer/property-recs/internal/domain"
)

type ActivityStore struct {
	db DB
}

func NewActivityStore(db DB) *ActivityStore {
	return &ActivityStore{db: db}
}

var _ domain.ActivityStore = (*ActivityStore)(nil)

// usersWithActivitySQL ranks each user's distinct viewed listings by their
// latest view and keeps the first $2.
var usersWithActivitySQL = `
	WITH recent AS (
		SELECT v.user_id, v.listing_id, MAX(v.viewed_at) AS last_viewed
		FROM listing_views v
		WHERE v.user_id IS NOT NULL AND v.viewed_at >= $1
		GROUP BY v.user_id, v.listing_id
	), ranked AS (
		SELECT r.user_id, r.listing_id, r.last_viewed,
			ROW_NUMBER() OVER (PARTITION BY r.user_id ORDER BY r.last_viewed DESC, r.listing_id DESC) AS rn,
			MAX(r.last_viewed) OVER (PARTITION BY r.user_id) AS last_activity
		FROM recent r
	)
	SELECT u.id, COALESCE(u.email, ''), COALESCE(u.full_name, ''), COALESCE(u.user_name, ''), rk.last_activity,
		` + strings.Join(listingColumns, ", ") + `
	FROM ranked rk
	JOIN users u ON u.id = rk.user_id
	JOIN listings l ON l.id = rk.listing_id
	WHERE rk.rn <= $2
	ORDER BY u.id, rk.rn
`

func (s *ActivityStore) UsersWithActivitySince(ctx context.Context, since time.Time, perUser int) ([]domain.ActiveUser, error) {
	rows, err := s.db.Query(ctx, usersWithActivitySQL, since, perUser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ActiveUser
	for rows.Next() {
		var (
			u domain.ActiveUser
			l domain.Listing
		)
		if err := scanListingInto(rows, &l, &u.UserID, &u.Email, &u.FullName, &u.UserName, &u.LastActivityAt); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].UserID == u.UserID {
			out[n-1].RecentListings = append(out[n-1].RecentListings, l)
			continue
		}
		u.RecentListings = []domain.Listing{l}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *ActivityStore) FavoritedListingIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT listing_id FROM favorites
		WHERE user_id = $1
		ORDER BY listing_id
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

func (s *ActivityStore) ViewedListingIDs(ctx context.Context, userID int64, since time.Time) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT listing_id FROM listing_views
		WHERE user_id = $1 AND viewed_at >= $2
		ORDER BY listing_id
	`, userID, since)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

func (s *ActivityStore) HasRecentView(ctx context.Context, listingID int64, viewer domain.Viewer, since time.Time) (bool, error) {
	var match sq.Or
	if addr := strings.TrimSpace(viewer.SourceAddress); addr != "" {
		match = append(match, sq.Eq{"source_address": addr})
	}
	if viewer.Authenticated() {
		match = append(match, sq.Eq{"user_id": *viewer.UserID})
	}
	if len(match) == 0 {
		return false, nil
	}

	q := psql.Select("1").
		From("listing_views").
		Where(sq.Eq{"listing_id": listingID}).
		Where(sq.GtOrEq{"viewed_at": since}).
		Where(match)
	query, args, err := q.Limit(1).Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build recent view query: %w", err)
	}

	var exists bool
	if err := s.db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *ActivityStore) RecordViews(ctx context.Context, records []domain.ActivityRecord) error {
	if len(records) == 0 {
		return nil
	}
	ins := psql.Insert("listing_views").
		Columns("user_id", "listing_id", "source_address", "user_agent", "viewed_at")
	for _, r := range records {
		ins = ins.Values(r.UserID, r.ListingID, r.SourceAddress, r.UserAgent, r.ViewedAt)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build view insert: %w", err)
	}
	_, err = s.db.Exec(ctx, query, args...)
	return err
}

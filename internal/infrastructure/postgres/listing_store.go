package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/baechuer/property-recs/internal/domain"
	"github.com/baechuer/property-recs/internal/geo"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var listingColumns = []string{
	"l.id",
	"COALESCE(l.title, '')",
	"COALESCE(l.address, '')",
	"l.price::text",
	"l.latitude",
	"l.longitude",
	"l.is_promoted",
	"l.status",
	"l.created_at",
	"ARRAY(SELECT lc.category_id FROM listing_categories lc WHERE lc.listing_id = l.id ORDER BY lc.category_id) AS category_ids",
}

type ListingStore struct {
	db DB
}

func NewListingStore(db DB) *ListingStore {
	return &ListingStore{db: db}
}

var _ domain.ListingStore = (*ListingStore)(nil)

func (s *ListingStore) ListingByID(ctx context.Context, id int64) (domain.Listing, error) {
	query, args, err := psql.Select(listingColumns...).
		From("listings l").
		Where(sq.Eq{"l.id": id}).
		ToSql()
	if err != nil {
		return domain.Listing{}, err
	}

	l, err := scanListing(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, err
}

func (s *ListingStore) CategoriesOf(ctx context.Context, listingID int64) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT category_id FROM listing_categories
		WHERE listing_id = $1
		ORDER BY category_id
	`, listingID)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

func (s *ListingStore) ListingsByCategory(ctx context.Context, categoryIDs []int64, excluded domain.ExclusionSet, limit int) ([]domain.Listing, error) {
	if len(categoryIDs) == 0 || limit <= 0 {
		return nil, nil
	}
	q := candidates(excluded, limit).
		Where("EXISTS (SELECT 1 FROM listing_categories c WHERE c.listing_id = l.id AND c.category_id = ANY(?))", categoryIDs)
	return s.list(ctx, q)
}

func (s *ListingStore) ListingsByPriceRange(ctx context.Context, min, max decimal.Decimal, excluded domain.ExclusionSet, limit int) ([]domain.Listing, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := candidates(excluded, limit).
		Where("l.price IS NOT NULL").
		Where("l.price BETWEEN ?::numeric AND ?::numeric", min.String(), max.String())
	return s.list(ctx, q)
}

func (s *ListingStore) ListingsByBoundingBox(ctx context.Context, box geo.Box, excluded domain.ExclusionSet, limit int) ([]domain.Listing, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := inBox(eligible(excluded), box).
		OrderBy(rankOrder...).
		Limit(uint64(limit))
	return s.list(ctx, q)
}

func (s *ListingStore) ListingsNearest(ctx context.Context, center geo.Point, box geo.Box, excluded domain.ExclusionSet, limit int) ([]domain.Listing, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := inBox(eligible(excluded), box).
		OrderByClause("power(l.latitude - ?, 2) + power((l.longitude - ?) * ?, 2)", center.Lat, center.Lon, geo.LonScale(center.Lat)).
		OrderBy("l.id").
		Limit(uint64(limit))
	return s.list(ctx, q)
}

var rankOrder = []string{"l.is_promoted DESC", "l.created_at DESC", "l.id DESC"}

// eligible selects approved listings outside excluded.
func eligible(excluded domain.ExclusionSet) sq.SelectBuilder {
	q := psql.Select(listingColumns...).
		From("listings l").
		Where(sq.Eq{"l.status": string(domain.StatusApproved)})
	if excluded.Len() > 0 {
		q = q.Where("NOT (l.id = ANY(?))", excluded.IDs())
	}
	return q
}

func inBox(q sq.SelectBuilder, box geo.Box) sq.SelectBuilder {
	return q.
		Where("l.latitude IS NOT NULL AND l.longitude IS NOT NULL").
		Where("l.latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("l.longitude BETWEEN ? AND ?", box.MinLon, box.MaxLon)
}

// candidates is the shared shape of the ranked signal queries: approved only,
// excluded ids removed, promoted first then newest.
func candidates(excluded domain.ExclusionSet, limit int) sq.SelectBuilder {
	return eligible(excluded).OrderBy(rankOrder...).Limit(uint64(limit))
}

func (s *ListingStore) list(ctx context.Context, q sq.SelectBuilder) ([]domain.Listing, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build listing query: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanListing(row pgx.Row) (domain.Listing, error) {
	var l domain.Listing
	err := scanListingInto(row, &l)
	return l, err
}

// scanListingInto scans prefix destinations first, then listingColumns.
func scanListingInto(row pgx.Row, l *domain.Listing, prefix ...any) error {
	var (
		price    *string
		lat, lon *float64
		status   string
		cats     []int64
	)
	dest := append(prefix,
		&l.ID, &l.Title, &l.Address, &price, &lat, &lon, &l.Promoted, &status, &l.CreatedAt, &cats)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	return fillListing(l, price, lat, lon, status, cats)
}

func fillListing(l *domain.Listing, price *string, lat, lon *float64, status string, cats []int64) error {
	l.Status = domain.ListingStatus(status)
	l.CategoryIDs = cats
	if price != nil {
		p, err := decimal.NewFromString(*price)
		if err != nil {
			return fmt.Errorf("listing %d price %q: %w", l.ID, *price, err)
		}
		l.Price = &p
	}
	if lat != nil && lon != nil {
		l.Location = &geo.Point{Lat: *lat, Lon: *lon}
	}
	return nil
}

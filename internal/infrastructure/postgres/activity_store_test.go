package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/baechuer/property-recs/internal/domain"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersWithActivitySince_GroupsRows(t *testing.T) {
	mock := newMock(t)
	store := NewActivityStore(mock)
	since := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	last1 := since.Add(48 * time.Hour)
	last2 := since.Add(24 * time.Hour)

	cols := append([]string{"id", "email", "full_name", "user_name", "last_activity"}, listingCols...)
	mock.ExpectQuery(q("ROW_NUMBER() OVER (PARTITION BY r.user_id")).
		WithArgs(since, 3).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(1), "a@example.com", "An", "", last1, int64(7), "", "", nil, nil, nil, false, "approved", since, []int64{1}).
			AddRow(int64(1), "a@example.com", "An", "", last1, int64(9), "", "", nil, nil, nil, false, "approved", since, []int64{}).
			AddRow(int64(2), "", "", "binh", last2, int64(7), "", "", nil, nil, nil, false, "approved", since, []int64{1}))

	users, err := store.UsersWithActivitySince(context.Background(), since, 3)
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, int64(1), users[0].UserID)
	assert.Equal(t, "a@example.com", users[0].Email)
	assert.Equal(t, last1, users[0].LastActivityAt)
	require.Len(t, users[0].RecentListings, 2)
	assert.Equal(t, int64(7), users[0].RecentListings[0].ID)
	assert.Equal(t, int64(9), users[0].RecentListings[1].ID)

	assert.Equal(t, int64(2), users[1].UserID)
	assert.False(t, users[1].HasRecipient())
	assert.Equal(t, "binh", users[1].DisplayName())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoritedAndViewedIDs(t *testing.T) {
	mock := newMock(t)
	store := NewActivityStore(mock)
	since := time.Now().Add(-7 * 24 * time.Hour)

	mock.ExpectQuery(q("FROM favorites")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"listing_id"}).AddRow(int64(9)))
	mock.ExpectQuery(q("SELECT DISTINCT listing_id FROM listing_views")).
		WithArgs(int64(1), since).
		WillReturnRows(pgxmock.NewRows([]string{"listing_id"}).AddRow(int64(7)).AddRow(int64(9)))

	favs, err := store.FavoritedListingIDs(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, favs)

	viewed, err := store.ViewedListingIDs(context.Background(), 1, since)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 9}, viewed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHasRecentView(t *testing.T) {
	since := time.Now().Add(-time.Hour)

	t.Run("authenticated matches by address or user", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(q("SELECT EXISTS")+".*"+q("(source_address = $3 OR user_id = $4)")).
			WithArgs(int64(10), since, "1.1.1.1", int64(4)).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		ok, err := NewActivityStore(mock).HasRecentView(context.Background(), 10, domain.Viewer{UserID: i64Ptr(4), SourceAddress: "1.1.1.1"}, since)
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("anonymous matches by address", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(q("SELECT EXISTS")+".*"+q("(source_address = $3)")).
			WithArgs(int64(10), since, "1.1.1.1").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		ok, err := NewActivityStore(mock).HasRecentView(context.Background(), 10, domain.Viewer{SourceAddress: "1.1.1.1"}, since)
		require.NoError(t, err)
		assert.False(t, ok)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no identity never matches", func(t *testing.T) {
		mock := newMock(t)
		ok, err := NewActivityStore(mock).HasRecentView(context.Background(), 10, domain.Viewer{SourceAddress: "  "}, since)
		require.NoError(t, err)
		assert.False(t, ok)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordViews_MultiRowInsert(t *testing.T) {
	mock := newMock(t)
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	records := []domain.ActivityRecord{
		{ListingID: 5, SourceAddress: "1.1.1.1", UserAgent: "ua", ViewedAt: at},
		{ListingID: 5, SourceAddress: "1.1.1.1", UserAgent: "ua", ViewedAt: at},
	}

	mock.ExpectExec(q("INSERT INTO listing_views")).
		WithArgs(
			(*int64)(nil), int64(5), "1.1.1.1", "ua", at,
			(*int64)(nil), int64(5), "1.1.1.1", "ua", at,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	require.NoError(t, NewActivityStore(mock).RecordViews(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordViews_EmptyIsNoop(t *testing.T) {
	mock := newMock(t)
	require.NoError(t, NewActivityStore(mock).RecordViews(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

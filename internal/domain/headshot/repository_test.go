package headshot

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

var generationRowColumns = []string{
	"id", "user_id", "style", "original_image_url", "status", "aspect_ratio", "quality",
	"batch_size", "credits_used", "progress", "result_urls", "processing_time", "error_message",
	"is_favorite", "created_at", "updated_at", "deleted_at",
}

func TestCreateReturnsID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	g := &Generation{
		UserID:           uuid.New(),
		Style:            "corporate",
		OriginalImageURL: sql.NullString{String: "https://img/x.jpg", Valid: true},
		Status:           StatusProcessing,
		AspectRatio:      "1:1",
		Quality:          QualityHigh,
		BatchSize:        1,
		CreditsUsed:      5,
	}

	mock.ExpectQuery(`INSERT INTO headshot_generations`).
		WithArgs(g.UserID, "corporate", g.OriginalImageURL, StatusProcessing, "1:1", QualityHigh, 1, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	require.NoError(t, repo.Create(context.Background(), g))
	assert.Equal(t, int64(7), g.ID)
	assert.Equal(t, now, g.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCompletedStoresJSON(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE headshot_generations\s+SET status = 'completed'`).
		WithArgs(int64(7), []byte(`["https://cdn/a.png"]`), 12).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkCompleted(context.Background(), 7, URLs{"https://cdn/a.png"}, 12))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForUserNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .+ FROM headshot_generations`).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetForUser(context.Background(), 1, uuid.New())
	assert.ErrorIs(t, err, ErrGenerationNotFound)
}

func TestListAppliesFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.New()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM headshot_generations WHERE user_id = \$1 AND deleted_at IS NULL AND style = \$2 AND created_at >= \$3 AND is_favorite = TRUE`).
		WithArgs(userID, "actor", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(`ORDER BY created_at DESC\s+LIMIT \$4 OFFSET \$5`).
		WithArgs(userID, "actor", from, 10, 20).
		WillReturnRows(sqlmock.NewRows(generationRowColumns).AddRow(
			int64(3), userID.String(), "actor", nil, "completed", "1:1", "high",
			1, 5, 100, []byte(`["https://cdn/a.png","https://cdn/b.png"]`), int64(30), nil,
			true, now, now, nil,
		))

	gens, total, err := repo.List(context.Background(), userID,
		&HistoryFilter{Style: "actor", DateFrom: &from, FavoritesOnly: true},
		Pagination{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, gens, 1)
	assert.Equal(t, URLs{"https://cdn/a.png", "https://cdn/b.png"}, gens[0].ResultURLs)
	assert.False(t, gens[0].OriginalImageURL.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteReturnsAffected(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectQuery(`UPDATE headshot_generations SET deleted_at = NOW\(\), updated_at = NOW\(\)`).
		WithArgs(userID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))

	ids, err := repo.SoftDelete(context.Background(), userID, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetFavoritePassesFlag(t *testing.T) {
	repo, mock := newMockRepo(t)
	userID := uuid.New()

	mock.ExpectQuery(`UPDATE headshot_generations SET is_favorite = \$3`).
		WithArgs(userID, sqlmock.AnyArg(), true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))

	ids, err := repo.SetFavorite(context.Background(), userID, []int64{4}, true)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailAbandoned(t *testing.T) {
	repo, mock := newMockRepo(t)
	before := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`SET status = 'failed', error_message = \$2\s+WHERE status IN \('queued', 'processing'\)`).
		WithArgs(before, "gone").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.FailAbandoned(context.Background(), before, "gone")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListStaleOriginals(t *testing.T) {
	repo, mock := newMockRepo(t)
	before := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE status IN \('completed', 'failed'\)`).
		WithArgs(before, 500).
		WillReturnRows(sqlmock.NewRows([]string{"id", "original_image_url"}).
			AddRow(int64(1), "gs://bucket/uploads/a.jpg"))

	out, err := repo.ListStaleOriginals(context.Background(), before, 500)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "gs://bucket/uploads/a.jpg", out[0].OriginalImageURL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestURLsScan(t *testing.T) {
	var u URLs
	require.NoError(t, u.Scan(nil))
	assert.Equal(t, URLs{}, u)

	require.NoError(t, u.Scan(`["a"]`))
	assert.Equal(t, URLs{"a"}, u)

	assert.Error(t, u.Scan(42))

	v, err := URLs(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}

package headshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

const generationColumns = `id, user_id, style, original_image_url, status, aspect_ratio, quality,
	batch_size, credits_used, progress, result_urls, processing_time, error_message,
	is_favorite, created_at, updated_at, deleted_at`

// Repository defines headshot generation data access
type Repository interface {
	Create(ctx context.Context, g *Generation) error
	MarkCompleted(ctx context.Context, id int64, urls URLs, processingTime int) error
	MarkFailed(ctx context.Context, id int64, message string, processingTime int) error
	GetForUser(ctx context.Context, id int64, userID uuid.UUID) (*Generation, error)
	List(ctx context.Context, userID uuid.UUID, filter *HistoryFilter, p Pagination) ([]*Generation, int, error)
	OwnedIDs(ctx context.Context, userID uuid.UUID, ids []int64) ([]int64, error)
	SetFavorite(ctx context.Context, userID uuid.UUID, ids []int64, favorite bool) ([]int64, error)
	SoftDelete(ctx context.Context, userID uuid.UUID, ids []int64) ([]int64, error)
	FailAbandoned(ctx context.Context, before time.Time, message string) (int64, error)
	ListStaleOriginals(ctx context.Context, before time.Time, limit int) ([]*StaleOriginal, error)
	ClearOriginal(ctx context.Context, id int64) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, g *Generation) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO headshot_generations
			(user_id, style, original_image_url, status, aspect_ratio, quality, batch_size, credits_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx2, query,
		g.UserID, g.Style, g.OriginalImageURL, g.Status, g.AspectRatio, g.Quality, g.BatchSize, g.CreditsUsed,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: create generation: %v", ErrInternal, err)
	}
	return nil
}

func (r *repository) MarkCompleted(ctx context.Context, id int64, urls URLs, processingTime int) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE headshot_generations
		SET status = 'completed', result_urls = $2, processing_time = $3, progress = 100, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx2, query, id, urls, processingTime); err != nil {
		return fmt.Errorf("%w: complete generation: %v", ErrInternal, err)
	}
	return nil
}

func (r *repository) MarkFailed(ctx context.Context, id int64, message string, processingTime int) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE headshot_generations
		SET status = 'failed', error_message = $2, processing_time = $3, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx2, query, id, message, processingTime); err != nil {
		return fmt.Errorf("%w: fail generation: %v", ErrInternal, err)
	}
	return nil
}

func (r *repository) GetForUser(ctx context.Context, id int64, userID uuid.UUID) (*Generation, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + generationColumns + `
		FROM headshot_generations
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`

	var g Generation
	if err := r.db.GetContext(ctx2, &g, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGenerationNotFound
		}
		return nil, fmt.Errorf("%w: get generation: %v", ErrInternal, err)
	}
	return &g, nil
}

func (r *repository) List(ctx context.Context, userID uuid.UUID, filter *HistoryFilter, p Pagination) ([]*Generation, int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	conditions := []string{"user_id = $1", "deleted_at IS NULL"}
	args := []interface{}{userID}
	argIndex := 2

	if filter.Style != "" {
		conditions = append(conditions, fmt.Sprintf("style = $%d", argIndex))
		args = append(args, filter.Style)
		argIndex++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.DateFrom)
		argIndex++
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filter.DateTo)
		argIndex++
	}
	if filter.FavoritesOnly {
		conditions = append(conditions, "is_favorite = TRUE")
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx2, &total, "SELECT COUNT(*) FROM headshot_generations "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("%w: count generations: %v", ErrInternal, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM headshot_generations %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, generationColumns, where, argIndex, argIndex+1)
	args = append(args, p.Limit, p.Offset())

	var gens []*Generation
	if err := r.db.SelectContext(ctx2, &gens, query, args...); err != nil {
		return nil, 0, fmt.Errorf("%w: list generations: %v", ErrInternal, err)
	}
	return gens, total, nil
}

func (r *repository) OwnedIDs(ctx context.Context, userID uuid.UUID, ids []int64) ([]int64, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT id FROM headshot_generations WHERE user_id = $1 AND id = ANY($2) AND deleted_at IS NULL`
	var owned []int64
	if err := r.db.SelectContext(ctx2, &owned, query, userID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("%w: owned ids: %v", ErrInternal, err)
	}
	return owned, nil
}

func (r *repository) SetFavorite(ctx context.Context, userID uuid.UUID, ids []int64, favorite bool) ([]int64, error) {
	return r.batchUpdate(ctx, "is_favorite = $3", userID, ids, favorite)
}

func (r *repository) SoftDelete(ctx context.Context, userID uuid.UUID, ids []int64) ([]int64, error) {
	return r.batchUpdate(ctx, "deleted_at = NOW()", userID, ids)
}

func (r *repository) batchUpdate(ctx context.Context, set string, userID uuid.UUID, ids []int64, extra ...interface{}) ([]int64, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `UPDATE headshot_generations SET ` + set + `, updated_at = NOW()
		WHERE user_id = $1 AND id = ANY($2) AND deleted_at IS NULL
		RETURNING id`
	args := append([]interface{}{userID, pq.Array(ids)}, extra...)

	var affected []int64
	if err := r.db.SelectContext(ctx2, &affected, query, args...); err != nil {
		return nil, fmt.Errorf("%w: batch update: %v", ErrInternal, err)
	}
	return affected, nil
}

// FailAbandoned fails queued or processing generations not touched since
// before. updated_at is left as is so the same sweep can clean them up.
func (r *repository) FailAbandoned(ctx context.Context, before time.Time, message string) (int64, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE headshot_generations
		SET status = 'failed', error_message = $2
		WHERE status IN ('queued', 'processing')
		  AND updated_at <= $1
	`
	res, err := r.db.ExecContext(ctx2, query, before, message)
	if err != nil {
		return 0, fmt.Errorf("%w: fail abandoned generations: %v", ErrInternal, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *repository) ListStaleOriginals(ctx context.Context, before time.Time, limit int) ([]*StaleOriginal, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, original_image_url
		FROM headshot_generations
		WHERE status IN ('completed', 'failed')
		  AND updated_at <= $1
		  AND original_image_url IS NOT NULL
		ORDER BY id
		LIMIT $2
	`
	var out []*StaleOriginal
	if err := r.db.SelectContext(ctx2, &out, query, before, limit); err != nil {
		return nil, fmt.Errorf("%w: list stale originals: %v", ErrInternal, err)
	}
	return out, nil
}

func (r *repository) ClearOriginal(ctx context.Context, id int64) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx2, `UPDATE headshot_generations SET original_image_url = NULL WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: clear original: %v", ErrInternal, err)
	}
	return nil
}

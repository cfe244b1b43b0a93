package headshot

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chitra-ai/chitra-api/internal/domain/generation"
)

// Status of a headshot generation
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Quality level of a generation
type Quality string

const (
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
	QualityUltra    Quality = "ultra"
)

// URLs is a jsonb array of result urls.
type URLs []string

// Scan implements sql.Scanner.
func (u *URLs) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*u = URLs{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("headshot: cannot scan %T into URLs", src)
	}
	out := URLs{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*u = out
	return nil
}

// Value implements driver.Valuer.
func (u URLs) Value() (driver.Value, error) {
	if u == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal([]string(u))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Generation represents a headshot generation (matches headshot_generations table)
type Generation struct {
	ID               int64          `db:"id"`
	UserID           uuid.UUID      `db:"user_id"`
	Style            string         `db:"style"`
	OriginalImageURL sql.NullString `db:"original_image_url"`
	Status           Status         `db:"status"`
	AspectRatio      string         `db:"aspect_ratio"`
	Quality          Quality        `db:"quality"`
	BatchSize        int            `db:"batch_size"`
	CreditsUsed      int            `db:"credits_used"`
	Progress         int            `db:"progress"`
	ResultURLs       URLs           `db:"result_urls"`
	ProcessingTime   sql.NullInt64  `db:"processing_time"`
	ErrorMessage     sql.NullString `db:"error_message"`
	IsFavorite       bool           `db:"is_favorite"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	DeletedAt        sql.NullTime   `db:"deleted_at"`
}

var baseProcessingSeconds = map[Quality]int{
	QualityStandard: 30,
	QualityHigh:     45,
	QualityUltra:    60,
}

// EstimatedTimeRemaining is a rough seconds estimate for unfinished work.
func (g *Generation) EstimatedTimeRemaining() int {
	if g.Status != StatusProcessing && g.Status != StatusQueued {
		return 0
	}
	base, ok := baseProcessingSeconds[g.Quality]
	if !ok {
		base = baseProcessingSeconds[QualityHigh]
	}
	batch := g.BatchSize
	if batch < 1 {
		batch = 1
	}
	remaining := base + (batch-1)*15 - int(g.ProcessingTime.Int64)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StaleOriginal is a source image eligible for cleanup.
type StaleOriginal struct {
	ID               int64  `db:"id"`
	OriginalImageURL string `db:"original_image_url"`
}

// HistoryFilter narrows GET /headshots/history.
type HistoryFilter struct {
	Style         string
	Status        Status
	DateFrom      *time.Time
	DateTo        *time.Time
	FavoritesOnly bool
}

// Pagination is 1-based.
type Pagination struct {
	Page  int
	Limit int
}

// Offset of the first row.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// BatchAction is a POST /headshots/history action.
type BatchAction string

const (
	ActionFavorite   BatchAction = "favorite"
	ActionUnfavorite BatchAction = "unfavorite"
	ActionDelete     BatchAction = "delete"
)

// Valid reports whether a is a supported action.
func (a BatchAction) Valid() bool {
	switch a {
	case ActionFavorite, ActionUnfavorite, ActionDelete:
		return true
	}
	return false
}

// GenerationCost is the flat price of one headshot.
const GenerationCost = 5

// AspectRatios supported for headshots.
var AspectRatios = []generation.AspectRatio{
	{Ratio: "1:1", Resolution: "1024x1024", Description: "Square"},
	{Ratio: "3:4", Resolution: "768x1024", Description: "Classic"},
	{Ratio: "4:5", Resolution: "819x1024", Description: "Portrait"},
	{Ratio: "9:16", Resolution: "720x1280", Description: "Vertical"},
	{Ratio: "16:9", Resolution: "1280x720", Description: "Wide"},
}

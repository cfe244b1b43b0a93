package headshot

import (
	"time"

	"github.com/chitra-ai/chitra-api/internal/domain/generation"
)

// GenerateRequest is the POST /headshots/generate body.
type GenerateRequest struct {
	ImageURL    string `json:"imageUrl" validate:"required"`
	Style       string `json:"style" validate:"required"`
	AspectRatio string `json:"aspectRatio" validate:"required"`
}

// GenerateResponse is a completed headshot.
type GenerateResponse struct {
	GenerationID     int64  `json:"generationId"`
	URL              string `json:"url"`
	CreditsUsed      int    `json:"creditsUsed"`
	RemainingCredits int    `json:"remainingCredits"`
	ProcessingTime   int    `json:"processingTime"`
	Style            string `json:"style"`
}

// FailedResponse accompanies a failed generation.
type FailedResponse struct {
	Error        string `json:"error"`
	GenerationID int64  `json:"generationId"`
}

type StyleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	CreditCost  int    `json:"creditCost"`
	IsPremium   bool   `json:"isPremium"`
}

type CostsResponse struct {
	HeadshotGeneration int `json:"headshotGeneration"`
}

// ConfigResponse is GET /headshots/config.
type ConfigResponse struct {
	Styles       []StyleResponse          `json:"styles"`
	Categories   []Category               `json:"categories"`
	AspectRatios []generation.AspectRatio `json:"aspectRatios"`
	Costs        CostsResponse            `json:"costs"`
	Statistics   StatisticsResponse       `json:"statistics"`
}

type StatisticsResponse struct {
	TotalStyles   int `json:"totalStyles"`
	PremiumStyles int `json:"premiumStyles"`
	BasicStyles   int `json:"basicStyles"`
}

// GenerationResponse is one history row.
type GenerationResponse struct {
	ID             int64     `json:"id"`
	Status         Status    `json:"status"`
	Style          string    `json:"style"`
	AspectRatio    string    `json:"aspectRatio"`
	Quality        Quality   `json:"quality"`
	BatchSize      int       `json:"batchSize"`
	CreditsUsed    int       `json:"creditsUsed"`
	Progress       int       `json:"progress"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	ProcessingTime *int64    `json:"processingTime"`
	IsFavorite     bool      `json:"isFavorite"`
	ResultsCount   int       `json:"resultsCount"`
	ThumbnailURL   *string   `json:"thumbnailUrl"`
	HasError       bool      `json:"hasError"`
	ErrorMessage   *string   `json:"errorMessage"`
}

// GenerationResponseFrom maps a row for the history list.
func GenerationResponseFrom(g *Generation) GenerationResponse {
	resp := GenerationResponse{
		ID:           g.ID,
		Status:       g.Status,
		Style:        g.Style,
		AspectRatio:  g.AspectRatio,
		Quality:      g.Quality,
		BatchSize:    g.BatchSize,
		CreditsUsed:  g.CreditsUsed,
		Progress:     g.Progress,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
		IsFavorite:   g.IsFavorite,
		ResultsCount: len(g.ResultURLs),
		HasError:     g.Status == StatusFailed,
	}
	if g.ProcessingTime.Valid {
		pt := g.ProcessingTime.Int64
		resp.ProcessingTime = &pt
	}
	if len(g.ResultURLs) > 0 {
		thumb := g.ResultURLs[0]
		resp.ThumbnailURL = &thumb
	}
	if g.Status == StatusFailed && g.ErrorMessage.Valid {
		msg := g.ErrorMessage.String
		resp.ErrorMessage = &msg
	}
	return resp
}

type PaginationResponse struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	PerPage     int  `json:"perPage"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

type FiltersResponse struct {
	Style         *string `json:"style"`
	Status        *string `json:"status"`
	DateFrom      *string `json:"dateFrom"`
	DateTo        *string `json:"dateTo"`
	FavoritesOnly bool    `json:"favoritesOnly"`
}

// HistoryResponse is GET /headshots/history.
type HistoryResponse struct {
	Generations []GenerationResponse `json:"generations"`
	Pagination  PaginationResponse   `json:"pagination"`
	Filters     FiltersResponse      `json:"filters"`
}

// BatchRequest is the POST /headshots/history body.
type BatchRequest struct {
	Action        BatchAction `json:"action" validate:"required"`
	GenerationIDs []int64     `json:"generationIds" validate:"required,min=1,max=100"`
}

// BatchResponse reports a batch operation.
type BatchResponse struct {
	Action        BatchAction `json:"action"`
	AffectedCount int         `json:"affectedCount"`
	AffectedIDs   []int64     `json:"affectedIds"`
}

type InvalidIDsResponse struct {
	InvalidIDs []int64 `json:"invalidIds"`
}

// StatusResponse is GET /headshots/status/{id}.
type StatusResponse struct {
	GenerationID           int64     `json:"generationId"`
	Status                 Status    `json:"status"`
	Progress               int       `json:"progress"`
	EstimatedTimeRemaining int       `json:"estimatedTimeRemaining"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
	Style                  string    `json:"style"`
	AspectRatio            string    `json:"aspectRatio"`
	Quality                Quality   `json:"quality"`
	BatchSize              int       `json:"batchSize"`
	CreditsUsed            int       `json:"creditsUsed"`
	IsFavorite             bool      `json:"isFavorite"`
	Results                []string  `json:"results"`
	Error                  *string   `json:"error"`
	ProcessingTime         *int64    `json:"processingTime"`
}

// StatusResponseFrom maps a row for the status endpoint.
func StatusResponseFrom(g *Generation) StatusResponse {
	resp := StatusResponse{
		GenerationID:           g.ID,
		Status:                 g.Status,
		Progress:               g.Progress,
		EstimatedTimeRemaining: g.EstimatedTimeRemaining(),
		CreatedAt:              g.CreatedAt,
		UpdatedAt:              g.UpdatedAt,
		Style:                  g.Style,
		AspectRatio:            g.AspectRatio,
		Quality:                g.Quality,
		BatchSize:              g.BatchSize,
		CreditsUsed:            g.CreditsUsed,
		IsFavorite:             g.IsFavorite,
		Results:                []string{},
	}
	if g.Status == StatusCompleted {
		resp.Results = g.ResultURLs
	}
	if g.Status == StatusFailed && g.ErrorMessage.Valid {
		msg := g.ErrorMessage.String
		resp.Error = &msg
	}
	if g.ProcessingTime.Valid {
		pt := g.ProcessingTime.Int64
		resp.ProcessingTime = &pt
	}
	return resp
}

// CleanupResult is the outcome of a stale source sweep.
type CleanupResult struct {
	Processed int       `json:"processed"`
	Deleted   int       `json:"deleted"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Abandoned int       `json:"abandoned"`
	Timestamp time.Time `json:"timestamp"`
}

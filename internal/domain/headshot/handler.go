package headshot

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chitra-ai/chitra-api/internal/domain/generation"
	"github.com/chitra-ai/chitra-api/internal/middleware"
	"github.com/chitra-ai/chitra-api/internal/pkg/errorhandler"
	"github.com/chitra-ai/chitra-api/internal/pkg/response"
	"github.com/chitra-ai/chitra-api/internal/pkg/validator"
)

type Handler struct {
	svc           *Service
	cleanupMaxAge time.Duration
}

func NewHandler(svc *Service, cleanupMaxAge time.Duration) *Handler {
	return &Handler{svc: svc, cleanupMaxAge: cleanupMaxAge}
}

// Routes returns the /headshots router. limit wraps the paid endpoint.
func (h *Handler) Routes(authMiddleware, limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/config", h.Config)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(limit).Post("/generate", h.Generate)
		r.Get("/history", h.History)
		r.Post("/history", h.Batch)
		r.Get("/status/{id}", h.Status)
	})

	return r
}

// Config handles GET /headshots/config
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var premium *bool
	switch q.Get("premium") {
	case "true":
		v := true
		premium = &v
	case "false":
		v := false
		premium = &v
	}

	response.OKMessage(w, "Headshot configuration retrieved", h.svc.Config(q.Get("category"), premium))
}

// Generate handles POST /headshots/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req GenerateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.svc.Generate(r.Context(), userID, &req)
	if err != nil {
		var short *generation.ShortfallError
		var failed *FailedError
		switch {
		case errors.As(err, &short):
			response.PaymentRequired(w, "Insufficient credits", generation.ShortfallResponseFrom(short))
		case errors.As(err, &failed):
			data := FailedResponse{Error: failed.Message, GenerationID: failed.GenerationID}
			if errors.Is(err, ErrUnavailable) {
				response.ErrorWithData(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Headshot generation failed", data)
				return
			}
			response.ErrorWithData(w, http.StatusBadRequest, "GENERATION_FAILED", "Headshot generation failed", data)
		case errors.Is(err, ErrInvalidImageURL):
			response.BadRequest(w, "Invalid image URL format")
		case errors.Is(err, ErrInvalidStyle):
			response.BadRequest(w, "Invalid headshot style")
		case errors.Is(err, ErrInvalidAspectRatio):
			response.BadRequest(w, "Invalid aspect ratio")
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "User not found")
		default:
			errorhandler.Internal(r.Context(), w, "headshot.generate", err)
		}
		return
	}

	response.OKMessage(w, "Headshot generated successfully", result)
}

// History handles GET /headshots/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	filter := &HistoryFilter{
		Style:         q.Get("style"),
		Status:        Status(q.Get("status")),
		FavoritesOnly: q.Get("favorites_only") == "true",
	}
	if filter.Status != "" && !filter.Status.Valid() {
		response.BadRequest(w, "Invalid status filter")
		return
	}
	var err error
	if filter.DateFrom, err = parseDate(q.Get("date_from")); err != nil {
		response.BadRequest(w, "Invalid date_from")
		return
	}
	if filter.DateTo, err = parseDate(q.Get("date_to")); err != nil {
		response.BadRequest(w, "Invalid date_to")
		return
	}

	history, err := h.svc.History(r.Context(), userID, filter, Pagination{Page: page, Limit: limit})
	if err != nil {
		errorhandler.Internal(r.Context(), w, "headshot.history", err)
		return
	}

	response.OKMessage(w, "Generation history retrieved", history)
}

// parseDate accepts RFC 3339 timestamps or plain dates.
func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("invalid date")
}

// Batch handles POST /headshots/history
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req BatchRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid batch operation request")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid batch operation request", errs)
		return
	}

	result, err := h.svc.Batch(r.Context(), userID, &req)
	if err != nil {
		var invalid *InvalidIDsError
		switch {
		case errors.Is(err, ErrInvalidAction):
			response.BadRequest(w, "Invalid batch action")
		case errors.As(err, &invalid):
			response.ErrorWithData(w, http.StatusBadRequest, "INVALID_IDS", invalid.Error(), InvalidIDsResponse{InvalidIDs: invalid.IDs})
		default:
			errorhandler.Internal(r.Context(), w, "headshot.batch", err)
		}
		return
	}

	response.OKMessage(w, batchMessage(result.Action), result)
}

func batchMessage(a BatchAction) string {
	switch a {
	case ActionFavorite:
		return "Generations marked as favorite"
	case ActionUnfavorite:
		return "Generations removed from favorites"
	default:
		return "Generations deleted"
	}
}

// Status handles GET /headshots/status/{id}
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid generation ID")
		return
	}

	status, err := h.svc.Status(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, ErrGenerationNotFound) {
			response.NotFound(w, "Headshot generation not found")
			return
		}
		errorhandler.Internal(r.Context(), w, "headshot.status", err)
		return
	}

	response.OKMessage(w, "Generation status retrieved", status)
}

// Cleanup handles POST /cleanup/images
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CleanupOriginals(r.Context(), h.cleanupMaxAge)
	if err != nil {
		errorhandler.Internal(r.Context(), w, "headshot.cleanup", err)
		return
	}
	response.OKMessage(w, "Image cleanup completed successfully", result)
}

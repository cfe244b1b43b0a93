package generation

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/chitra-ai/chitra-api/internal/middleware"
	"github.com/chitra-ai/chitra-api/internal/pkg/errorhandler"
	"github.com/chitra-ai/chitra-api/internal/pkg/response"
	"github.com/chitra-ai/chitra-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Config handles GET /config
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	response.OKMessage(w, "Config data", h.svc.Config())
}

// Generate handles POST /generate
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
		var short *ShortfallError
		switch {
		case errors.As(err, &short):
			response.PaymentRequired(w, "Insufficient balance", ShortfallResponseFrom(short))
		case errors.Is(err, ErrInvalidStyle):
			response.BadRequest(w, "Please provide valid supported styles")
		case errors.Is(err, ErrInvalidAspectRatio):
			response.BadRequest(w, "Please provide valid supported aspect ratio")
		case errors.Is(err, ErrEmptyPrompt):
			response.BadRequest(w, "Please provide valid prompt or select style to generate image")
		case errors.Is(err, ErrInvalidImage):
			response.BadRequest(w, "Invalid image format or dimensions was provided.")
		case errors.Is(err, ErrGenerationFailed):
			response.BadRequest(w, "Image generation failed.")
		case errors.Is(err, ErrUnavailable):
			errorhandler.Upstream(r.Context(), w, "getimg", err)
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "User not found")
		default:
			errorhandler.Internal(r.Context(), w, "generation.generate", err)
		}
		return
	}

	response.OKMessage(w, "Image generated", result)
}

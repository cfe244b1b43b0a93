package credit

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/chitra-ai/chitra-api/internal/middleware"
	"github.com/chitra-ai/chitra-api/internal/pkg/errorhandler"
	"github.com/chitra-ai/chitra-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Summary handles GET /credits
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	summary, err := h.svc.Summary(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		errorhandler.Internal(r.Context(), w, "credit.summary", err)
		return
	}

	response.OKMessage(w, "Credit record", SummaryResponseFrom(summary))
}

// ClaimReward handles POST /reward
func (h *Handler) ClaimReward(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	reward, err := h.svc.ClaimReward(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "User not found")
		case errors.Is(err, ErrUserDeleted):
			response.BadRequest(w, "User has been deleted")
		case errors.Is(err, ErrAdLimitReached):
			response.TooManyRequests(w, "Daily ad reward limit reached")
		default:
			errorhandler.Internal(r.Context(), w, "credit.reward", err)
		}
		return
	}

	response.OKMessage(w, "Reward claimed successfully", reward.Amount)
}

// ResetAds handles POST /ads/reset
func (h *Handler) ResetAds(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.ResetAdsWatched(r.Context()); err != nil {
		errorhandler.Internal(r.Context(), w, "credit.reset_ads", err)
		return
	}
	response.OKMessage(w, "Ads reset successfully", nil)
}

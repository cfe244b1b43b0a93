package purchase

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chitra-ai/chitra-api/internal/middleware"
	"github.com/chitra-ai/chitra-api/internal/pkg/errorhandler"
	"github.com/chitra-ai/chitra-api/internal/pkg/iap"
	"github.com/chitra-ai/chitra-api/internal/pkg/response"
	"github.com/chitra-ai/chitra-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes returns the /pricing router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/plans", h.Plans)
	r.Post("/plans/{productId}/purchase", h.PurchasePlan)
	r.Post("/verify-purchase", h.VerifyPurchase)
	return r
}

// Plans handles GET /pricing/plans
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	platform := iap.Platform(r.URL.Query().Get("platform"))
	if platform == "" {
		var err error
		platform, err = h.svc.DefaultPlatform(r.Context(), userID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				response.NotFound(w, "User not found")
				return
			}
			errorhandler.Internal(r.Context(), w, "pricing.plans", err)
			return
		}
	}

	plans, err := h.svc.Plans(platform)
	if err != nil {
		response.BadRequest(w, `Invalid platform - must be "ios" or "android"`)
		return
	}

	response.OKMessage(w, "Pricing plans", plansResponse(plans))
}

// PurchasePlan handles POST /pricing/plans/{productId}/purchase
func (h *Handler) PurchasePlan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	if _, err := h.svc.PurchasePlan(r.Context(), userID, chi.URLParam(r, "productId")); err != nil {
		switch {
		case errors.Is(err, ErrLegacyDisabled):
			response.Forbidden(w, "Direct plan purchase is disabled, use verify-purchase")
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "User not found")
		case errors.Is(err, ErrPlanNotFound):
			response.NotFound(w, "Plan not found")
		default:
			errorhandler.Internal(r.Context(), w, "pricing.purchase_plan", err)
		}
		return
	}

	response.OKMessage(w, "Plan successfully purchased", nil)
}

// VerifyPurchase handles POST /pricing/verify-purchase
func (h *Handler) VerifyPurchase(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req VerifyPurchaseRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Missing required fields", errs)
		return
	}

	result, err := h.svc.VerifyPurchase(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPlatform):
			response.BadRequest(w, `Invalid platform - must be "ios" or "android"`)
		case errors.Is(err, ErrUnknownProduct):
			response.ErrorWithDetails(w, http.StatusBadRequest, "INVALID_PRODUCT", "Invalid product ID",
				map[string]string{"productId": `Product "` + req.ProductID + `" not found in pricing catalog`})
		case errors.Is(err, ErrTestModeDisabled):
			response.Forbidden(w, "Test purchases are not allowed")
		case errors.Is(err, ErrInvalidReceipt), errors.Is(err, ErrProductMismatch):
			response.Error(w, http.StatusBadRequest, "INVALID_RECEIPT", "Invalid receipt")
		case errors.Is(err, ErrDuplicateTransaction):
			response.Error(w, http.StatusBadRequest, "DUPLICATE_TRANSACTION", "Receipt already used")
		case errors.Is(err, ErrVerificationUnavailable):
			response.ServiceUnavailable(w, "Store verification is temporarily unavailable, please try again later")
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "User not found")
		default:
			errorhandler.Internal(r.Context(), w, "pricing.verify_purchase", err)
		}
		return
	}

	response.OKMessage(w, result.Message, result)
}

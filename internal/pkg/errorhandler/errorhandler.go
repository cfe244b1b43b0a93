package errorhandler

import (
	"context"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/chitra-ai/chitra-api/internal/pkg/response"
)

// Internal logs an unexpected error and writes a generic 500 that never
// exposes the cause to the client.
func Internal(ctx context.Context, w http.ResponseWriter, op string, err error) {
	log.Error().
		Str("request_id", requestID(ctx)).
		Str("operation", op).
		Err(err).
		Msg("Request failed")

	response.InternalError(w)
}

// Upstream logs an external collaborator failure and writes a retryable 503.
func Upstream(ctx context.Context, w http.ResponseWriter, service string, err error) {
	log.Warn().
		Str("request_id", requestID(ctx)).
		Str("external_service", service).
		Err(err).
		Msg("External service unavailable")

	response.ServiceUnavailable(w, "Service temporarily unavailable, please try again later")
}

// LogExternalServiceError logs errors from external service calls
func LogExternalServiceError(ctx context.Context, service string, statusCode int, err error, body string) {
	log.Error().
		Str("request_id", requestID(ctx)).
		Str("external_service", service).
		Int("status_code", statusCode).
		Err(err).
		Str("response_body", truncateString(body, 1000)).
		Msg("External service error")
}

func requestID(ctx context.Context) string {
	if id := chimw.GetReqID(ctx); id != "" {
		return id
	}
	return "unknown"
}

func truncateString(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "...<truncated>"
	}
	return s
}

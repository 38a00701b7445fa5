package server

import (
	stderrors "errors"
	"net/http"

	"careermatch/internal/errors"
	"careermatch/internal/observability"
	"careermatch/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// createMatchHandler wraps the match pipeline with request parsing,
// validation, and observability.
func (s *Server) createMatchHandler(om *observability.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeErrorResponse(w, "METHOD_NOT_ALLOWED", "Use POST", http.StatusMethodNotAllowed)
			return
		}

		ctx := r.Context()
		tracer := om.Tracer("careermatch.api")
		ctx, span := tracer.Start(ctx, "api.match")
		defer span.End()

		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		span.SetAttributes(attribute.String("request.id", requestID))

		var req types.MatchRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, errors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		if err := s.validate.Struct(&req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			var verrs validator.ValidationErrors
			msg := "Request validation failed"
			if stderrors.As(err, &verrs) && len(verrs) > 0 {
				msg = "Missing or invalid field: " + verrs[0].Field()
			}
			writeErrorResponse(w, errors.ErrCodeInvalidRequest, msg, http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.String("match.profile_id", req.ProfileID),
			attribute.String("match.stage", req.Stage),
		)

		result, err := s.Matcher.Match(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", string(errors.TypeOf(err))))
			s.Logger.LogError(err, "Match request failed",
				"request_id", requestID,
				"profile_id", req.ProfileID)
			code, message, status := mapMatchError(err)
			writeErrorResponse(w, code, message, status)
			return
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("match.source", result.Source),
			attribute.Int("match.candidates", len(result.Candidates)),
			attribute.Int("match.catalog_size", result.TotalCatalogSize),
		)

		writeJSONResponse(w, MatchResponse{Success: true, Data: result}, http.StatusOK)
	}
}

// mapMatchError converts pipeline errors to the wire envelope and status.
func mapMatchError(err error) (code, message string, status int) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return errors.ErrCodeInternal, "Internal server error", http.StatusInternalServerError
	}

	switch appErr.Type {
	case errors.ErrorTypeValidation:
		return appErr.Code, appErr.Message, http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		return appErr.Code, appErr.Message, http.StatusNotFound
	case errors.ErrorTypeTimeout:
		return appErr.Code, appErr.Message, http.StatusGatewayTimeout
	case errors.ErrorTypeStore:
		return appErr.Code, "A backing store is unavailable", http.StatusServiceUnavailable
	case errors.ErrorTypeAI:
		// Oracle failures are absorbed by the fallback; reaching here means
		// generation itself failed.
		return appErr.Code, appErr.Message, http.StatusBadGateway
	default:
		return appErr.Code, "Internal server error", http.StatusInternalServerError
	}
}

// createRateLimitMiddleware adds observability to rate limiting.
func (s *Server) createRateLimitMiddleware(om *observability.Manager) func(http.HandlerFunc) http.HandlerFunc {
	base := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		limited := base(next)
		return func(w http.ResponseWriter, r *http.Request) {
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			limited(wrapper, r)

			if wrapper.statusCode == http.StatusTooManyRequests {
				om.GetMetrics().RecordRateLimitHit(r.Context(), r.URL.Path)
			}
		}
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

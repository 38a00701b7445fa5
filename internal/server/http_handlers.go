package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const healthCheckTimeout = 10 * time.Second

// healthHandler reports service health: database reachability, oracle model
// availability, and circuit breaker state. The service stays "degraded"
// rather than down when only the oracle is unavailable, since the fallback
// scorer keeps matching functional.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := map[string]any{
		"status":         "healthy",
		"service":        "careermatch",
		"version":        s.Version,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	}

	dbHealthy := s.DB.Healthy(ctx)
	response["database"] = map[string]any{"healthy": dbHealthy}

	oracleAvailable := false
	if s.OracleService != nil {
		modelInfo := s.OracleService.Oracle.GetModelInfo(ctx)
		response["oracle"] = modelInfo
		oracleAvailable = modelInfo != nil && modelInfo.Available

		if gemini, ok := s.OracleService.Oracle.(interface{ GetCircuitBreakerStats() map[string]any }); ok {
			response["circuit_breakers"] = gemini.GetCircuitBreakerStats()
		}
	} else {
		response["oracle"] = map[string]any{
			"available": false,
			"error":     "no oracle configured; fallback scoring only",
		}
	}

	switch {
	case !dbHealthy:
		response["status"] = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	case !oracleAvailable:
		response["status"] = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode health response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// statsHandler provides server statistics including rate limiting info.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"service": "careermatch",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"matching": map[string]any{
			"target_match_count": s.AppConfig.Matching.TargetMatchCount,
			"prefilter_max_size": s.AppConfig.Matching.PreFilterMaxSize,
			"oracle_timeout":     s.AppConfig.Matching.OracleTimeout.String(),
			"overall_budget":     s.AppConfig.Matching.OverallBudget.String(),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode stats response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// parseJSONRequest parses a JSON request body into the provided struct.
func parseJSONRequest(r *http.Request, v any) error {
	if r.Header.Get("Content-Type") != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeErrorResponse writes the standard failure envelope.
func writeErrorResponse(w http.ResponseWriter, code, message string, statusCode int) {
	writeJSONResponse(w, ErrorResponse{
		Success: false,
		Error:   ErrorBody{Code: code, Message: message},
	}, statusCode)
}

func writeJSONResponse(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

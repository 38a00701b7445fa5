// Package server exposes the matching pipeline over HTTP.
package server

import (
	"context"
	"time"

	"careermatch/internal/ai"
	"careermatch/internal/config"
	cmErrors "careermatch/internal/errors"
	"careermatch/internal/observability"
	"careermatch/internal/store"
	"careermatch/internal/types"

	"github.com/go-playground/validator/v10"
)

// Matcher is the pipeline surface the HTTP layer depends on.
type Matcher interface {
	Match(ctx context.Context, req types.MatchRequest) (*types.MatchResult, error)
}

// MatchResponse is the success envelope for the match endpoint.
type MatchResponse struct {
	Success bool               `json:"success"`
	Data    *types.MatchResult `json:"data"`
}

// ErrorResponse is the failure envelope shared by all endpoints.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// ErrorBody carries the machine-readable failure condition.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server holds configuration and collaborators for the HTTP server.
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config
	TLSConfig config.TLSConfig

	Matcher       Matcher
	OracleService *ai.Service
	DB            *store.DB
	Obs           *observability.Manager

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Logger    *cmErrors.Logger
	validate  *validator.Validate
	startedAt time.Time
}

// Deps bundles the collaborators a Server needs beyond configuration.
type Deps struct {
	Matcher       Matcher
	OracleService *ai.Service
	DB            *store.DB
	Obs           *observability.Manager
	Logger        *cmErrors.Logger
	Version       string
}

// NewServer creates a Server from the application configuration.
func NewServer(appCfg *config.Config, deps Deps) *Server {
	// API keys as a map for O(1) lookup.
	apiKeyMap := make(map[string]bool)
	for _, key := range appCfg.Server.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	rl := appCfg.Server.RateLimit
	var rateLimiter *RateLimiter
	if rl.Enabled {
		rateLimiter = NewRateLimiter(rl.RequestsPerMin, rl.Window, rl.BurstCapacity, deps.Logger)
	}

	return &Server{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		Version:        deps.Version,
		AppConfig:      appCfg,
		TLSConfig:      appCfg.Server.TLS,
		Matcher:        deps.Matcher,
		OracleService:  deps.OracleService,
		DB:             deps.DB,
		Obs:            deps.Obs,
		APIKeys:        apiKeyMap,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxRequestSize: appCfg.App.MaxRequestSize,
		RateLimit:      &rl,
		RateLimiter:    rateLimiter,
		Logger:         deps.Logger,
		validate:       validator.New(),
		startedAt:      time.Now(),
	}
}

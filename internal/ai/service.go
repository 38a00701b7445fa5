package ai

import (
	"context"
	"fmt"

	"careermatch/internal/config"
	"careermatch/internal/errors"
)

// Service wraps the configured ranking oracle provider
type Service struct {
	Oracle RankingOracle // Exported for access from server package
	config *config.OracleConfig
	logger *errors.Logger
}

// NewService creates a new oracle service instance from configuration
func NewService(ctx context.Context, cfg *config.OracleConfig, logger *errors.Logger) (*Service, error) {
	var oracle RankingOracle
	var err error

	logger.Debug("Initializing ranking oracle",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"max_retries", cfg.MaxRetries,
		"circuit_breaker", cfg.CircuitBreaker.Enabled)

	switch cfg.Provider {
	case "gemini":
		oracle, err = NewGeminiOracle(ctx, cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported oracle provider: %s", cfg.Provider), nil)
	}

	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create oracle provider", err)
	}

	return &Service{
		Oracle: oracle,
		config: cfg,
		logger: logger,
	}, nil
}

// GetModelInfo returns information about the oracle model for health checks
func (s *Service) GetModelInfo(ctx context.Context) any {
	return s.Oracle.GetModelInfo(ctx)
}

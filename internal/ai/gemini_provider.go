package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"careermatch/internal/config"
	cmErrors "careermatch/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiOracle implements RankingOracle backed by Google Gemini
type GeminiOracle struct {
	client         *genai.Client
	config         *config.OracleConfig
	circuitBreaker *OracleCircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	logger         *cmErrors.Logger
}

// Ensure GeminiOracle implements RankingOracle
var _ RankingOracle = (*GeminiOracle)(nil)

// NewGeminiOracle creates a new Gemini-backed ranking oracle
func NewGeminiOracle(ctx context.Context, cfg *config.OracleConfig, logger *cmErrors.Logger) (*GeminiOracle, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, cmErrors.NewConfigError(cmErrors.ErrCodeMissingAPIKey,
			"Gemini API key is required", nil)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, cmErrors.NewAIError(cmErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiOracle{
		client:         client,
		config:         cfg,
		circuitBreaker: NewOracleCircuitBreaker(cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(cfg, logger),
		logger:         logger,
	}, nil
}

// ModelInfo represents information about the oracle model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiOracle) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = err.Error()
		if g.logger != nil {
			g.logger.Warn("Model availability check failed",
				"model", g.config.Model,
				"error", err.Error())
		}
		return modelInfo
	}

	modelInfo.Available = true
	if model.DisplayName != "" {
		modelInfo.DisplayName = model.DisplayName
	}
	if model.Version != "" {
		modelInfo.Version = model.Version
	}

	return modelInfo
}

// Rank sends the ranking prompt to Gemini and returns the raw response text.
// The result is untrusted free text; parsing and validation happen in the
// reconciler.
func (g *GeminiOracle) Rank(ctx context.Context, prompt string) (string, *TokenUsage, error) {
	tracer := otel.Tracer("careermatch.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.rank")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Int("ai.prompt_length", len(prompt)),
	)

	genaiConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if g.config.Temperature != nil && *g.config.Temperature > 0 {
		genaiConfig.Temperature = g.config.Temperature
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(prompt), genaiConfig)
		})
	})

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, cmErrors.NewAIError(cmErrors.ErrCodeOracleFailed,
			"Oracle ranking call failed", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		err := cmErrors.NewAIError(cmErrors.ErrCodeOracleFailed,
			"Oracle returned an empty response", nil)
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, err
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("ai.response_length", len(text)),
	)
	return text, tokenUsage, nil
}

// executeWithRetry executes an oracle call with retry logic and exponential backoff
func (g *GeminiOracle) executeWithRetry(ctx context.Context, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if g.logger != nil {
				g.logger.Warn("Retrying oracle call",
					"attempt", attempt,
					"max_retries", g.config.MaxRetries,
					"error", lastErr.Error())
			}

			// Exponential backoff with jitter to prevent thundering herd
			baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			jitterMax := big.NewInt(int64(float64(baseDelay) * 0.1))
			jitterBig, _ := rand.Int(rand.Reader, jitterMax)
			jitter := time.Duration(jitterBig.Int64())
			backoff := min(baseDelay+jitter, 10*time.Second)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		// Don't retry on certain errors (auth, invalid input, etc.)
		if !isRetryableError(err) {
			break
		}
	}

	return nil, lastErr
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiOracle) GetCircuitBreakerStats() map[string]any {
	stats := map[string]any{
		"rank_operations":  g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetModelStats(),
	}

	stats["overall_healthy"] = g.circuitBreaker.IsHealthy() && g.modelBreaker.IsModelHealthy()

	return stats
}

// Close implements RankingOracle
func (g *GeminiOracle) Close() error {
	// Gemini client doesn't expose a Close method in single-shot usage
	return nil
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

package ai

import (
	"context"
)

// RankingOracle is the external ranking service. Its output is free text and
// must never be trusted for structural correctness; callers bound wait time
// and validate everything downstream.
type RankingOracle interface {
	Rank(ctx context.Context, prompt string) (string, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// TokenUsage represents token usage information from oracle responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

package matching

import (
	"context"

	"careermatch/internal/ai"
	"careermatch/internal/config"
	"careermatch/internal/errors"
	"careermatch/internal/types"
)

// Source of a generated candidate set.
const (
	SourceOracle   = "oracle"
	SourceFallback = "fallback"
)

// Generation is the outcome of candidate generation: a bounded candidate
// list plus which path produced it.
type Generation struct {
	Candidates []types.MatchCandidate
	Source     string
	TokenUsage *ai.TokenUsage

	// OracleErr is set when an oracle call was attempted and failed. Nil when
	// the oracle succeeded or no oracle is configured.
	OracleErr error
}

// TemplateFunc supplies the current prompt template. Allows hot-reloaded
// templates without coupling the generator to the loader.
type TemplateFunc func() string

// Generator produces match candidates: oracle first under a strict timeout,
// deterministic fallback whenever the oracle fails, times out, or returns
// unusable output. Generation never fails for oracle-side reasons.
type Generator struct {
	oracle   ai.RankingOracle
	fallback *FallbackScorer
	template TemplateFunc
	cfg      config.MatchingConfig
	logger   *errors.Logger
}

// NewGenerator creates a Generator. oracle may be nil, in which case every
// request takes the fallback path. template may be nil to use the compiled-in
// prompt.
func NewGenerator(oracle ai.RankingOracle, fallback *FallbackScorer, template TemplateFunc, cfg config.MatchingConfig, logger *errors.Logger) *Generator {
	if template == nil {
		template = func() string { return ai.DefaultRankingPrompt }
	}
	return &Generator{
		oracle:   oracle,
		fallback: fallback,
		template: template,
		cfg:      cfg,
		logger:   logger,
	}
}

// Generate ranks the filtered catalog for the profile and returns at most
// TargetMatchCount candidates. An empty filtered catalog fails fast: no
// scorer can produce candidates from nothing.
func (g *Generator) Generate(ctx context.Context, profile types.UserProfile, filtered []types.CatalogItem) (*Generation, error) {
	if len(filtered) == 0 {
		return nil, errors.NewNotFoundError(errors.ErrCodeCatalogEmpty,
			"No catalog items available to rank", nil)
	}

	candidates, usage, err := g.rankWithOracle(ctx, profile, filtered)
	source := SourceOracle
	var oracleErr error
	if err != nil {
		if g.oracle != nil {
			oracleErr = err
		}
		if g.logger != nil {
			g.logger.Warn("Oracle path failed, using fallback scorer",
				"error", err.Error())
		}
		candidates = g.fallback.Rank(profile, filtered)
		source = SourceFallback
		usage = nil
	}

	// Oracle may return fewer than requested after hallucination drops; top
	// up from the fallback ranking without duplicating ids.
	if source == SourceOracle && len(candidates) < g.cfg.TargetMatchCount {
		candidates = fillFromFallback(candidates, g.fallback.Rank(profile, filtered), g.cfg.TargetMatchCount)
	}

	candidates = g.applyPinPolicy(profile, candidates, filtered)

	if len(candidates) > g.cfg.TargetMatchCount {
		candidates = candidates[:g.cfg.TargetMatchCount]
	}

	return &Generation{
		Candidates: candidates,
		Source:     source,
		TokenUsage: usage,
		OracleErr:  oracleErr,
	}, nil
}

// rankWithOracle races the oracle against the configured timeout. The oracle
// goroutine writes to a buffered channel so a losing (late) result is
// discarded without leaking the goroutine.
func (g *Generator) rankWithOracle(ctx context.Context, profile types.UserProfile, filtered []types.CatalogItem) ([]types.MatchCandidate, *ai.TokenUsage, error) {
	if g.oracle == nil {
		return nil, nil, errors.NewAIError(errors.ErrCodeOracleFailed,
			"No ranking oracle configured", nil)
	}

	prompt, err := ai.BuildRankingPrompt(g.template(), profile, filtered, g.cfg.TargetMatchCount)
	if err != nil {
		return nil, nil, errors.NewInternalError(errors.ErrCodeInternal,
			"Failed to build ranking prompt", err)
	}

	oracleCtx, cancel := context.WithTimeout(ctx, g.cfg.OracleTimeout)
	defer cancel()

	type oracleResult struct {
		text  string
		usage *ai.TokenUsage
		err   error
	}
	results := make(chan oracleResult, 1)
	go func() {
		text, usage, err := g.oracle.Rank(oracleCtx, prompt)
		results <- oracleResult{text: text, usage: usage, err: err}
	}()

	select {
	case res := <-results:
		if res.err != nil {
			return nil, nil, res.err
		}
		candidates, err := Reconcile(res.text, filtered, profile.Stage, g.logger)
		if err != nil {
			return nil, res.usage, err
		}
		return candidates, res.usage, nil
	case <-oracleCtx.Done():
		return nil, nil, errors.NewTimeoutError(errors.ErrCodeOracleFailed,
			"Oracle did not answer within the ranking timeout", oracleCtx.Err())
	}
}

// fillFromFallback appends fallback candidates not already present until the
// list reaches target.
func fillFromFallback(candidates, fallback []types.MatchCandidate, target int) []types.MatchCandidate {
	have := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		have[c.CatalogItemID] = true
	}
	for _, fc := range fallback {
		if len(candidates) >= target {
			break
		}
		if have[fc.CatalogItemID] {
			continue
		}
		have[fc.CatalogItemID] = true
		candidates = append(candidates, fc)
	}
	return candidates
}

// applyPinPolicy optionally moves a trailblazer's current path to the front
// of the list with a near-perfect score. Off by default.
func (g *Generator) applyPinPolicy(profile types.UserProfile, candidates []types.MatchCandidate, filtered []types.CatalogItem) []types.MatchCandidate {
	if !g.cfg.PinCurrentPath || profile.Stage != types.StageTrailblazer || profile.CurrentPathID == "" {
		return candidates
	}

	var current *types.CatalogItem
	for i := range filtered {
		if filtered[i].ID == profile.CurrentPathID {
			current = &filtered[i]
			break
		}
	}
	if current == nil {
		return candidates
	}

	pinned := types.MatchCandidate{
		CatalogItemID:    current.ID,
		Score:            95,
		Reasoning:        "Continuing to grow within your current path builds directly on everything you have already invested.",
		Strengths:        defaultStrengths(profile.Stage),
		DevelopmentAreas: defaultDevelopmentAreas(profile.Stage),
		Recommendations:  defaultRecommendations(profile.Stage),
	}

	out := make([]types.MatchCandidate, 0, len(candidates)+1)
	out = append(out, pinned)
	for _, c := range candidates {
		if c.CatalogItemID == current.ID {
			continue
		}
		out = append(out, c)
	}
	return out
}

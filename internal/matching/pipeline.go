package matching

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"careermatch/internal/config"
	"careermatch/internal/errors"
	"careermatch/internal/observability"
	"careermatch/internal/store"
	"careermatch/internal/types"
)

// writeBackTimeout bounds the detached persistence work that outlives the
// request.
const writeBackTimeout = 10 * time.Second

// Pipeline orchestrates one match request end to end: fetch profile and
// catalog concurrently, normalize, pre-filter, generate candidates, enrich,
// and persist side effects without blocking the response.
type Pipeline struct {
	profiles  store.ProfileStore
	catalog   store.CatalogStore
	generator *Generator
	cfg       config.MatchingConfig
	logger    *errors.Logger
	metrics   *observability.Metrics
}

// NewPipeline wires a Pipeline from its collaborators. metrics may be nil.
func NewPipeline(profiles store.ProfileStore, catalog store.CatalogStore, generator *Generator, cfg config.MatchingConfig, logger *errors.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		profiles:  profiles,
		catalog:   catalog,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// Match executes a match request within the configured wall-clock budget.
// An empty catalog yields an empty result, not an error: there is simply
// nothing to recommend yet.
func (p *Pipeline) Match(ctx context.Context, req types.MatchRequest) (result *types.MatchResult, err error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			source := ""
			filtered := 0
			if result != nil {
				source = result.Source
				filtered = result.FilteredCatalogSize
			}
			p.metrics.RecordMatch(ctx, source, err, time.Since(start), filtered)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.OverallBudget)
	defer cancel()

	var (
		record  *types.ProfileRecord
		catalog []types.CatalogItem
	)

	g, fetchCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		record, err = p.profiles.Find(fetchCtx, req.ProfileID)
		return err
	})
	g.Go(func() error {
		var err error
		catalog, err = p.catalog.ListAll(fetchCtx, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, p.mapBudget(ctx, err)
	}

	profile, err := Normalize(req, record.Profile, p.cfg.MaxFreeTextLength)
	if err != nil {
		return nil, err
	}

	if len(catalog) == 0 {
		if p.logger != nil {
			p.logger.Warn("Catalog is empty, returning no matches",
				"profile_id", req.ProfileID)
		}
		p.writeBack(req.ProfileID, profile)
		return &types.MatchResult{Candidates: []types.MatchCandidate{}}, nil
	}

	filtered := PreFilter(profile, catalog, p.cfg)

	generation, err := p.generator.Generate(ctx, profile, filtered)
	if err != nil {
		return nil, p.mapBudget(ctx, err)
	}

	if p.metrics != nil {
		if generation.Source == SourceOracle || generation.OracleErr != nil {
			p.metrics.RecordOracleCall(ctx, generation.OracleErr)
		}
		if generation.TokenUsage != nil {
			p.metrics.RecordOracleTokens(ctx,
				generation.TokenUsage.InputTokens,
				generation.TokenUsage.OutputTokens,
				generation.TokenUsage.TotalTokens)
		}
	}

	Enrich(generation.Candidates, catalog)

	if p.logger != nil {
		p.logger.Info("Match request completed",
			"profile_id", req.ProfileID,
			"source", generation.Source,
			"candidates", len(generation.Candidates),
			"catalog_size", len(catalog),
			"filtered_size", len(filtered))
	}

	p.writeBack(req.ProfileID, profile)

	return &types.MatchResult{
		Candidates:          generation.Candidates,
		Source:              generation.Source,
		TotalCatalogSize:    len(catalog),
		FilteredCatalogSize: len(filtered),
	}, nil
}

// writeBack persists the normalized profile and the assessment flag on a
// detached context so a slow store never delays the response. Failures are
// logged and dropped: the flag write is best effort and idempotent, so a
// retry on the next request heals it.
func (p *Pipeline) writeBack(profileID string, profile types.UserProfile) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeBackTimeout)
		defer cancel()

		if err := p.profiles.SaveNormalized(ctx, profileID, profile); err != nil {
			if p.logger != nil {
				p.logger.LogError(err, "Failed to persist normalized profile",
					"profile_id", profileID)
			}
		}
		if err := p.profiles.MarkAssessmentCompleted(ctx, profileID); err != nil {
			if p.logger != nil {
				p.logger.LogError(err, "Failed to mark assessment completed",
					"profile_id", profileID)
			}
		}
	}()
}

// mapBudget converts context expiry into the budget error so callers can
// distinguish "the request took too long" from collaborator failures.
func (p *Pipeline) mapBudget(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.NewTimeoutError(errors.ErrCodeBudgetExceeded,
			"Match request exceeded its processing budget", err)
	}
	return err
}

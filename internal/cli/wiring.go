package cli

import (
	"context"

	"careermatch/internal/ai"
	"careermatch/internal/config"
	"careermatch/internal/errors"
	"careermatch/internal/matching"
	"careermatch/internal/observability"
	"careermatch/internal/store"
)

// appDeps holds the assembled collaborators shared by serve and match.
type appDeps struct {
	db           *store.DB
	oracleSvc    *ai.Service
	promptLoader *config.PromptLoader
	pipeline     *matching.Pipeline
}

// buildDeps wires the database, oracle, and matching pipeline from
// configuration. An unavailable oracle is not fatal: the pipeline degrades
// to fallback-only scoring, which keeps matching functional.
func buildDeps(ctx context.Context, cfg *config.Config, logger *errors.Logger, metrics *observability.Metrics) (*appDeps, error) {
	db, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	var oracleSvc *ai.Service
	var oracle ai.RankingOracle
	if svc, err := ai.NewService(ctx, &cfg.AI, logger); err != nil {
		logger.Warn("Ranking oracle unavailable, running with fallback scoring only",
			"error", err.Error())
	} else {
		oracleSvc = svc
		oracle = svc.Oracle
	}

	promptLoader, err := config.NewPromptLoader(
		ai.DefaultRankingPrompt,
		cfg.AI.PromptTemplate,
		cfg.AI.PromptTemplateFile,
		logger,
	)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := promptLoader.Watch(ctx); err != nil {
		logger.Warn("Prompt template hot reload disabled", "error", err.Error())
	}

	jitter := matching.NoJitter
	if cfg.Matching.JitterEnabled {
		jitter = matching.RandomJitter
	}

	generator := matching.NewGenerator(
		oracle,
		matching.NewFallbackScorer(jitter),
		promptLoader.Template,
		cfg.Matching,
		logger,
	)

	pipeline := matching.NewPipeline(
		store.NewProfilesRepo(db),
		store.NewCatalogRepo(db, cfg.Database.CatalogPageSize),
		generator,
		cfg.Matching,
		logger,
		metrics,
	)

	return &appDeps{
		db:           db,
		oracleSvc:    oracleSvc,
		promptLoader: promptLoader,
		pipeline:     pipeline,
	}, nil
}

func (d *appDeps) close() {
	if d.oracleSvc != nil {
		_ = d.oracleSvc.Oracle.Close()
	}
	d.db.Close()
}

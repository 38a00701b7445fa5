package matching

import (
	"context"
	"testing"
	"time"

	"careermatch/internal/ai"
	"careermatch/internal/errors"
	"careermatch/internal/types"
)

// fakeOracle scripts oracle behavior for generator tests.
type fakeOracle struct {
	response string
	err      error
	delay    time.Duration
	calls    int
}

func (f *fakeOracle) Rank(ctx context.Context, prompt string) (string, *ai.TokenUsage, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", nil, ctx.Err()
		}
	}
	if f.err != nil {
		return "", nil, f.err
	}
	return f.response, &ai.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, nil
}

func (f *fakeOracle) GetModelInfo(ctx context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "fake", Available: true}
}

func (f *fakeOracle) Close() error { return nil }

func newTestGenerator(oracle ai.RankingOracle) *Generator {
	cfg := testMatchingConfig()
	cfg.OracleTimeout = 200 * time.Millisecond
	return NewGenerator(oracle, NewFallbackScorer(NoJitter), nil, cfg, nil)
}

var generatorProfile = types.UserProfile{
	Stage:         types.StagePathfinder,
	CurrentSkills: []string{"Python"},
}

var generatorCatalog = []types.CatalogItem{
	{ID: "p1", Title: "Software Engineer", Industry: "Tech", RequiredSkills: []string{"Python"}, Level: types.LevelEntry},
	{ID: "p2", Title: "Data Analyst", Industry: "Tech", RequiredSkills: []string{"SQL"}},
	{ID: "p3", Title: "Product Manager", Industry: "Tech"},
	{ID: "p4", Title: "Designer", Industry: "Tech"},
	{ID: "p5", Title: "Researcher", Industry: "Tech"},
	{ID: "p6", Title: "Writer", Industry: "Media"},
}

func TestGenerateOraclePath(t *testing.T) {
	oracle := &fakeOracle{response: `{"matches":[
		{"pathId":"p1","score":95},{"pathId":"p2","score":80},{"pathId":"p3","score":70},
		{"pathId":"p4","score":60},{"pathId":"p5","score":55}
	]}`}
	gen := newTestGenerator(oracle)

	got, err := gen.Generate(context.Background(), generatorProfile, generatorCatalog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Source != SourceOracle {
		t.Errorf("source = %q, want oracle", got.Source)
	}
	if len(got.Candidates) != 5 {
		t.Errorf("candidates = %d, want target 5", len(got.Candidates))
	}
	if got.TokenUsage == nil || got.TokenUsage.TotalTokens != 15 {
		t.Errorf("token usage = %+v, want recorded", got.TokenUsage)
	}
}

func TestGenerateEmptyFilteredCatalog(t *testing.T) {
	gen := newTestGenerator(&fakeOracle{})

	_, err := gen.Generate(context.Background(), generatorProfile, nil)
	if !errors.HasCode(err, errors.ErrCodeCatalogEmpty) {
		t.Errorf("error = %v, want %s", err, errors.ErrCodeCatalogEmpty)
	}
}

func TestGenerateFallbackOnOracleError(t *testing.T) {
	oracle := &fakeOracle{err: errors.NewAIError(errors.ErrCodeOracleFailed, "boom", nil)}
	gen := newTestGenerator(oracle)

	got, err := gen.Generate(context.Background(), generatorProfile, generatorCatalog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Source != SourceFallback {
		t.Errorf("source = %q, want fallback", got.Source)
	}
	if len(got.Candidates) != 5 {
		t.Errorf("candidates = %d, want target 5", len(got.Candidates))
	}
	// Best overlap wins under the deterministic scorer.
	if got.Candidates[0].CatalogItemID != "p1" {
		t.Errorf("top fallback candidate = %s, want p1", got.Candidates[0].CatalogItemID)
	}
}

func TestGenerateFallbackOnUnparsableOutput(t *testing.T) {
	oracle := &fakeOracle{response: "I am sorry, I cannot help with that."}
	gen := newTestGenerator(oracle)

	got, err := gen.Generate(context.Background(), generatorProfile, generatorCatalog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Source != SourceFallback {
		t.Errorf("source = %q, want fallback after unparsable output", got.Source)
	}
}

func TestGenerateFallbackOnTimeout(t *testing.T) {
	oracle := &fakeOracle{
		response: `{"matches":[{"pathId":"p1","score":95}]}`,
		delay:    2 * time.Second,
	}
	gen := newTestGenerator(oracle)

	start := time.Now()
	got, err := gen.Generate(context.Background(), generatorProfile, generatorCatalog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Source != SourceFallback {
		t.Errorf("source = %q, want fallback after timeout", got.Source)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Generate() took %s, should abandon the oracle at its timeout", elapsed)
	}
}

func TestGeneratePartialOracleResultTopsUp(t *testing.T) {
	// Oracle returns two valid candidates plus a hallucination; the list is
	// topped up from the fallback ranking without duplicate ids.
	oracle := &fakeOracle{response: `{"matches":[
		{"pathId":"p1","score":95},
		{"pathId":"made-up","score":90},
		{"pathId":"p2","score":80}
	]}`}
	gen := newTestGenerator(oracle)

	got, err := gen.Generate(context.Background(), generatorProfile, generatorCatalog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Source != SourceOracle {
		t.Errorf("source = %q, want oracle despite top-up", got.Source)
	}
	if len(got.Candidates) != 5 {
		t.Fatalf("candidates = %d, want topped up to 5", len(got.Candidates))
	}

	seen := make(map[string]bool)
	for _, c := range got.Candidates {
		if seen[c.CatalogItemID] {
			t.Errorf("duplicate candidate %s", c.CatalogItemID)
		}
		seen[c.CatalogItemID] = true
	}
	if got.Candidates[0].CatalogItemID != "p1" || got.Candidates[1].CatalogItemID != "p2" {
		t.Errorf("oracle candidates should keep their positions, got %s, %s",
			got.Candidates[0].CatalogItemID, got.Candidates[1].CatalogItemID)
	}
}

func TestGenerateNilOracleUsesFallback(t *testing.T) {
	gen := newTestGenerator(nil)

	got, err := gen.Generate(context.Background(), generatorProfile, generatorCatalog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Source != SourceFallback {
		t.Errorf("source = %q, want fallback with no oracle configured", got.Source)
	}
}

func TestGeneratePinCurrentPath(t *testing.T) {
	oracle := &fakeOracle{response: `{"matches":[
		{"pathId":"p1","score":95},{"pathId":"p2","score":80},{"pathId":"p3","score":70}
	]}`}
	cfg := testMatchingConfig()
	cfg.OracleTimeout = 200 * time.Millisecond
	cfg.PinCurrentPath = true
	gen := NewGenerator(oracle, NewFallbackScorer(NoJitter), nil, cfg, nil)

	profile := generatorProfile
	profile.Stage = types.StageTrailblazer
	profile.CurrentPathID = "p3"

	got, err := gen.Generate(context.Background(), profile, generatorCatalog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Candidates[0].CatalogItemID != "p3" || got.Candidates[0].Score != 95 {
		t.Errorf("pinned = %s/%d, want p3/95 first", got.Candidates[0].CatalogItemID, got.Candidates[0].Score)
	}
	seen := make(map[string]int)
	for _, c := range got.Candidates {
		seen[c.CatalogItemID]++
	}
	if seen["p3"] != 1 {
		t.Errorf("p3 appears %d times, want exactly once", seen["p3"])
	}
}

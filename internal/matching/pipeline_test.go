package matching

import (
	"context"
	"sync"
	"testing"
	"time"

	"careermatch/internal/errors"
	"careermatch/internal/types"
)

// fakeProfileStore records writes so tests can assert on side effects.
type fakeProfileStore struct {
	mu        sync.Mutex
	record    *types.ProfileRecord
	findErr   error
	saved     *types.UserProfile
	completed bool
	writeDone chan struct{}
	writes    int
}

func newFakeProfileStore(record *types.ProfileRecord) *fakeProfileStore {
	return &fakeProfileStore{record: record, writeDone: make(chan struct{}, 2)}
}

func (f *fakeProfileStore) Find(ctx context.Context, externalID string) (*types.ProfileRecord, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.record, nil
}

func (f *fakeProfileStore) SaveNormalized(ctx context.Context, externalID string, profile types.UserProfile) error {
	f.mu.Lock()
	f.saved = &profile
	f.writes++
	f.mu.Unlock()
	f.writeDone <- struct{}{}
	return nil
}

func (f *fakeProfileStore) MarkAssessmentCompleted(ctx context.Context, externalID string) error {
	f.mu.Lock()
	f.completed = true
	f.writes++
	f.mu.Unlock()
	f.writeDone <- struct{}{}
	return nil
}

// fakeCatalogStore serves a fixed catalog, optionally slowly.
type fakeCatalogStore struct {
	items []types.CatalogItem
	delay time.Duration
	err   error
}

func (f *fakeCatalogStore) ListAll(ctx context.Context, limitHint int) ([]types.CatalogItem, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func testProfileRecord() *types.ProfileRecord {
	return &types.ProfileRecord{
		ExternalID: "u1",
		Profile: types.UserProfile{
			Stage:            types.StagePathfinder,
			CurrentSkills:    []string{"Python"},
			InterestedFields: []string{"Tech"},
		},
	}
}

func newTestPipeline(profiles *fakeProfileStore, catalog *fakeCatalogStore) *Pipeline {
	cfg := testMatchingConfig()
	cfg.OracleTimeout = 100 * time.Millisecond
	cfg.OverallBudget = 2 * time.Second
	gen := NewGenerator(nil, NewFallbackScorer(NoJitter), nil, cfg, nil)
	return NewPipeline(profiles, catalog, gen, cfg, nil, nil)
}

func waitForWrites(t *testing.T, f *fakeProfileStore, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-f.writeDone:
		case <-deadline:
			t.Fatal("timed out waiting for profile write-back")
		}
	}
}

func TestPipelineHappyPath(t *testing.T) {
	profiles := newFakeProfileStore(testProfileRecord())
	catalog := &fakeCatalogStore{items: generatorCatalog}
	p := newTestPipeline(profiles, catalog)

	result, err := p.Match(context.Background(), types.MatchRequest{ProfileID: "u1"})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates) > 5 {
		t.Errorf("candidates = %d, want 1..5", len(result.Candidates))
	}
	if result.TotalCatalogSize != len(generatorCatalog) {
		t.Errorf("TotalCatalogSize = %d, want %d", result.TotalCatalogSize, len(generatorCatalog))
	}
	if result.FilteredCatalogSize == 0 {
		t.Error("FilteredCatalogSize should be recorded")
	}
	if result.Source != SourceFallback {
		t.Errorf("Source = %q, want fallback with no oracle configured", result.Source)
	}
	for _, c := range result.Candidates {
		if c.Item == nil {
			t.Errorf("candidate %s not enriched with catalog item", c.CatalogItemID)
		}
	}

	waitForWrites(t, profiles, 2)
	profiles.mu.Lock()
	defer profiles.mu.Unlock()
	if !profiles.completed {
		t.Error("assessment flag not written back")
	}
	if profiles.saved == nil || profiles.saved.Stage != types.StagePathfinder {
		t.Errorf("normalized profile not persisted: %+v", profiles.saved)
	}
}

func TestPipelineProfileNotFound(t *testing.T) {
	profiles := newFakeProfileStore(nil)
	profiles.findErr = errors.NewNotFoundError(errors.ErrCodeProfileNotFound, "missing", nil)
	p := newTestPipeline(profiles, &fakeCatalogStore{items: generatorCatalog})

	_, err := p.Match(context.Background(), types.MatchRequest{ProfileID: "ghost"})
	if !errors.HasCode(err, errors.ErrCodeProfileNotFound) {
		t.Errorf("error = %v, want %s", err, errors.ErrCodeProfileNotFound)
	}
}

func TestPipelineMissingStagePropagates(t *testing.T) {
	record := testProfileRecord()
	record.Profile.Stage = ""
	profiles := newFakeProfileStore(record)
	p := newTestPipeline(profiles, &fakeCatalogStore{items: generatorCatalog})

	_, err := p.Match(context.Background(), types.MatchRequest{ProfileID: "u1"})
	if !errors.HasCode(err, errors.ErrCodeMissingStage) {
		t.Errorf("error = %v, want %s", err, errors.ErrCodeMissingStage)
	}
}

func TestPipelineEmptyCatalogYieldsEmptyResult(t *testing.T) {
	profiles := newFakeProfileStore(testProfileRecord())
	p := newTestPipeline(profiles, &fakeCatalogStore{items: nil})

	result, err := p.Match(context.Background(), types.MatchRequest{ProfileID: "u1"})
	if err != nil {
		t.Fatalf("Match() error = %v, want empty result instead", err)
	}
	if len(result.Candidates) != 0 {
		t.Errorf("candidates = %d, want 0", len(result.Candidates))
	}
}

func TestPipelineBudgetExceeded(t *testing.T) {
	profiles := newFakeProfileStore(testProfileRecord())
	catalog := &fakeCatalogStore{items: generatorCatalog, delay: 5 * time.Second}

	cfg := testMatchingConfig()
	cfg.OracleTimeout = 50 * time.Millisecond
	cfg.OverallBudget = 100 * time.Millisecond
	gen := NewGenerator(nil, NewFallbackScorer(NoJitter), nil, cfg, nil)
	p := NewPipeline(profiles, catalog, gen, cfg, nil, nil)

	_, err := p.Match(context.Background(), types.MatchRequest{ProfileID: "u1"})
	if !errors.HasCode(err, errors.ErrCodeBudgetExceeded) {
		t.Errorf("error = %v, want %s", err, errors.ErrCodeBudgetExceeded)
	}
}

func TestPipelineStoreFailurePropagates(t *testing.T) {
	profiles := newFakeProfileStore(testProfileRecord())
	catalog := &fakeCatalogStore{err: errors.NewStoreError(errors.ErrCodeStoreFailed, "db down", nil)}
	p := newTestPipeline(profiles, catalog)

	_, err := p.Match(context.Background(), types.MatchRequest{ProfileID: "u1"})
	if !errors.HasCode(err, errors.ErrCodeStoreFailed) {
		t.Errorf("error = %v, want %s", err, errors.ErrCodeStoreFailed)
	}
}

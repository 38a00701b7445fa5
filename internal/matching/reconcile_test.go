package matching

import (
	"testing"

	"careermatch/internal/errors"
	"careermatch/internal/types"
)

var reconcileCatalog = []types.CatalogItem{
	{ID: "p1", Title: "Software Engineer", Industry: "Tech"},
	{ID: "p2", Title: "Data Analyst", Industry: "Tech"},
	{ID: "p3", Title: "Product Manager", Industry: "Tech"},
}

func TestReconcileCleanObject(t *testing.T) {
	raw := `{"matches":[
		{"pathId":"p1","score":90,"reasoning":"Great fit","strengths":["a"],"developmentAreas":["b"],"recommendations":["c"]},
		{"pathId":"p2","score":70,"reasoning":"Decent fit","strengths":["a"],"developmentAreas":["b"],"recommendations":["c"]}
	]}`

	got, err := Reconcile(raw, reconcileCatalog, types.StagePathfinder, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].CatalogItemID != "p1" || got[0].Score != 90 {
		t.Errorf("first = %s/%d, want p1/90", got[0].CatalogItemID, got[0].Score)
	}
}

func TestReconcileBareArray(t *testing.T) {
	raw := `[{"id":"p2","score":80,"reasoning":"ok"}]`

	got, err := Reconcile(raw, reconcileCatalog, types.StagePathfinder, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(got) != 1 || got[0].CatalogItemID != "p2" {
		t.Fatalf("candidates = %v, want single p2", got)
	}
}

func TestReconcileAlternateKeys(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"recommendations list key", `{"recommendations":[{"pathId":"p1","score":75}]}`},
		{"candidates list key", `{"candidates":[{"pathId":"p1","score":75}]}`},
		{"catalogItemId id key", `{"matches":[{"catalogItemId":"p1","score":75}]}`},
		{"bare id key", `{"matches":[{"id":"p1","score":75}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reconcile(tt.raw, reconcileCatalog, types.StagePathfinder, nil)
			if err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if len(got) != 1 || got[0].CatalogItemID != "p1" {
				t.Errorf("candidates = %v, want single p1", got)
			}
		})
	}
}

func TestReconcileMarkdownFences(t *testing.T) {
	raw := "```json\n{\"matches\":[{\"pathId\":\"p1\",\"score\":88}]}\n```"

	got, err := Reconcile(raw, reconcileCatalog, types.StagePathfinder, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(got) != 1 || got[0].Score != 88 {
		t.Fatalf("candidates = %v, want p1/88", got)
	}
}

func TestReconcileProseWrapped(t *testing.T) {
	raw := `Here are your matches: {"matches":[{"pathId":"p2","score":66}]} Hope this helps!`

	got, err := Reconcile(raw, reconcileCatalog, types.StagePathfinder, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(got) != 1 || got[0].CatalogItemID != "p2" {
		t.Fatalf("candidates = %v, want single p2", got)
	}
}

func TestReconcileTrailingCommaRepair(t *testing.T) {
	raw := "```json\n{\"matches\":[{\"pathId\":\"p1\",\"score\":90,},]}\n```"

	got, err := Reconcile(raw, reconcileCatalog, types.StagePathfinder, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(got) != 1 || got[0].Score != 90 {
		t.Fatalf("candidates = %v, want p1/90", got)
	}
}

func TestReconcileUnparsable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"prose only", "I cannot rank these paths, sorry."},
		{"empty", ""},
		{"wrong shape", `{"verdict":"good"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reconcile(tt.raw, reconcileCatalog, types.StagePathfinder, nil)
			if err == nil {
				t.Fatal("Reconcile() expected error")
			}
			if !errors.HasCode(err, errors.ErrCodeOracleUnparsable) {
				t.Errorf("error = %v, want code %s", err, errors.ErrCodeOracleUnparsable)
			}
		})
	}
}

func TestReconcileDropsHallucinatedIDs(t *testing.T) {
	raw := `{"matches":[
		{"pathId":"p1","score":90},
		{"pathId":"invented-path","score":99},
		{"pathId":"p3","score":60}
	]}`

	got, err := Reconcile(raw, reconcileCatalog, types.StagePathfinder, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2 after hallucination drop", len(got))
	}
	for _, c := range got {
		if c.CatalogItemID == "invented-path" {
			t.Error("hallucinated id survived reconciliation")
		}
	}
}

func TestReconcileScoreCoercion(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"numeric string", `{"matches":[{"pathId":"p1","score":"87"}]}`, 87},
		{"float rounds", `{"matches":[{"pathId":"p1","score":86.6}]}`, 87},
		{"missing defaults", `{"matches":[{"pathId":"p1"}]}`, 50},
		{"garbage defaults", `{"matches":[{"pathId":"p1","score":"great"}]}`, 50},
		{"null defaults", `{"matches":[{"pathId":"p1","score":null}]}`, 50},
		{"above range clamps", `{"matches":[{"pathId":"p1","score":150}]}`, 100},
		{"below range clamps", `{"matches":[{"pathId":"p1","score":-20}]}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reconcile(tt.raw, reconcileCatalog, types.StagePathfinder, nil)
			if err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if len(got) != 1 || got[0].Score != tt.want {
				t.Errorf("score = %d, want %d", got[0].Score, tt.want)
			}
		})
	}
}

func TestReconcileListBoundsAndFill(t *testing.T) {
	raw := `{"matches":[{
		"pathId":"p1","score":90,
		"strengths":["s1","s2","s3","s4","s5"],
		"developmentAreas":[],
		"recommendations":"just one"
	}]}`

	got, err := Reconcile(raw, reconcileCatalog, types.StageTrailblazer, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	c := got[0]

	if len(c.Strengths) != types.MaxStrengths {
		t.Errorf("strengths = %d, want truncated to %d", len(c.Strengths), types.MaxStrengths)
	}
	// Empty lists fall back to stage templates.
	if len(c.DevelopmentAreas) == 0 {
		t.Error("empty developmentAreas should be filled from stage defaults")
	}
	// Scalar coerces to a single-entry list.
	if len(c.Recommendations) != 1 || c.Recommendations[0] != "just one" {
		t.Errorf("recommendations = %v, want coerced scalar", c.Recommendations)
	}
}

func TestReconcileSortsByScoreDescending(t *testing.T) {
	raw := `{"matches":[
		{"pathId":"p2","score":60},
		{"pathId":"p1","score":90},
		{"pathId":"p3","score":60}
	]}`

	got, err := Reconcile(raw, reconcileCatalog, types.StagePathfinder, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if got[0].CatalogItemID != "p1" {
		t.Errorf("first = %s, want highest score first", got[0].CatalogItemID)
	}
	// Stable: equal scores keep oracle order.
	if got[1].CatalogItemID != "p2" || got[2].CatalogItemID != "p3" {
		t.Errorf("tie order = %s, %s; want p2, p3", got[1].CatalogItemID, got[2].CatalogItemID)
	}
}

func TestEnrichAttachesCatalogItems(t *testing.T) {
	candidates := []types.MatchCandidate{
		{CatalogItemID: "p1", Score: 90},
		{CatalogItemID: "ghost", Score: 50},
	}

	Enrich(candidates, reconcileCatalog)

	if candidates[0].Item == nil || candidates[0].Item.Title != "Software Engineer" {
		t.Errorf("p1 not enriched: %+v", candidates[0].Item)
	}
	if candidates[1].Item != nil {
		t.Error("unknown id should stay unenriched")
	}
}

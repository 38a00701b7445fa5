package matching

import (
	"math/rand/v2"
	"sort"

	"careermatch/internal/types"
)

// Fixed scoring constants for the deterministic fallback. These are part of
// the scorer's contract, not tunables: the base guarantees every surfaced
// candidate clears the "plausible recommendation" bar, and the per-signal
// increments keep a two-signal match comfortably above a cold one.
const (
	fallbackBaseScore      = 25
	fallbackSkillPoints    = 25
	fallbackInterestPoints = 20
	fallbackIndustryPoints = 25
	fallbackStageFitPoints = 10

	// maxSortJitter bounds the random tie-break perturbation. Jitter affects
	// ordering only; reported scores stay deterministic.
	maxSortJitter = 10
)

// stageLevelFit maps each career stage to the catalog levels considered a
// natural fit for it.
var stageLevelFit = map[types.Stage]map[types.Level]bool{
	types.StagePathfinder:     {types.LevelEntry: true},
	types.StageTrailblazer:    {types.LevelEntry: true, types.LevelMid: true},
	types.StageHorizonChanger: {types.LevelMid: true, types.LevelSenior: true},
}

// JitterFunc produces a non-negative perturbation up to max inclusive.
type JitterFunc func(max int) int

// RandomJitter is the production jitter source.
func RandomJitter(max int) int {
	if max <= 0 {
		return 0
	}
	return rand.IntN(max + 1)
}

// NoJitter disables ordering perturbation, making rankings fully
// deterministic.
func NoJitter(int) int { return 0 }

// FallbackScorer ranks the catalog with a fixed weighted formula when the
// oracle is unavailable or unusable. Pure computation over its inputs; no
// I/O, no failure modes beyond an empty catalog yielding an empty ranking.
type FallbackScorer struct {
	jitter JitterFunc
}

// NewFallbackScorer creates a scorer with the given jitter source. A nil
// jitter disables perturbation.
func NewFallbackScorer(jitter JitterFunc) *FallbackScorer {
	if jitter == nil {
		jitter = NoJitter
	}
	return &FallbackScorer{jitter: jitter}
}

// Rank scores every catalog item against the profile and returns all of them
// ordered by score descending. Callers truncate to their target count.
func (s *FallbackScorer) Rank(profile types.UserProfile, catalog []types.CatalogItem) []types.MatchCandidate {
	userSkills := unionLists(profile.CurrentSkills, profile.SkillsToLearn)

	type ranked struct {
		candidate types.MatchCandidate
		sortKey   int
	}
	out := make([]ranked, 0, len(catalog))

	for _, item := range catalog {
		skills := matchedTokens(userSkills, item.RequiredSkills)
		interests := matchedTokens(profile.Interests, item.RequiredInterests)
		industryHit := anyOverlap(item.Industry, profile.InterestedFields)
		stageFit := item.Level != "" && stageLevelFit[profile.Stage][item.Level]

		score := fallbackBaseScore
		score += fallbackSkillPoints * len(skills)
		score += fallbackInterestPoints * len(interests)
		if industryHit {
			score += fallbackIndustryPoints
		}
		if stageFit {
			score += fallbackStageFitPoints
		}
		score = clampScore(score)

		out = append(out, ranked{
			candidate: types.MatchCandidate{
				CatalogItemID:    item.ID,
				Score:            score,
				Reasoning:        buildReasoning(item, skills, interests, industryHit),
				Strengths:        defaultStrengths(profile.Stage),
				DevelopmentAreas: defaultDevelopmentAreas(profile.Stage),
				Recommendations:  defaultRecommendations(profile.Stage),
			},
			sortKey: score + s.jitter(maxSortJitter),
		})
	}

	// Stable sort: catalog order breaks ties on equal sort keys.
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].sortKey > out[b].sortKey
	})

	candidates := make([]types.MatchCandidate, len(out))
	for i, r := range out {
		candidates[i] = r.candidate
	}
	return candidates
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

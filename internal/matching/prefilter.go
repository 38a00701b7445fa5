package matching

import (
	"sort"

	"careermatch/internal/config"
	"careermatch/internal/types"
)

// PreFilter trims the catalog to the subset most relevant to the profile so
// that oracle prompt size stays bounded regardless of catalog size. It is a
// pure function: the input catalog is never mutated and item order within
// equal relevance follows catalog order.
func PreFilter(profile types.UserProfile, catalog []types.CatalogItem, cfg config.MatchingConfig) []types.CatalogItem {
	if len(catalog) == 0 {
		return []types.CatalogItem{}
	}

	maxSize := cfg.PreFilterMaxSize
	if maxSize <= 0 {
		maxSize = len(catalog)
	}

	userSkills := unionLists(profile.CurrentSkills, profile.SkillsToLearn)

	// Cold profile: nothing to rank on, take the catalog head verbatim.
	if len(userSkills) == 0 && len(profile.Interests) == 0 && len(profile.InterestedFields) == 0 {
		return copyHead(catalog, maxSize)
	}

	type scored struct {
		index int
		score int
	}
	relevant := make([]scored, 0, len(catalog))
	selected := make(map[int]bool, len(catalog))

	for i, item := range catalog {
		score := 0
		score += cfg.Weights.Skills * countOverlap(userSkills, item.RequiredSkills)
		score += cfg.Weights.Interests * countOverlap(profile.Interests, item.RequiredInterests)
		if anyOverlap(item.Industry, profile.InterestedFields) {
			score += cfg.Weights.Industry
		}
		if profile.Education != "" && anyOverlap(profile.Education, item.SuggestedEducation) {
			score += cfg.Weights.Education
		}
		if score > 0 {
			relevant = append(relevant, scored{index: i, score: score})
			selected[i] = true
		}
	}

	// Stable sort keeps catalog order among equal scores.
	sort.SliceStable(relevant, func(a, b int) bool {
		return relevant[a].score > relevant[b].score
	})

	out := make([]types.CatalogItem, 0, maxSize)
	for _, s := range relevant {
		if len(out) >= maxSize {
			break
		}
		out = append(out, catalog[s.index])
	}

	// Pad up to the floor with unselected items in catalog order so the
	// oracle always sees a reasonable spread even for narrow profiles.
	floor := cfg.PreFilterFloor
	if floor > maxSize {
		floor = maxSize
	}
	for i := 0; len(out) < floor && i < len(catalog); i++ {
		if selected[i] {
			continue
		}
		out = append(out, catalog[i])
	}

	return out
}

func unionLists(lists ...[]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, entry := range list {
			key := normalizeToken(entry)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, entry)
		}
	}
	return out
}

func copyHead(catalog []types.CatalogItem, n int) []types.CatalogItem {
	if n > len(catalog) {
		n = len(catalog)
	}
	out := make([]types.CatalogItem, n)
	copy(out, catalog[:n])
	return out
}

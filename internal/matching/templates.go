package matching

import (
	"fmt"
	"strings"

	"careermatch/internal/types"
)

// Template text pools keyed by career stage. Used by the fallback scorer for
// every candidate and by the reconciler to fill list fields the oracle left
// empty.

var stageStrengths = map[types.Stage][]string{
	types.StagePathfinder: {
		"Fresh perspective unburdened by industry habits",
		"Strong motivation to build foundational skills",
		"Flexibility to shape your path from the ground up",
	},
	types.StageTrailblazer: {
		"Proven track record in your current field",
		"Established professional network to build on",
		"Deep familiarity with workplace dynamics",
	},
	types.StageHorizonChanger: {
		"Transferable experience from your previous field",
		"Demonstrated ability to commit to a career",
		"Mature judgment from years of professional practice",
	},
}

var stageDevelopmentAreas = map[types.Stage][]string{
	types.StagePathfinder: {
		"Build hands-on experience through projects or internships",
		"Develop the core technical skills this path requires",
		"Learn how this industry operates day to day",
	},
	types.StageTrailblazer: {
		"Deepen specialist expertise in your strongest areas",
		"Grow leadership and mentoring capabilities",
		"Broaden exposure beyond your current role",
	},
	types.StageHorizonChanger: {
		"Close the gap on field-specific technical skills",
		"Translate your existing experience into this domain's terms",
		"Rebuild your professional network in the new field",
	},
}

var stageRecommendations = map[types.Stage][]string{
	types.StagePathfinder: {
		"Take an introductory course covering the required skills",
		"Talk to people already working in this path",
		"Start a small portfolio project to test your interest",
		"Look for entry-level or internship openings in this area",
	},
	types.StageTrailblazer: {
		"Identify which of your current skills carry over directly",
		"Seek stretch assignments that point toward this path",
		"Find a mentor who has made a similar move",
		"Set a 12-month milestone plan for the transition",
	},
	types.StageHorizonChanger: {
		"Map your transferable skills against the path requirements",
		"Pursue a recognized certification in the new field",
		"Attend industry events to build contacts in the target area",
		"Consider a bridging role that straddles both fields",
	},
}

func defaultStrengths(stage types.Stage) []string {
	if texts, ok := stageStrengths[stage]; ok {
		return capList(texts, types.MaxStrengths)
	}
	return capList(stageStrengths[types.StagePathfinder], types.MaxStrengths)
}

func defaultDevelopmentAreas(stage types.Stage) []string {
	if texts, ok := stageDevelopmentAreas[stage]; ok {
		return capList(texts, types.MaxDevelopmentAreas)
	}
	return capList(stageDevelopmentAreas[types.StagePathfinder], types.MaxDevelopmentAreas)
}

func defaultRecommendations(stage types.Stage) []string {
	if texts, ok := stageRecommendations[stage]; ok {
		return capList(texts, types.MaxRecommendations)
	}
	return capList(stageRecommendations[types.StagePathfinder], types.MaxRecommendations)
}

// capList returns a bounded copy so callers can append without aliasing the
// shared pools.
func capList(texts []string, max int) []string {
	if len(texts) > max {
		texts = texts[:max]
	}
	out := make([]string, len(texts))
	copy(out, texts)
	return out
}

// buildReasoning composes a deterministic reasoning sentence from the
// concrete overlaps that produced the score.
func buildReasoning(item types.CatalogItem, matchedSkills, matchedInterests []string, industryMatch bool) string {
	var parts []string
	if len(matchedSkills) > 0 {
		parts = append(parts, fmt.Sprintf("your skills in %s", joinNatural(matchedSkills)))
	}
	if len(matchedInterests) > 0 {
		parts = append(parts, fmt.Sprintf("your interest in %s", joinNatural(matchedInterests)))
	}
	if industryMatch {
		parts = append(parts, fmt.Sprintf("your stated interest in the %s industry", item.Industry))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%s offers a broad entry point worth exploring given your profile.", item.Title)
	}
	return fmt.Sprintf("%s is a strong fit based on %s.", item.Title, joinNatural(parts))
}

func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

// Package matching implements the profile-to-catalog matching pipeline:
// normalization, pre-filtering, oracle-backed candidate generation with a
// deterministic fallback, and reconciliation of oracle output.
package matching

import (
	"strings"

	"careermatch/internal/errors"
	"careermatch/internal/types"
)

// Normalize merges an inbound request with the stored profile into the
// canonical UserProfile. Payload values win field by field; a field absent
// from the payload falls back to the stored profile. The result always has
// non-nil slice fields and a known stage.
func Normalize(req types.MatchRequest, stored types.UserProfile, maxFreeText int) (types.UserProfile, error) {
	var profile types.UserProfile

	stageRaw := firstNonBlank(req.Stage, req.Answers.Stage, string(stored.Stage))
	stage, ok := types.ParseStage(stageRaw)
	if !ok {
		return profile, errors.NewValidationError(errors.ErrCodeMissingStage,
			"Career stage is required but was not provided in the request or the stored profile", nil)
	}
	profile.Stage = stage

	profile.Education = firstNonBlank(req.Answers.Education, stored.Education)
	profile.CurrentPathID = firstNonBlank(req.Answers.CurrentPathID, stored.CurrentPathID)
	profile.SeniorityLevel = firstNonBlank(req.Answers.SeniorityLevel, stored.SeniorityLevel)

	profile.CurrentSkills = mergeList(req.Answers.CurrentSkills, stored.CurrentSkills)
	profile.SkillsToLearn = mergeList(req.Answers.SkillsToLearn, stored.SkillsToLearn)
	profile.Interests = mergeList(req.Answers.Interests, stored.Interests)
	profile.InterestedFields = mergeList(req.Answers.InterestedFields, stored.InterestedFields)

	if req.Answers.YearsExperience != nil {
		years := *req.Answers.YearsExperience
		profile.YearsExperience = &years
	} else if stored.YearsExperience != nil {
		years := *stored.YearsExperience
		profile.YearsExperience = &years
	}

	freeText := firstNonBlank(req.Answers.FreeTextContext, stored.FreeTextContext)
	profile.FreeTextContext = truncateRunes(strings.TrimSpace(freeText), maxFreeText)

	return profile, nil
}

// mergeList prefers the payload list when the field was present (non-nil),
// even if it was explicitly empty. Entries are trimmed, blanks dropped, and
// duplicates removed case-insensitively while preserving first-seen order.
func mergeList(payload types.StringList, stored []string) []string {
	if payload != nil {
		return cleanList(payload)
	}
	return cleanList(stored)
}

func cleanList(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key := strings.ToLower(entry)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, entry)
	}
	return out
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// truncateRunes bounds s to max runes, not bytes, so multi-byte input is
// never cut mid-character.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

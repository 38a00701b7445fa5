package matching

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"careermatch/internal/errors"
	"careermatch/internal/schemas"
	"careermatch/internal/types"
)

// defaultScore stands in when the oracle omits a score or produces one that
// cannot be coerced to a number.
const defaultScore = 50

// candidate reference and list keys accepted from the oracle, in precedence
// order.
var (
	candidateIDKeys   = []string{"pathId", "catalogItemId", "id"}
	candidateListKeys = []string{"matches", "recommendations", "candidates"}
)

// Reconcile turns raw oracle output into validated, enriched candidates.
// filtered is the catalog subset the oracle was shown: any candidate
// referencing an id outside it is a hallucination and is dropped. The result
// is ordered by score descending, oracle order breaking ties.
func Reconcile(raw string, filtered []types.CatalogItem, stage types.Stage, logger *errors.Logger) ([]types.MatchCandidate, error) {
	doc, err := extractDocument(raw)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeOracleUnparsable,
			"Oracle output is not parseable as JSON", err)
	}

	if err := schemas.ValidateRanking(doc); err != nil {
		return nil, errors.NewAIError(errors.ErrCodeOracleUnparsable,
			"Oracle output does not match the expected ranking shape", err)
	}

	rawCandidates, err := decodeCandidateList(doc)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeOracleUnparsable,
			"Oracle output holds no usable candidate list", err)
	}

	known := make(map[string]bool, len(filtered))
	for _, item := range filtered {
		known[item.ID] = true
	}

	candidates := make([]types.MatchCandidate, 0, len(rawCandidates))
	for _, rc := range rawCandidates {
		id := extractCandidateID(rc)
		if id == "" {
			continue
		}
		if !known[id] {
			if logger != nil {
				logger.Warn("Dropping hallucinated candidate",
					"catalog_item_id", id)
			}
			continue
		}

		candidates = append(candidates, types.MatchCandidate{
			CatalogItemID:    id,
			Score:            coerceScore(rc["score"]),
			Reasoning:        coerceString(rc["reasoning"]),
			Strengths:        boundList(coerceStringList(rc["strengths"]), types.MaxStrengths, defaultStrengths(stage)),
			DevelopmentAreas: boundList(coerceStringList(rc["developmentAreas"]), types.MaxDevelopmentAreas, defaultDevelopmentAreas(stage)),
			Recommendations:  boundList(coerceStringList(rc["recommendations"]), types.MaxRecommendations, defaultRecommendations(stage)),
		})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Score > candidates[b].Score
	})

	return candidates, nil
}

// Enrich attaches the full catalog item to each candidate so response fields
// trimmed during pre-filtering (descriptions, salary ranges) survive to the
// caller. Candidates referencing unknown ids are left unenriched.
func Enrich(candidates []types.MatchCandidate, catalog []types.CatalogItem) {
	index := make(map[string]*types.CatalogItem, len(catalog))
	for i := range catalog {
		index[catalog[i].ID] = &catalog[i]
	}
	for i := range candidates {
		if item, ok := index[candidates[i].CatalogItemID]; ok {
			candidates[i].Item = item
		}
	}
}

// extractDocument recovers a JSON document from untrusted oracle text using
// progressively more aggressive repair stages: as-is, markdown fence
// stripping, balanced bracket extraction, then trailing comma removal.
func extractDocument(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty oracle output")
	}

	stages := []string{
		raw,
		stripCodeFences(raw),
	}
	if extracted := extractBalanced(stages[len(stages)-1]); extracted != "" {
		stages = append(stages, extracted)
	}
	stages = append(stages, repairTrailingCommas(stages[len(stages)-1]))

	for _, stage := range stages {
		stage = strings.TrimSpace(stage)
		if stage == "" {
			continue
		}
		if json.Valid([]byte(stage)) {
			return []byte(stage), nil
		}
	}

	return nil, fmt.Errorf("no parseable JSON document after repair")
}

// stripCodeFences removes a surrounding markdown code fence, with or without
// a language tag.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		firstLine := strings.TrimSpace(trimmed[:idx])
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{}[]") {
			trimmed = trimmed[idx+1:]
		}
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// extractBalanced finds the first '{' or '[' and returns the substring up to
// its balanced closing bracket, skipping brackets inside JSON strings.
// Returns "" when no balanced region exists.
func extractBalanced(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}

	open := s[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// repairTrailingCommas removes commas directly preceding a closing bracket,
// the most common oracle malformation. String contents are preserved.
func repairTrailingCommas(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			sb.WriteByte(c)
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == ',':
			// Look past whitespace: drop the comma if a closer follows.
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// decodeCandidateList pulls the candidate array out of the validated
// document, whether it is a bare array or nested under a known list key.
func decodeCandidateList(doc []byte) ([]map[string]any, error) {
	var list []map[string]any
	if err := json.Unmarshal(doc, &list); err == nil {
		return list, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(doc, &envelope); err != nil {
		return nil, fmt.Errorf("document is neither a candidate array nor an object: %w", err)
	}

	for _, key := range candidateListKeys {
		rawList, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(rawList, &list); err != nil {
			return nil, fmt.Errorf("list under %q is not a candidate array: %w", key, err)
		}
		return list, nil
	}

	return nil, fmt.Errorf("no candidate list under any known key")
}

func extractCandidateID(rc map[string]any) string {
	for _, key := range candidateIDKeys {
		if id := strings.TrimSpace(coerceString(rc[key])); id != "" {
			return id
		}
	}
	return ""
}

// coerceScore accepts numbers, numeric strings, and bools; anything else,
// including absence, yields the default. Results are clamped to [0, 100].
func coerceScore(v any) int {
	switch val := v.(type) {
	case float64:
		return clampScore(int(val + 0.5))
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return clampScore(int(f + 0.5))
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return clampScore(int(f + 0.5))
		}
	case bool:
		if val {
			return 100
		}
		return 0
	}
	return defaultScore
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

// coerceStringList accepts an array of anything stringable or a bare scalar.
func coerceStringList(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, entry := range val {
			if s := strings.TrimSpace(coerceString(entry)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	}
	return nil
}

// boundList truncates to max entries and substitutes the stage defaults when
// the oracle produced nothing usable.
func boundList(list []string, max int, fill []string) []string {
	if len(list) == 0 {
		return fill
	}
	if len(list) > max {
		list = list[:max]
	}
	return list
}

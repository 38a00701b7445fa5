package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"careermatch/internal/types"
)

// DefaultRankingPrompt is the compiled-in prompt template. Deployments can
// override it through configuration or a watched template file.
const DefaultRankingPrompt = `You are a career guidance expert. Rank the career paths below for the given user profile.

User profile:
{{PROFILE_JSON}}

Career paths catalog:
{{CATALOG_JSON}}

Select the {{TARGET_COUNT}} best matching career paths for this user. Respond with ONLY a JSON object of the form:
{"matches": [{"pathId": "<catalog id>", "score": <0-100 integer>, "reasoning": "<one or two sentences>", "strengths": ["..."], "developmentAreas": ["..."], "recommendations": ["..."]}]}

Rules:
- pathId MUST be an id taken from the catalog above. Never invent ids.
- score reflects overall fit, 100 being a perfect match.
- strengths and developmentAreas each hold at most 3 short items; recommendations at most 4.
- Do not wrap the JSON in markdown fences or add commentary.`

// promptCandidate is the trimmed catalog view serialized into the prompt.
// Descriptions are dropped to keep prompt size proportional to the
// pre-filtered catalog, not to catalog prose.
type promptCandidate struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Industry           string   `json:"industry"`
	RequiredSkills     []string `json:"requiredSkills,omitempty"`
	RequiredInterests  []string `json:"requiredInterests,omitempty"`
	SuggestedEducation []string `json:"suggestedEducation,omitempty"`
	Level              string   `json:"level,omitempty"`
}

// BuildRankingPrompt renders the prompt template for a profile and a
// pre-filtered catalog.
func BuildRankingPrompt(template string, profile types.UserProfile, catalog []types.CatalogItem, targetCount int) (string, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultRankingPrompt
	}

	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile payload: %w", err)
	}

	trimmed := make([]promptCandidate, 0, len(catalog))
	for _, item := range catalog {
		trimmed = append(trimmed, promptCandidate{
			ID:                 item.ID,
			Title:              item.Title,
			Industry:           item.Industry,
			RequiredSkills:     item.RequiredSkills,
			RequiredInterests:  item.RequiredInterests,
			SuggestedEducation: item.SuggestedEducation,
			Level:              string(item.Level),
		})
	}

	catalogJSON, err := json.MarshalIndent(trimmed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal catalog payload: %w", err)
	}

	prompt := strings.ReplaceAll(template, "{{PROFILE_JSON}}", string(profileJSON))
	prompt = strings.ReplaceAll(prompt, "{{CATALOG_JSON}}", string(catalogJSON))
	prompt = strings.ReplaceAll(prompt, "{{TARGET_COUNT}}", fmt.Sprintf("%d", targetCount))

	return prompt, nil
}

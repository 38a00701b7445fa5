package types

import (
	"encoding/json"
	"strings"
)

// Stage identifies where a user is in their career journey.
type Stage string

const (
	StagePathfinder     Stage = "pathfinder"      // exploring a first career
	StageTrailblazer    Stage = "trailblazer"     // growing within a chosen path
	StageHorizonChanger Stage = "horizon_changer" // switching into a new field
)

// ParseStage normalizes free-form stage input to a known Stage value.
// Returns false when the input does not name a known stage.
func ParseStage(raw string) (Stage, bool) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, "-", "_"))) {
	case string(StagePathfinder):
		return StagePathfinder, true
	case string(StageTrailblazer):
		return StageTrailblazer, true
	case string(StageHorizonChanger), "horizonchanger":
		return StageHorizonChanger, true
	default:
		return "", false
	}
}

// Level is the seniority band of a catalog item.
type Level string

const (
	LevelEntry  Level = "entry"
	LevelMid    Level = "mid"
	LevelSenior Level = "senior"
)

// StringList unmarshals from either a JSON array of strings or a single
// scalar. Survey payloads are inconsistent about this, so the type absorbs
// the difference instead of every caller coercing by hand.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			*s = []string{}
		} else {
			*s = []string{single}
		}
		return nil
	}

	// Anything else (number, bool, object) is treated as absent rather than
	// failing the whole request.
	*s = []string{}
	return nil
}

// UserProfile is the canonical, normalized representation of a candidate
// seeking matches. All slice fields are non-nil after normalization so that
// downstream overlap computations are total.
type UserProfile struct {
	Stage            Stage    `json:"stage"`
	Education        string   `json:"education,omitempty"`
	CurrentSkills    []string `json:"currentSkills"`
	SkillsToLearn    []string `json:"skillsToLearn"`
	Interests        []string `json:"interests"`
	InterestedFields []string `json:"interestedFields"`
	CurrentPathID    string   `json:"currentPathId,omitempty"`
	YearsExperience  *int     `json:"yearsExperience,omitempty"`
	SeniorityLevel   string   `json:"seniorityLevel,omitempty"`
	FreeTextContext  string   `json:"freeTextContext,omitempty"`
}

// ProfileRecord is what the profile store holds: the matching-relevant profile
// plus identity fields irrelevant to scoring.
type ProfileRecord struct {
	ExternalID          string      `json:"externalId"`
	Email               string      `json:"email,omitempty"`
	DisplayName         string      `json:"displayName,omitempty"`
	Profile             UserProfile `json:"profile"`
	AssessmentCompleted bool        `json:"assessmentCompleted"`
}

// SalaryRange is an optional min/max salary pair on a catalog item.
type SalaryRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// CatalogItem is one candidate career path. Read-only within a match request.
type CatalogItem struct {
	ID                 string       `json:"id"`
	Title              string       `json:"title"`
	Industry           string       `json:"industry"`
	RequiredSkills     []string     `json:"requiredSkills"`
	RequiredInterests  []string     `json:"requiredInterests"`
	SuggestedEducation []string     `json:"suggestedEducation"`
	Salary             *SalaryRange `json:"salary,omitempty"`
	Level              Level        `json:"level,omitempty"`
	Description        string       `json:"description,omitempty"`
}

// MatchCandidate is one scored recommendation. Item is populated during
// enrichment from the full catalog so that fields trimmed by pre-filtering
// are preserved in the response.
type MatchCandidate struct {
	CatalogItemID    string       `json:"catalogItemId"`
	Score            int          `json:"score"`
	Reasoning        string       `json:"reasoning"`
	Strengths        []string     `json:"strengths"`
	DevelopmentAreas []string     `json:"developmentAreas"`
	Recommendations  []string     `json:"recommendations"`
	Item             *CatalogItem `json:"item,omitempty"`
}

// Bounds on candidate list fields.
const (
	MaxStrengths        = 3
	MaxDevelopmentAreas = 3
	MaxRecommendations  = 4
)

// MatchResult is the final output of a match request: candidates ordered by
// score descending (catalog order breaking ties), bounded by the configured
// target count.
type MatchResult struct {
	Candidates          []MatchCandidate `json:"matches"`
	Source              string           `json:"source"` // "oracle" or "fallback"
	TotalCatalogSize    int              `json:"totalCatalogSize"`
	FilteredCatalogSize int              `json:"filteredCatalogSize"`
}

// MatchAnswers carries the survey answers of an inbound match request.
// Every array-typed field tolerates scalar or absent input.
type MatchAnswers struct {
	Stage            string     `json:"stage,omitempty"`
	Education        string     `json:"education,omitempty"`
	CurrentSkills    StringList `json:"currentSkills,omitempty"`
	SkillsToLearn    StringList `json:"skillsToLearn,omitempty"`
	Interests        StringList `json:"interests,omitempty"`
	InterestedFields StringList `json:"interestedFields,omitempty"`
	CurrentPathID    string     `json:"currentPathId,omitempty"`
	YearsExperience  *int       `json:"yearsExperience,omitempty"`
	SeniorityLevel   string     `json:"seniorityLevel,omitempty"`
	FreeTextContext  string     `json:"freeTextContext,omitempty"`
}

// MatchRequest is the public surface of the matcher.
type MatchRequest struct {
	ProfileID string       `json:"profileId" validate:"required"`
	Stage     string       `json:"stage,omitempty"`
	Answers   MatchAnswers `json:"answers"`
}

package types

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseStage(t *testing.T) {
	tests := []struct {
		input  string
		want   Stage
		wantOK bool
	}{
		{"pathfinder", StagePathfinder, true},
		{"Pathfinder", StagePathfinder, true},
		{"  trailblazer  ", StageTrailblazer, true},
		{"horizon_changer", StageHorizonChanger, true},
		{"horizon-changer", StageHorizonChanger, true},
		{"HorizonChanger", StageHorizonChanger, true},
		{"", "", false},
		{"wanderer", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseStage(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseStage(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStringListUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		json string
		want StringList
	}{
		{"array", `["a","b"]`, StringList{"a", "b"}},
		{"scalar", `"Python"`, StringList{"Python"}},
		{"blank scalar", `"   "`, StringList{}},
		{"empty array", `[]`, StringList{}},
		{"number tolerated", `42`, StringList{}},
		{"object tolerated", `{"x":1}`, StringList{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got StringList
			if err := json.Unmarshal([]byte(tt.json), &got); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.json, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Unmarshal(%s) = %#v, want %#v", tt.json, got, tt.want)
			}
		})
	}
}

func TestStringListInsideAnswers(t *testing.T) {
	var answers MatchAnswers
	payload := `{"stage":"pathfinder","currentSkills":"Go","interests":["ai","data"]}`
	if err := json.Unmarshal([]byte(payload), &answers); err != nil {
		t.Fatalf("Unmarshal answers: %v", err)
	}
	if !reflect.DeepEqual([]string(answers.CurrentSkills), []string{"Go"}) {
		t.Errorf("currentSkills = %v, want scalar promoted to list", answers.CurrentSkills)
	}
	if len(answers.Interests) != 2 {
		t.Errorf("interests = %v, want 2 entries", answers.Interests)
	}
	if answers.SkillsToLearn != nil {
		t.Errorf("absent field = %v, want nil to mean absent", answers.SkillsToLearn)
	}
}

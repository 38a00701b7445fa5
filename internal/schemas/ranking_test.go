package schemas

import "testing"

func TestValidateRanking(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"envelope with matches", `{"matches":[{"pathId":"p1","score":90}]}`, false},
		{"envelope with recommendations", `{"recommendations":[{"id":"p1"}]}`, false},
		{"envelope with candidates", `{"candidates":[{"catalogItemId":"p1"}]}`, false},
		{"bare array", `[{"pathId":"p1"}]`, false},
		{"empty list", `{"matches":[]}`, false},
		{"candidate without any id key", `{"matches":[{"score":90}]}`, true},
		{"object without a list key", `{"results":[{"pathId":"p1"}]}`, true},
		{"scalar", `42`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRanking([]byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRanking(%s) error = %v, wantErr %v", tt.doc, err, tt.wantErr)
			}
		})
	}
}

func TestValidationErrorMessageNamesFields(t *testing.T) {
	err := ValidateRanking([]byte(`{"matches":[{"score":90}]}`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if len(ve.Errors) == 0 {
		t.Error("validation error carries no field errors")
	}
	if ve.Error() == "" {
		t.Error("empty error message")
	}
}

// Package schemas provides JSON Schema validation for the ranking oracle's
// semi-structured output.
package schemas

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// rankingSchema describes the minimum shape the oracle must produce: either a
// bare array of candidates or an object carrying one under a known list key.
// Each candidate must reference a catalog item by one of the accepted keys.
// Everything else (scores, text fields) is coerced leniently downstream.
const rankingSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "oneOf": [
    {"$ref": "#/definitions/candidateList"},
    {
      "type": "object",
      "properties": {
        "matches":         {"$ref": "#/definitions/candidateList"},
        "recommendations": {"$ref": "#/definitions/candidateList"},
        "candidates":      {"$ref": "#/definitions/candidateList"}
      },
      "anyOf": [
        {"required": ["matches"]},
        {"required": ["recommendations"]},
        {"required": ["candidates"]}
      ]
    }
  ],
  "definitions": {
    "candidateList": {
      "type": "array",
      "items": {"$ref": "#/definitions/candidate"}
    },
    "candidate": {
      "type": "object",
      "anyOf": [
        {"required": ["pathId"]},
        {"required": ["catalogItemId"]},
        {"required": ["id"]}
      ]
    }
  }
}`

// ValidationError reports the individual field failures of a schema check.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("ranking payload validation failed:")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf(" %d. %s: %s;", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// ValidateRanking validates a parsed ranking document against the ranking
// schema. doc must be raw JSON bytes.
func ValidateRanking(doc []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(rankingSchema)
	documentLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil
	}

	ve := &ValidationError{}
	for _, desc := range result.Errors() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return ve
}

// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// MaxBatchSize bounds the number of students accepted in one batch request.
const MaxBatchSize = 1000

// PredictSchema describes the stored-score payload: an id plus all five
// area scores in [0, 100].
const PredictSchema = `{
  "type": "object",
  "required": ["estudiante_id", "punt_ingles", "punt_matematicas", "punt_sociales_ciudadanas", "punt_c_naturales", "punt_lectura_critica"],
  "properties": {
    "estudiante_id":            {"type": "string", "minLength": 1, "maxLength": 64},
    "punt_ingles":              {"type": "number", "minimum": 0, "maximum": 100},
    "punt_matematicas":         {"type": "number", "minimum": 0, "maximum": 100},
    "punt_sociales_ciudadanas": {"type": "number", "minimum": 0, "maximum": 100},
    "punt_c_naturales":         {"type": "number", "minimum": 0, "maximum": 100},
    "punt_lectura_critica":     {"type": "number", "minimum": 0, "maximum": 100}
  }
}`

// ScoresSchema only checks that every value is numeric. Which keys are
// present is left to the engine so a missing area surfaces as such.
const ScoresSchema = `{
  "type": "object",
  "additionalProperties": {"type": "number"}
}`

// BatchSchema describes a batch request of score maps.
var BatchSchema = fmt.Sprintf(`{
  "type": "object",
  "required": ["students"],
  "properties": {
    "students": {
      "type": "array",
      "maxItems": %d,
      "items": {
        "type": "object",
        "required": ["puntuaciones"],
        "properties": {
          "estudiante_id": {"type": "string"},
          "puntuaciones":  {"type": "object", "additionalProperties": {"type": "number"}}
        }
      }
    }
  }
}`, MaxBatchSize)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary joins the errors into one line, sorted by field.
func (r *ValidationResult) Summary() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.Field + ": " + e.Message
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// SchemaValidator validates documents against one compiled JSON schema.
// It is safe for concurrent use.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

func NewSchemaValidator(schemaJSON string) (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// MustSchemaValidator is NewSchemaValidator for package-level schemas.
func MustSchemaValidator(schemaJSON string) *SchemaValidator {
	v, err := NewSchemaValidator(schemaJSON)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks a decoded document (maps, slices, numbers, strings).
func (v *SchemaValidator) Validate(doc interface{}) *ValidationResult {
	return v.run(gojsonschema.NewGoLoader(doc), "INVALID_DOCUMENT")
}

// ValidateJSON checks a raw JSON document.
func (v *SchemaValidator) ValidateJSON(raw []byte) *ValidationResult {
	return v.run(gojsonschema.NewBytesLoader(raw), "INVALID_JSON")
}

func (v *SchemaValidator) run(doc gojsonschema.JSONLoader, loadErrCode string) *ValidationResult {
	result, err := v.schema.Validate(doc)
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: loadErrCode}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out
}

var (
	Predict = MustSchemaValidator(PredictSchema)
	Scores  = MustSchemaValidator(ScoresSchema)
	Batch   = MustSchemaValidator(BatchSchema)
)

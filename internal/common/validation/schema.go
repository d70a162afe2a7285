// internal/common/validation/schema.go
package validation

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	apperrors "hosting-assessment/internal/common/errors"
)

// Request schemas.
const (
	SchemaScore  = "score_request"
	SchemaSubmit = "submit_request"
	SchemaReview = "review_request"
)

//go:embed schemas/*.json
var schemaFS embed.FS

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

func schemas() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[string]*gojsonschema.Schema)
		for _, name := range []string{SchemaScore, SchemaSubmit, SchemaReview} {
			data, err := schemaFS.ReadFile("schemas/" + name + ".json")
			if err != nil {
				compileErr = err
				return
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = s
		}
	})
	return compiled, compileErr
}

// ValidateJSON checks a raw request body against the named schema.
func ValidateJSON(schema string, body []byte) (*ValidationResult, error) {
	return validate(schema, gojsonschema.NewBytesLoader(body))
}

// ValidateInput checks an already decoded document, e.g. Zeebe job variables.
func ValidateInput(schema string, input interface{}) (*ValidationResult, error) {
	return validate(schema, gojsonschema.NewGoLoader(input))
}

func validate(name string, doc gojsonschema.JSONLoader) (*ValidationResult, error) {
	all, err := schemas()
	if err != nil {
		return nil, err
	}
	s, ok := all[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}

	result, err := s.Validate(doc)
	if err != nil {
		// The document is not JSON at all.
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "INVALID_JSON",
		}}}, nil
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, re := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldPath(re),
			Message: re.Description(),
			Code:    strings.ToUpper(re.Type()),
		})
	}
	return out, nil
}

// fieldPath names the offending field. Required errors are reported against the parent
// object, so the missing property is appended.
func fieldPath(re gojsonschema.ResultError) string {
	field := re.Field()
	if re.Type() != "required" {
		return field
	}
	prop, _ := re.Details()["property"].(string)
	if field == "" || field == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY {
		return prop
	}
	return field + "." + prop
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// AsError converts a failed result into a VALIDATION_FAILED error; nil when valid.
func (vr *ValidationResult) AsError() error {
	if vr.Valid {
		return nil
	}

	var missing, invalid []string
	seen := map[string]bool{}
	for _, e := range vr.Errors {
		if seen[e.Field] {
			continue
		}
		seen[e.Field] = true
		if e.Code == "REQUIRED" {
			missing = append(missing, e.Field)
		} else {
			invalid = append(invalid, e.Field)
		}
	}
	sort.Strings(missing)
	sort.Strings(invalid)

	return apperrors.NewValidationError("invalid request: "+strings.Join(vr.GetErrorMessages(), "; "), missing, invalid)
}

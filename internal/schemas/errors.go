// Package schemas validates extracted competition data against the canonical JSON Schema.
package schemas

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError lists every schema violation found in one document.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is one violation. Field is a dotted path such as "level.0"; violations
// on the document itself use "(root)".
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	parts := make([]string, len(ve.Errors))
	for i, e := range ve.Errors {
		parts[i] = e.Field + ": " + e.Message
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the distinct top-level properties named by the violations, in order.
func (ve *ValidationError) Fields() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range ve.Errors {
		top, _, _ := strings.Cut(e.Field, ".")
		if !seen[top] {
			seen[top] = true
			out = append(out, top)
		}
	}
	return out
}

// SchemaLoadError means the embedded schema itself could not be compiled.
type SchemaLoadError struct {
	Path  string
	Cause error
}

func (e *SchemaLoadError) Error() string {
	return fmt.Sprintf("failed to load schema %s: %v", e.Path, e.Cause)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// resultError converts a gojsonschema result into a *ValidationError, or nil when valid.
func resultError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}
	ve := &ValidationError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return ve
}

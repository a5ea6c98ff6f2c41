package schemas

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed competition.schema.json
var competitionSchema []byte

// CompetitionSchemaJSON returns the canonical competition schema document.
func CompetitionSchemaJSON() []byte {
	return competitionSchema
}

// CompetitionValidator validates extracted competition data as a whole record
// and field by field against single-property sub-schemas.
type CompetitionValidator struct {
	whole  *gojsonschema.Schema
	fields map[string]*gojsonschema.Schema
}

// NewCompetitionValidator compiles the embedded schema and one sub-schema per property.
func NewCompetitionValidator() (*CompetitionValidator, error) {
	whole, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(competitionSchema))
	if err != nil {
		return nil, &SchemaLoadError{Path: "competition.schema.json", Cause: err}
	}

	var doc map[string]any
	if err := json.Unmarshal(competitionSchema, &doc); err != nil {
		return nil, &SchemaLoadError{Path: "competition.schema.json", Cause: err}
	}
	props, ok := doc["properties"].(map[string]any)
	if !ok {
		return nil, &SchemaLoadError{Path: "competition.schema.json", Cause: errors.New("schema has no properties")}
	}

	fields := make(map[string]*gojsonschema.Schema, len(props))
	for name, def := range props {
		sub := map[string]any{
			"$schema":     doc["$schema"],
			"type":        "object",
			"definitions": doc["definitions"],
			"properties":  map[string]any{name: def},
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(sub))
		if err != nil {
			return nil, &SchemaLoadError{Path: "competition.schema.json#/properties/" + name, Cause: err}
		}
		fields[name] = s
	}

	return &CompetitionValidator{whole: whole, fields: fields}, nil
}

// MustCompetitionValidator panics when the embedded schema does not compile.
func MustCompetitionValidator() *CompetitionValidator {
	v, err := NewCompetitionValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks a whole document. doc is any JSON-marshalable value.
func (v *CompetitionValidator) Validate(doc any) error {
	result, err := v.whole.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	return resultError(result)
}

// ValidateField checks one value against its property's sub-schema.
func (v *CompetitionValidator) ValidateField(field string, value any) error {
	s, ok := v.fields[field]
	if !ok {
		return &ValidationError{Errors: []FieldError{{Field: field, Message: "unknown field"}}}
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(map[string]any{field: value}))
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	return resultError(result)
}

// Fields lists the schema's properties.
func (v *CompetitionValidator) Fields() []string {
	out := make([]string, 0, len(v.fields))
	for name := range v.fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Package llm - extractor.go builds structured extraction prompts.
package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/competition-radar/internal/prompts"
	"github.com/jonathan/competition-radar/internal/types"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "Competition")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
// today anchors dates that omit the year.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string, today time.Time) string {
	var sb strings.Builder
	writeSchema(&sb, schema)

	sb.WriteString(rules(prompts.TextInput, today))
	sb.WriteString("\n\n")

	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// BuildImagePrompt constructs the prompt sent alongside a poster image.
func BuildImagePrompt(schema ExtractionSchema, today time.Time) string {
	var sb strings.Builder
	writeSchema(&sb, schema)
	sb.WriteString(rules(prompts.ImageInput, today))
	sb.WriteString("\n")
	return sb.String()
}

func rules(in prompts.Input, today time.Time) string {
	out, err := prompts.MustLoad().Rules(in, prompts.Vars{Today: today.Format(types.DateLayout)})
	if err != nil {
		panic(err)
	}
	return out
}

func writeSchema(sb *strings.Builder, schema ExtractionSchema) {
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		fmt.Fprintf(sb, "  \"%s\": %s%s", field.Name, typeHint, requiredHint)
		if field.Description != "" {
			fmt.Fprintf(sb, " // %s", field.Description)
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")
}

// CompetitionSchema returns the extraction schema for competition announcements.
func CompetitionSchema() ExtractionSchema {
	return ExtractionSchema{
		Name:        "Competition",
		Description: prompts.MustLoad().Description,
		Fields: []SchemaField{
			{Name: "title", Type: "\"string\" | null", Description: "Competition name as written"},
			{Name: "organizer", Type: "[\"string\"] | null", Description: "Organizing institutions or communities"},
			{Name: "category", Type: enumHint(types.Categories, true), Description: "Competition field"},
			{Name: "level", Type: enumHint(types.Levels, true), Description: "Eligible participant levels"},
			{Name: "startDate", Type: "\"YYYY-MM-DD\" | null", Description: "Registration or event start"},
			{Name: "endDate", Type: "\"YYYY-MM-DD\" | null", Description: "Registration deadline"},
			{Name: "format", Type: enumHint(types.Formats, false), Description: "How the competition is held"},
			{Name: "participationType", Type: enumHint(types.ParticipationTypes, true), Description: "Solo or team entries"},
			{Name: "pricing", Type: "[number] | null", Description: "Registration fees in Rupiah, 0 when free"},
			{Name: "url", Type: "\"string\" | null", Description: "Registration link"},
			{Name: "location", Type: "\"string\" | null", Description: "City or venue for offline events"},
		},
	}
}

func enumHint(values []string, multi bool) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	hint := strings.Join(quoted, " | ")
	if multi {
		return "[" + hint + "] | null"
	}
	return hint + " | null"
}

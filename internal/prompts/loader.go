// Package prompts holds the extraction instructions sent to every AI provider.
// They live in extraction.json and are embedded at compile time.
package prompts

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed extraction.json
var extractionJSON []byte

// Input selects which rule block accompanies the schema.
type Input int

const (
	// TextInput is a caption or detail-page description.
	TextInput Input = iota
	// ImageInput is a poster image.
	ImageInput
)

// Vars are the values substituted into a rule block.
type Vars struct {
	// Today is formatted YYYY-MM-DD and anchors dates written without a year.
	Today string
}

// Extraction is the parsed instruction set.
type Extraction struct {
	Description string `json:"description"`
	TextRules   string `json:"text_rules"`
	ImageRules  string `json:"image_rules"`

	text  *template.Template
	image *template.Template
}

var load = sync.OnceValues(func() (*Extraction, error) {
	return parse(extractionJSON)
})

func parse(data []byte) (*Extraction, error) {
	var e Extraction
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse extraction prompts: %w", err)
	}
	if strings.TrimSpace(e.Description) == "" {
		return nil, errors.New("extraction prompts: description is empty")
	}

	var err error
	if e.text, err = template.New("text_rules").Parse(e.TextRules); err != nil {
		return nil, fmt.Errorf("extraction prompts: text_rules: %w", err)
	}
	if e.image, err = template.New("image_rules").Parse(e.ImageRules); err != nil {
		return nil, fmt.Errorf("extraction prompts: image_rules: %w", err)
	}
	return &e, nil
}

// Load returns the embedded instruction set, parsed once.
func Load() (*Extraction, error) {
	return load()
}

// MustLoad is Load for package initialization; a malformed embedded file is a build defect.
func MustLoad() *Extraction {
	e, err := Load()
	if err != nil {
		panic(err)
	}
	return e
}

// Rules renders the rule block for the given input.
func (e *Extraction) Rules(in Input, vars Vars) (string, error) {
	tmpl := e.text
	if in == ImageInput {
		tmpl = e.image
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}

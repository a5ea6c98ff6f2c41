package types

import "strings"

// Field names a canonical extraction field.
type Field string

// Canonical fields, in the order they are reported
const (
	FieldTitle             Field = "title"
	FieldOrganizer         Field = "organizer"
	FieldCategory          Field = "category"
	FieldLevel             Field = "level"
	FieldStartDate         Field = "startDate"
	FieldEndDate           Field = "endDate"
	FieldFormat            Field = "format"
	FieldParticipationType Field = "participationType"
	FieldPricing           Field = "pricing"
	FieldURL               Field = "url"
	FieldLocation          Field = "location"
)

// AllFields lists every canonical field.
var AllFields = []Field{
	FieldTitle, FieldOrganizer, FieldCategory, FieldLevel, FieldStartDate, FieldEndDate,
	FieldFormat, FieldParticipationType, FieldPricing, FieldURL, FieldLocation,
}

// ProviderID identifies an extraction provider.
type ProviderID string

// The fixed provider set
const (
	ProviderText          ProviderID = "text"
	ProviderImagePrimary  ProviderID = "image-primary"
	ProviderImageFallback ProviderID = "image-fallback"
)

// Canonical vocabularies
var (
	Categories = []string{
		"Academic", "Science", "Technology", "Business", "Design",
		"Art", "Writing", "Debate", "Sports", "Other",
	}
	Levels             = []string{"SD", "SMP", "SMA", "Mahasiswa", "Umum"}
	Formats            = []string{"Online", "Offline", "Hybrid"}
	ParticipationTypes = []string{"Individual", "Team"}
)

// CategoryOther is the catch-all category bucket.
const CategoryOther = "Other"

// Fields is the sparse canonical accumulator. A nil pointer or an empty slice means absent.
type Fields struct {
	Title             *string  `json:"title,omitempty"`
	Organizer         []string `json:"organizer,omitempty"`
	Category          []string `json:"category,omitempty"`
	Level             []string `json:"level,omitempty"`
	StartDate         *string  `json:"startDate,omitempty"`
	EndDate           *string  `json:"endDate,omitempty"`
	Format            *string  `json:"format,omitempty"`
	ParticipationType []string `json:"participationType,omitempty"`
	Pricing           []int64  `json:"pricing,omitempty"`
	URL               *string  `json:"url,omitempty"`
	Location          *string  `json:"location,omitempty"`
}

// Has reports whether the field holds a non-empty value.
func (f *Fields) Has(field Field) bool {
	switch field {
	case FieldTitle:
		return nonBlank(f.Title)
	case FieldOrganizer:
		return len(f.Organizer) > 0
	case FieldCategory:
		return len(f.Category) > 0
	case FieldLevel:
		return len(f.Level) > 0
	case FieldStartDate:
		return nonBlank(f.StartDate)
	case FieldEndDate:
		return nonBlank(f.EndDate)
	case FieldFormat:
		return nonBlank(f.Format)
	case FieldParticipationType:
		return len(f.ParticipationType) > 0
	case FieldPricing:
		return len(f.Pricing) > 0
	case FieldURL:
		return nonBlank(f.URL)
	case FieldLocation:
		return nonBlank(f.Location)
	}
	return false
}

// Value returns the field's value for encoding, or nil when absent.
func (f *Fields) Value(field Field) any {
	if !f.Has(field) {
		return nil
	}
	switch field {
	case FieldTitle:
		return *f.Title
	case FieldOrganizer:
		return f.Organizer
	case FieldCategory:
		return f.Category
	case FieldLevel:
		return f.Level
	case FieldStartDate:
		return *f.StartDate
	case FieldEndDate:
		return *f.EndDate
	case FieldFormat:
		return *f.Format
	case FieldParticipationType:
		return f.ParticipationType
	case FieldPricing:
		return f.Pricing
	case FieldURL:
		return *f.URL
	case FieldLocation:
		return *f.Location
	}
	return nil
}

// Present returns the fields holding a value, in canonical order.
func (f *Fields) Present() []Field {
	var out []Field
	for _, field := range AllFields {
		if f.Has(field) {
			out = append(out, field)
		}
	}
	return out
}

// IsEmpty reports whether no field holds a value.
func (f *Fields) IsEmpty() bool {
	return len(f.Present()) == 0
}

// Clear removes a field.
func (f *Fields) Clear(field Field) {
	switch field {
	case FieldTitle:
		f.Title = nil
	case FieldOrganizer:
		f.Organizer = nil
	case FieldCategory:
		f.Category = nil
	case FieldLevel:
		f.Level = nil
	case FieldStartDate:
		f.StartDate = nil
	case FieldEndDate:
		f.EndDate = nil
	case FieldFormat:
		f.Format = nil
	case FieldParticipationType:
		f.ParticipationType = nil
	case FieldPricing:
		f.Pricing = nil
	case FieldURL:
		f.URL = nil
	case FieldLocation:
		f.Location = nil
	}
}

// Only returns a copy holding just the named fields.
func (f *Fields) Only(fields ...Field) Fields {
	keep := make(map[Field]bool, len(fields))
	for _, field := range fields {
		keep[field] = true
	}
	out := *f
	for _, field := range AllFields {
		if !keep[field] {
			out.Clear(field)
		}
	}
	return out
}

// FillFrom copies every field of src that f does not already hold.
// Returns the fields that were filled.
func (f *Fields) FillFrom(src *Fields) []Field {
	var filled []Field
	for _, field := range AllFields {
		if f.Has(field) || !src.Has(field) {
			continue
		}
		f.copyField(src, field)
		filled = append(filled, field)
	}
	return filled
}

func (f *Fields) copyField(src *Fields, field Field) {
	switch field {
	case FieldTitle:
		f.Title = clonePtr(src.Title)
	case FieldOrganizer:
		f.Organizer = append([]string(nil), src.Organizer...)
	case FieldCategory:
		f.Category = append([]string(nil), src.Category...)
	case FieldLevel:
		f.Level = append([]string(nil), src.Level...)
	case FieldStartDate:
		f.StartDate = clonePtr(src.StartDate)
	case FieldEndDate:
		f.EndDate = clonePtr(src.EndDate)
	case FieldFormat:
		f.Format = clonePtr(src.Format)
	case FieldParticipationType:
		f.ParticipationType = append([]string(nil), src.ParticipationType...)
	case FieldPricing:
		f.Pricing = append([]int64(nil), src.Pricing...)
	case FieldURL:
		f.URL = clonePtr(src.URL)
	case FieldLocation:
		f.Location = clonePtr(src.Location)
	}
}

// ExtractionResult is the per-item output of the extraction orchestrator.
type ExtractionResult struct {
	RecordID   int64                `json:"record_id"`
	Fields     Fields               `json:"fields"`
	Provenance map[Field]ProviderID `json:"provenance"`
	FinalState string               `json:"final_state"`
	Partial    bool                 `json:"partial"`
}

// ProvenanceOf returns the provider that supplied a field, or "" when none did.
func (r *ExtractionResult) ProvenanceOf(field Field) ProviderID {
	return r.Provenance[field]
}

// StringPtr returns a pointer to the trimmed value, or nil when it is blank.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func nonBlank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

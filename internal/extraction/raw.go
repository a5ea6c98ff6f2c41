package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/competition-radar/internal/types"
)

// RawOutput is the decoded, not yet normalized response of one provider. Each provider has its
// own variant so quirks of one never leak into another's normalization.
type RawOutput interface {
	Provider() types.ProviderID
	Normalize() types.Fields
}

// baseOutput holds the keys every provider is prompted to return. Values stay raw until
// normalization because providers mix strings, arrays, numbers and objects freely.
type baseOutput struct {
	Title             json.RawMessage `json:"title"`
	CompetitionName   json.RawMessage `json:"competition_name"`
	Name              json.RawMessage `json:"name"`
	Organizer         json.RawMessage `json:"organizer"`
	Category          json.RawMessage `json:"category"`
	Level             json.RawMessage `json:"level"`
	StartDate         json.RawMessage `json:"startDate"`
	EndDate           json.RawMessage `json:"endDate"`
	Format            json.RawMessage `json:"format"`
	ParticipationType json.RawMessage `json:"participationType"`
	Pricing           json.RawMessage `json:"pricing"`
	URL               json.RawMessage `json:"url"`
	Location          json.RawMessage `json:"location"`
}

func (b *baseOutput) fields() types.Fields {
	return types.Fields{
		Title:             FirstText(b.Title, b.CompetitionName, b.Name),
		Organizer:         NormalizeList(b.Organizer),
		Category:          NormalizeCategory(b.Category),
		Level:             NormalizeLevel(b.Level),
		StartDate:         NormalizeDate(b.StartDate, false),
		EndDate:           NormalizeDate(b.EndDate, true),
		Format:            NormalizeFormat(b.Format),
		ParticipationType: NormalizeParticipation(b.ParticipationType),
		Pricing:           NormalizePricing(b.Pricing),
		URL:               NormalizeURL(b.URL),
		Location:          NormalizeText(b.Location),
	}
}

// TextOutput is returned by the text provider reading the post body.
type TextOutput struct {
	baseOutput
}

func (o *TextOutput) Provider() types.ProviderID { return types.ProviderText }

func (o *TextOutput) Normalize() types.Fields { return o.fields() }

// PrimaryImageOutput is returned by the primary poster reader. Posters often print a date range,
// which arrives as an array under startDate or endDate; the date rules already pick its ends.
type PrimaryImageOutput struct {
	baseOutput
	DateRange json.RawMessage `json:"dateRange"`
}

func (o *PrimaryImageOutput) Provider() types.ProviderID { return types.ProviderImagePrimary }

func (o *PrimaryImageOutput) Normalize() types.Fields {
	f := o.fields()
	if f.StartDate == nil {
		f.StartDate = NormalizeDate(o.DateRange, false)
	}
	if f.EndDate == nil {
		f.EndDate = NormalizeDate(o.DateRange, true)
	}
	return f
}

// FallbackImageOutput is returned by the fallback poster reader, which tends to answer in
// snake_case and to name the registration link explicitly.
type FallbackImageOutput struct {
	baseOutput
	StartDateSnake         json.RawMessage `json:"start_date"`
	EndDateSnake           json.RawMessage `json:"end_date"`
	ParticipationTypeSnake json.RawMessage `json:"participation_type"`
	RegistrationURL        json.RawMessage `json:"registration_url"`
}

func (o *FallbackImageOutput) Provider() types.ProviderID { return types.ProviderImageFallback }

func (o *FallbackImageOutput) Normalize() types.Fields {
	f := o.fields()
	if f.StartDate == nil {
		f.StartDate = NormalizeDate(o.StartDateSnake, false)
	}
	if f.EndDate == nil {
		f.EndDate = NormalizeDate(o.EndDateSnake, true)
	}
	if len(f.ParticipationType) == 0 {
		f.ParticipationType = NormalizeParticipation(o.ParticipationTypeSnake)
	}
	if f.URL == nil {
		f.URL = NormalizeURL(o.RegistrationURL)
	}
	return f
}

// Decode parses a provider's JSON answer into that provider's variant.
func Decode(provider types.ProviderID, data string) (RawOutput, error) {
	var out RawOutput
	switch provider {
	case types.ProviderText:
		out = &TextOutput{}
	case types.ProviderImagePrimary:
		out = &PrimaryImageOutput{}
	case types.ProviderImageFallback:
		out = &FallbackImageOutput{}
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	data = strings.TrimSpace(data)
	if data == "" {
		return nil, fmt.Errorf("empty response from %s", provider)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", provider, err)
	}
	return out, nil
}

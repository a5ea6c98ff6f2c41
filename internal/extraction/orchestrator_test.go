package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/competition-radar/internal/schemas"
	"github.com/jonathan/competition-radar/internal/types"
)

// fakeProvider answers with canned JSON or an error and counts calls.
type fakeProvider struct {
	id    types.ProviderID
	json  string
	err   error
	calls int
}

func (f *fakeProvider) ID() types.ProviderID { return f.id }

func (f *fakeProvider) Extract(_ context.Context, _ Input) (RawOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return Decode(f.id, f.json)
}

func newOrchestrator(text, primary, fallback *fakeProvider) *Orchestrator {
	return NewOrchestrator(asProvider(text), asProvider(primary), asProvider(fallback), schemas.MustCompetitionValidator(), nil)
}

func asProvider(p *fakeProvider) Provider {
	if p == nil {
		return nil
	}
	return p
}

var item = Input{RecordID: 7, Text: "Lomba esai nasional untuk SMA", PosterURL: "https://cdn.example.com/p.jpg"}

func TestOrchestrator_FirstProviderWinsPerField(t *testing.T) {
	text := &fakeProvider{id: types.ProviderText, json: `{"title": "Lomba Esai Nasional", "level": "SMA"}`}
	primary := &fakeProvider{id: types.ProviderImagePrimary, json: `{
		"title": "LOMBA ESAI",
		"level": ["SMP"],
		"category": "Esai",
		"endDate": "31-12-2025"
	}`}
	fallback := &fakeProvider{id: types.ProviderImageFallback, json: `{"location": "Jakarta"}`}

	res := newOrchestrator(text, primary, fallback).Extract(context.Background(), item)

	assert.Equal(t, 0, fallback.calls, "fallback only runs when the primary answer is unusable")
	assert.Equal(t, StateValidated, res.FinalState)
	assert.False(t, res.Partial)
	assert.Equal(t, int64(7), res.RecordID)

	require.NotNil(t, res.Fields.Title)
	assert.Equal(t, "Lomba Esai Nasional", *res.Fields.Title)
	assert.Equal(t, []string{"SMA"}, res.Fields.Level)
	assert.Equal(t, []string{"Writing"}, res.Fields.Category)
	require.NotNil(t, res.Fields.EndDate)
	assert.Equal(t, "2025-12-31", *res.Fields.EndDate)

	assert.Equal(t, types.ProviderText, res.ProvenanceOf(types.FieldTitle))
	assert.Equal(t, types.ProviderText, res.ProvenanceOf(types.FieldLevel))
	assert.Equal(t, types.ProviderImagePrimary, res.ProvenanceOf(types.FieldCategory))
	assert.Equal(t, types.ProviderID(""), res.ProvenanceOf(types.FieldLocation))
}

func TestOrchestrator_PrimaryThrowsFallbackThrows(t *testing.T) {
	text := &fakeProvider{id: types.ProviderText, json: `{"title": "Hackathon Kampus", "format": "daring"}`}
	primary := &fakeProvider{id: types.ProviderImagePrimary, err: errors.New("quota exceeded")}
	fallback := &fakeProvider{id: types.ProviderImageFallback, err: errors.New("timeout")}

	res := newOrchestrator(text, primary, fallback).Extract(context.Background(), item)

	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, []types.Field{types.FieldTitle, types.FieldFormat}, res.Fields.Present())
	for _, field := range res.Fields.Present() {
		assert.Equal(t, types.ProviderText, res.ProvenanceOf(field))
	}
}

func TestOrchestrator_FallbackOnSchemaInvalidPrimary(t *testing.T) {
	primary := &fakeProvider{id: types.ProviderImagePrimary, json: `{
		"title": "Olimpiade Sains",
		"endDate": "akhir bulan"
	}`}
	fallback := &fakeProvider{id: types.ProviderImageFallback, json: `{
		"title": "Olimpiade Sains Nasional",
		"end_date": "15/10/2025"
	}`}

	res := newOrchestrator(nil, primary, fallback).Extract(context.Background(), Input{RecordID: 1, PosterURL: item.PosterURL})

	assert.Equal(t, 1, fallback.calls)
	require.NotNil(t, res.Fields.Title)
	assert.Equal(t, "Olimpiade Sains Nasional", *res.Fields.Title, "rejected primary output contributes nothing")
	require.NotNil(t, res.Fields.EndDate)
	assert.Equal(t, "2025-10-15", *res.Fields.EndDate)
	assert.Equal(t, types.ProviderImageFallback, res.ProvenanceOf(types.FieldTitle))
}

func TestOrchestrator_SkipsTextWithoutBody(t *testing.T) {
	text := &fakeProvider{id: types.ProviderText, json: `{"title": "x"}`}
	primary := &fakeProvider{id: types.ProviderImagePrimary, json: `{"title": "Dari Poster"}`}

	res := newOrchestrator(text, primary, nil).Extract(context.Background(), Input{RecordID: 2, PosterURL: item.PosterURL})

	assert.Equal(t, 0, text.calls)
	assert.Equal(t, types.ProviderImagePrimary, res.ProvenanceOf(types.FieldTitle))
}

func TestOrchestrator_KeepsIndividuallyValidFields(t *testing.T) {
	text := &fakeProvider{id: types.ProviderText, json: `{
		"title": "Lomba Debat",
		"startDate": "minggu depan",
		"location": "Surabaya"
	}`}
	primary := &fakeProvider{id: types.ProviderImagePrimary, err: errors.New("unreachable")}
	fallback := &fakeProvider{id: types.ProviderImageFallback, err: errors.New("unreachable")}

	res := newOrchestrator(text, primary, fallback).Extract(context.Background(), item)

	assert.True(t, res.Partial)
	assert.Equal(t, []types.Field{types.FieldTitle, types.FieldLocation}, res.Fields.Present())
	assert.Equal(t, types.ProviderID(""), res.ProvenanceOf(types.FieldStartDate))
	assert.Equal(t, StateValidated, res.FinalState)
}

func TestOrchestrator_NothingRecovered(t *testing.T) {
	text := &fakeProvider{id: types.ProviderText, json: `not json`}
	primary := &fakeProvider{id: types.ProviderImagePrimary, err: errors.New("boom")}
	fallback := &fakeProvider{id: types.ProviderImageFallback, json: `{}`}

	res := newOrchestrator(text, primary, fallback).Extract(context.Background(), item)

	assert.True(t, res.Fields.IsEmpty())
	assert.Empty(t, res.Provenance)
	assert.False(t, res.Partial)
	assert.Equal(t, StateValidated, res.FinalState)
}

func TestOrchestrator_ProviderErrorCarriesIdentity(t *testing.T) {
	o := newOrchestrator(nil, nil, nil)
	_, err := o.call(context.Background(), &fakeProvider{id: types.ProviderImagePrimary, err: errors.New("401")}, item)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "image-primary", pe.Provider)
	assert.Equal(t, int64(7), pe.RecordID)
	assert.Contains(t, err.Error(), "401")
}

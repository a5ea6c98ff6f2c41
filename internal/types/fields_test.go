//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_FillFromOnlyFillsGaps(t *testing.T) {
	acc := Fields{
		Title: StringPtr("From Text"),
		Level: []string{"SMA"},
	}
	src := Fields{
		Title:    StringPtr("From Image"),
		Level:    []string{"Mahasiswa"},
		Category: []string{"Technology"},
		Pricing:  []int64{25000},
	}

	filled := acc.FillFrom(&src)

	assert.Equal(t, []Field{FieldCategory, FieldPricing}, filled)
	assert.Equal(t, "From Text", *acc.Title)
	assert.Equal(t, []string{"SMA"}, acc.Level)
	assert.Equal(t, []string{"Technology"}, acc.Category)

	src.Category[0] = "Art"
	assert.Equal(t, "Technology", acc.Category[0], "filled values must not alias the source")
}

func TestFields_BlankValuesCountAsAbsent(t *testing.T) {
	blank := "   "
	acc := Fields{Title: &blank, Organizer: []string{}}
	src := Fields{Title: StringPtr("Real"), Organizer: []string{"Kemendikbud"}}

	filled := acc.FillFrom(&src)

	assert.Equal(t, []Field{FieldTitle, FieldOrganizer}, filled)
	require.NotNil(t, acc.Title)
	assert.Equal(t, "Real", *acc.Title)
}

func TestFields_OnlyAndPresent(t *testing.T) {
	f := Fields{
		Title:    StringPtr("Lomba"),
		Format:   StringPtr("Hybrid"),
		Pricing:  []int64{0},
		Location: StringPtr("Bandung"),
	}

	assert.Equal(t, []Field{FieldTitle, FieldFormat, FieldPricing, FieldLocation}, f.Present())

	sub := f.Only(FieldFormat, FieldPricing)
	assert.Equal(t, []Field{FieldFormat, FieldPricing}, sub.Present())
	assert.Len(t, f.Present(), 4, "Only must not mutate the receiver")
}

func TestFields_IsEmpty(t *testing.T) {
	var f Fields
	assert.True(t, f.IsEmpty())

	f.URL = StringPtr("https://example.com")
	assert.False(t, f.IsEmpty())

	f.Clear(FieldURL)
	assert.True(t, f.IsEmpty())
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Nil(t, StringPtr(" \t "))
	require.NotNil(t, StringPtr(" x "))
	assert.Equal(t, "x", *StringPtr(" x "))
}

func TestFields_Value(t *testing.T) {
	f := Fields{Title: StringPtr("Lomba"), Pricing: []int64{10000}}

	assert.Equal(t, "Lomba", f.Value(FieldTitle))
	assert.Equal(t, []int64{10000}, f.Value(FieldPricing))
	assert.Nil(t, f.Value(FieldLocation))
}

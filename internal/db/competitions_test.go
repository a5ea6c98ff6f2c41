package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/competition-radar/internal/types"
)

func TestDescriptionHash(t *testing.T) {
	assert.Nil(t, DescriptionHash(""))
	assert.Nil(t, DescriptionHash("  \n "))

	a := DescriptionHash("Lomba esai nasional")
	b := DescriptionHash("  Lomba esai nasional\n")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, *a, *b, "hash is taken over trimmed text")
	assert.Len(t, *a, 64)
	assert.NotEqual(t, *a, *DescriptionHash("Lomba esai internasional"))
}

func TestBuildInsertDrafts(t *testing.T) {
	query, args, err := buildInsertDrafts([]types.Competition{
		{Title: "A", Description: "desc a", PosterURL: "https://x/a.jpg", SourceURL: "https://src/a", Origin: types.OriginInfoLomba},
		{Title: "B", PosterURL: "https://x/b.jpg", Origin: types.OriginInstagram, OriginAccount: "infolomba.id"},
	})
	require.NoError(t, err)

	assert.Contains(t, query, "INSERT INTO competitions")
	assert.Contains(t, query, "ON CONFLICT DO NOTHING RETURNING id")
	assert.Contains(t, query, "$16")
	require.Len(t, args, 16)

	assert.Equal(t, "https://src/a", *(args[4].(*string)))
	assert.Equal(t, "draft", args[7])
	assert.Nil(t, args[10], "blank description has no hash")
	assert.Nil(t, args[12], "blank source url is stored as NULL")
	assert.Equal(t, "infolomba.id", args[14])
}

func TestBuildUpdateFields_GuardsEveryColumn(t *testing.T) {
	fields := types.Fields{
		Title:   types.StringPtr("Lomba"),
		Level:   []string{"SMA", "Mahasiswa"},
		EndDate: types.StringPtr("2025-12-31"),
		Pricing: []int64{50000},
		URL:     types.StringPtr("https://daftar.example.com"),
	}

	query, args, ok, err := buildUpdateFields(42, fields)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Contains(t, query, "title = COALESCE(NULLIF(title, ''), $1)")
	assert.Contains(t, query, "level = COALESCE(NULLIF(level, '[]'::jsonb), $2::jsonb)")
	assert.Contains(t, query, "end_date = COALESCE(end_date, $3::date)")
	assert.Contains(t, query, "pricing = COALESCE(NULLIF(pricing, '[]'::jsonb), $4::jsonb)")
	assert.Contains(t, query, "registration_url = COALESCE(NULLIF(registration_url, ''), $5)")
	assert.Contains(t, query, "WHERE id = $6")
	assert.Equal(t, []any{"Lomba", `["SMA","Mahasiswa"]`, "2025-12-31", "[50000]", "https://daftar.example.com", int64(42)}, args)
}

func TestBuildUpdateFields_SkipsUnparseableDatesAndEmpty(t *testing.T) {
	_, _, ok, err := buildUpdateFields(1, types.Fields{StartDate: types.StringPtr("akhir bulan")})
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, ok, err = buildUpdateFields(1, types.Fields{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/radar?sslmode=disable",
		migrateURL("postgres://u:p@localhost:5432/radar?sslmode=disable"))
	assert.Equal(t, "pgx5://localhost/radar", migrateURL("postgresql://localhost/radar"))
	assert.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}

func TestPersistenceError(t *testing.T) {
	err := fail("insert drafts", assert.AnError)
	assert.Contains(t, err.Error(), "insert drafts")
	assert.ErrorIs(t, err, assert.AnError)
}

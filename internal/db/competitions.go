package db

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/blake2b"

	"github.com/jonathan/competition-radar/internal/admission"
	"github.com/jonathan/competition-radar/internal/types"
)

const competitionColumns = `id, title, description, poster_url, COALESCE(source_url, ''), registration_url,
	organizer, category, level, start_date, end_date, format, participation_type, pricing, location,
	origin, origin_account, status, delivered_to_channel, created_at, updated_at`

// DescriptionHash fingerprints a trimmed description for the uniqueness index. Blank
// descriptions have no fingerprint.
func DescriptionHash(description string) *string {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil
	}
	sum := blake2b.Sum256([]byte(description))
	h := hex.EncodeToString(sum[:])
	return &h
}

// ExistingKeys reads every persisted source URL and description.
func (db *DB) ExistingKeys(ctx context.Context) ([]admission.KeyPair, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT COALESCE(source_url, ''), description FROM competitions
		 WHERE source_url IS NOT NULL OR description <> ''`)
	if err != nil {
		return nil, fail("read dedup keys", err)
	}
	defer rows.Close()

	var pairs []admission.KeyPair
	for rows.Next() {
		var p admission.KeyPair
		if err := rows.Scan(&p.SourceURL, &p.Description); err != nil {
			return nil, fail("scan dedup keys", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("read dedup keys", err)
	}
	return pairs, nil
}

// InsertDrafts bulk-inserts draft records in one statement and returns the new ids in input
// order. Rows colliding with an existing source URL or description are skipped by the store.
func (db *DB) InsertDrafts(ctx context.Context, records []types.Competition) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}
	query, args, err := buildInsertDrafts(records)
	if err != nil {
		return nil, fail("build insert", err)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fail("insert drafts", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fail("insert drafts", err)
	}
	return ids, nil
}

func buildInsertDrafts(records []types.Competition) (string, []any, error) {
	ins := psql.Insert("competitions").Columns(
		"title", "description", "description_hash", "poster_url", "source_url", "origin", "origin_account", "status",
	)
	for _, r := range records {
		status := r.Status
		if status == "" {
			status = types.StatusDraft
		}
		ins = ins.Values(
			r.Title, r.Description, DescriptionHash(r.Description), r.PosterURL,
			nullable(r.SourceURL), string(r.Origin), r.OriginAccount, string(status),
		)
	}
	return ins.Suffix("ON CONFLICT DO NOTHING RETURNING id").ToSql()
}

// GetCompetition loads one record. Unknown ids return an error wrapping types.ErrNotFound.
func (db *DB) GetCompetition(ctx context.Context, id int64) (*types.Competition, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+competitionColumns+` FROM competitions WHERE id = $1`, id)
	c, err := scanCompetition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("competition %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fail("get competition", err)
	}
	return c, nil
}

// CompetitionFilters holds optional filters for listing records
type CompetitionFilters struct {
	IDs       []int64
	Status    types.LifecycleStatus
	Delivered *bool
	Limit     uint64
}

// ListCompetitions returns records matching the filters, newest first.
func (db *DB) ListCompetitions(ctx context.Context, filters CompetitionFilters) ([]types.Competition, error) {
	q := psql.Select(competitionColumns).From("competitions").OrderBy("id DESC")
	if len(filters.IDs) > 0 {
		q = q.Where(sq.Eq{"id": filters.IDs})
	}
	if filters.Status != "" {
		q = q.Where(sq.Eq{"status": string(filters.Status)})
	}
	if filters.Delivered != nil {
		q = q.Where(sq.Eq{"delivered_to_channel": *filters.Delivered})
	}
	if filters.Limit == 0 {
		filters.Limit = 50
	}
	q = q.Limit(filters.Limit)

	return db.queryCompetitions(ctx, q, "list competitions")
}

// SelectDeliverable returns undelivered records with a title and poster whose end date is
// unset or not before today, in id order.
func (db *DB) SelectDeliverable(ctx context.Context, today time.Time) ([]types.Competition, error) {
	q := psql.Select(competitionColumns).From("competitions").
		Where(sq.Eq{"delivered_to_channel": false}).
		Where("btrim(title) <> ''").
		Where("btrim(poster_url) <> ''").
		Where(sq.Or{sq.Eq{"end_date": nil}, sq.Expr("end_date >= ?::date", today.Format(types.DateLayout))}).
		OrderBy("id")

	return db.queryCompetitions(ctx, q, "select deliverable")
}

// UpdateFields writes extracted fields. Each column is only written when it is still empty,
// so applying the same fields twice changes nothing.
func (db *DB) UpdateFields(ctx context.Context, id int64, fields types.Fields) error {
	query, args, ok, err := buildUpdateFields(id, fields)
	if err != nil {
		return fail("build update", err)
	}
	if !ok {
		return nil
	}
	if _, err := db.pool.Exec(ctx, query, args...); err != nil {
		return fail("update fields", err)
	}
	return nil
}

func buildUpdateFields(id int64, f types.Fields) (string, []any, bool, error) {
	up := psql.Update("competitions")
	n := 0

	setText := func(col string, v *string) {
		if v == nil || strings.TrimSpace(*v) == "" {
			return
		}
		up = up.Set(col, sq.Expr(fmt.Sprintf("COALESCE(NULLIF(%s, ''), ?)", col), *v))
		n++
	}
	setJSON := func(col string, v any, present bool) {
		if !present {
			return
		}
		up = up.Set(col, sq.Expr(fmt.Sprintf("COALESCE(NULLIF(%s, '[]'::jsonb), ?::jsonb)", col), jsonArg(v)))
		n++
	}
	setDate := func(col string, v *string) {
		if v == nil {
			return
		}
		d, ok := types.ParseDate(*v)
		if !ok {
			return
		}
		up = up.Set(col, sq.Expr(fmt.Sprintf("COALESCE(%s, ?::date)", col), d.Format(types.DateLayout)))
		n++
	}

	setText("title", f.Title)
	setJSON("organizer", f.Organizer, len(f.Organizer) > 0)
	setJSON("category", f.Category, len(f.Category) > 0)
	setJSON("level", f.Level, len(f.Level) > 0)
	setDate("start_date", f.StartDate)
	setDate("end_date", f.EndDate)
	setText("format", f.Format)
	setJSON("participation_type", f.ParticipationType, len(f.ParticipationType) > 0)
	setJSON("pricing", f.Pricing, len(f.Pricing) > 0)
	setText("registration_url", f.URL)
	setText("location", f.Location)

	if n == 0 {
		return "", nil, false, nil
	}
	query, args, err := up.Set("updated_at", sq.Expr("NOW()")).Where(sq.Eq{"id": id}).ToSql()
	return query, args, true, err
}

// MarkDelivered flags a record as delivered and published.
func (db *DB) MarkDelivered(ctx context.Context, id int64) error {
	query, args, err := psql.Update("competitions").
		Set("delivered_to_channel", true).
		Set("status", string(types.StatusPublished)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fail("build update", err)
	}
	tag, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fail("mark delivered", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("competition %d: %w", id, types.ErrNotFound)
	}
	return nil
}

func (db *DB) queryCompetitions(ctx context.Context, q sq.SelectBuilder, op string) ([]types.Competition, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fail("build "+op, err)
	}
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fail(op, err)
	}
	defer rows.Close()

	var out []types.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, fail(op, err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(op, err)
	}
	return out, nil
}

func scanCompetition(row pgx.Row) (*types.Competition, error) {
	var c types.Competition
	var origin, status string
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.PosterURL, &c.SourceURL, &c.RegistrationURL,
		&c.Organizer, &c.Category, &c.Level, &c.StartDate, &c.EndDate, &c.Format,
		&c.ParticipationType, &c.Pricing, &c.Location,
		&origin, &c.OriginAccount, &status, &c.DeliveredToChannel, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Origin = types.Origin(origin)
	c.Status = types.LifecycleStatus(status)
	return &c, nil
}

func nullable(s string) *string {
	return types.StringPtr(s)
}

// jsonArg encodes a value for a JSONB parameter.
func jsonArg(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

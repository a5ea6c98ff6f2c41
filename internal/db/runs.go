package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Run kinds
const (
	RunKindIngest  = "ingest"
	RunKindEnrich  = "enrich"
	RunKindDeliver = "deliver"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run represents a pipeline run record
type Run struct {
	ID          uuid.UUID       `json:"id"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	Summary     json.RawMessage `json:"summary,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// CreateRun records the start of a pipeline run
func (db *DB) CreateRun(ctx context.Context, id uuid.UUID, kind string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (id, kind, status) VALUES ($1, $2, 'running')`,
		id, kind,
	)
	if err != nil {
		return fail("create run", err)
	}
	return nil
}

// CompleteRun stores the final status and summary of a run
func (db *DB) CompleteRun(ctx context.Context, id uuid.UUID, status string, summary any, runErr error) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fail("marshal run summary", err)
	}
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = $1, summary = $2, error = $3, completed_at = NOW() WHERE id = $4`,
		status, summaryJSON, errText, id,
	)
	if err != nil {
		return fail("complete run", err)
	}
	return nil
}

// GetRun retrieves a pipeline run by ID. Returns nil when it does not exist.
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, kind, status, summary, error, started_at, completed_at
		 FROM pipeline_runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.Kind, &run.Status, &run.Summary, &run.Error, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fail("get run", err)
	}
	return &run, nil
}

// RunFilters holds optional filters for listing runs
type RunFilters struct {
	Kind   string
	Status string
	Limit  uint64
}

// ListRuns retrieves recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}
	q := psql.Select("id", "kind", "status", "summary", "error", "started_at", "completed_at").
		From("pipeline_runs").
		OrderBy("started_at DESC").
		Limit(filters.Limit)
	if filters.Kind != "" {
		q = q.Where(sq.Eq{"kind": filters.Kind})
	}
	if filters.Status != "" {
		q = q.Where(sq.Eq{"status": filters.Status})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fail("build run query", err)
	}
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fail("list runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Kind, &run.Status, &run.Summary, &run.Error, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, fail("scan run", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

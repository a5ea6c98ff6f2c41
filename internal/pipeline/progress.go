// Package pipeline wires the ingestion, enrichment and delivery runs together.
package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/competition-radar/internal/db"
	"github.com/jonathan/competition-radar/internal/observability"
)

// Stage names reported through progress events
const (
	StageCollect  = "collect"
	StageAdmit    = "admit"
	StageRelocate = "relocate"
	StageInsert   = "insert"
	StageExtract  = "extract"
	StageDeliver  = "deliver"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// emitProgress calls the progress callback if configured
func emitProgress(cb ProgressCallback, run *observability.Run, stage, message string, content any) {
	if cb != nil {
		cb(ProgressEvent{
			Stage:   stage,
			Message: message,
			RunID:   run.ID.String(),
			Content: content,
		})
	}
}

// RunRecorder persists run records.
type RunRecorder interface {
	CreateRun(ctx context.Context, id uuid.UUID, kind string) error
	CompleteRun(ctx context.Context, id uuid.UUID, status string, summary any, runErr error) error
}

// startRun records the run as running. A recording failure is logged, never returned.
func startRun(ctx context.Context, runs RunRecorder, run *observability.Run) {
	if runs == nil {
		return
	}
	if err := runs.CreateRun(ctx, run.ID, run.Kind); err != nil {
		run.Logger.Warn("failed to record run start", "error", err)
	}
}

func finishRun(ctx context.Context, runs RunRecorder, run *observability.Run, summary any, runErr error) {
	status := db.RunStatusCompleted
	if runErr != nil {
		status = db.RunStatusFailed
	}
	run.Done("run", "status", status)
	if runs == nil {
		return
	}
	if err := runs.CompleteRun(ctx, run.ID, status, summary, runErr); err != nil {
		run.Logger.Warn("failed to record run completion", "error", err)
	}
}

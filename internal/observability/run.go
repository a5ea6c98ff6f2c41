package observability

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Run carries the identity and timing markers of one pipeline run. Each run owns its markers,
// so overlapping runs never share timers.
type Run struct {
	ID     uuid.UUID
	Kind   string
	Logger *slog.Logger

	now   func() time.Time
	mu    sync.Mutex
	marks map[string]time.Time
}

// NewRun starts a run with a fresh id. The logger gains run_id and kind attributes.
func NewRun(kind string, logger *slog.Logger) *Run {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()
	r := &Run{
		ID:     id,
		Kind:   kind,
		Logger: logger.With("run_id", id.String(), "kind", kind),
		now:    time.Now,
		marks:  map[string]time.Time{},
	}
	r.Mark("run")
	return r
}

// Mark records the start of a named stage.
func (r *Run) Mark(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marks[name] = r.now()
}

// Since returns the time elapsed since a mark, or zero when the mark is unknown.
func (r *Run) Since(name string) time.Duration {
	r.mu.Lock()
	start, ok := r.marks[name]
	r.mu.Unlock()
	if !ok {
		return 0
	}
	return r.now().Sub(start)
}

// Done logs the duration of a stage started with Mark.
func (r *Run) Done(name string, attrs ...any) {
	elapsed := r.Since(name)
	r.Logger.Info("stage finished", append([]any{"stage", name, "duration_ms", elapsed.Milliseconds()}, attrs...)...)
}

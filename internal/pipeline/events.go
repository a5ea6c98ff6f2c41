package pipeline

import (
	"context"
	"log/slog"
	"sync"
)

// AdmittedEvent is emitted once per ingestion run that inserted at least one record.
type AdmittedEvent struct {
	RunID string  `json:"run_id"`
	IDs   []int64 `json:"ids"`
}

// Handler reacts to an admitted event.
type Handler func(ctx context.Context, ev AdmittedEvent)

type queuedEvent struct {
	ctx context.Context
	ev  AdmittedEvent
}

// Bus is an in-process event bus. Events are handled one at a time in publish order on a
// single drain goroutine, so two enrichments never run concurrently. Handlers outlive the
// publisher's context cancellation.
type Bus struct {
	mu       sync.Mutex
	handlers []Handler
	pending  []queuedEvent
	draining bool
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger.With("component", "bus")}
}

// Subscribe registers a handler for every future event.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish queues the event for every subscriber. It does not wait for them.
func (b *Bus) Publish(ctx context.Context, ev AdmittedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, queuedEvent{ctx: context.WithoutCancel(ctx), ev: ev})
	b.logger.Info("admitted event published",
		"run_id", ev.RunID, "ids", len(ev.IDs), "subscribers", len(b.handlers), "queued", len(b.pending))

	if !b.draining {
		b.draining = true
		b.wg.Add(1)
		go b.drain()
	}
}

// drain handles queued events until the queue is empty.
func (b *Bus) drain() {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		if len(b.pending) == 0 {
			b.draining = false
			b.mu.Unlock()
			return
		}
		next := b.pending[0]
		b.pending = b.pending[1:]
		handlers := append([]Handler(nil), b.handlers...)
		b.mu.Unlock()

		for _, h := range handlers {
			b.dispatch(h, next)
		}
	}
}

func (b *Bus) dispatch(h Handler, q queuedEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "run_id", q.ev.RunID, "panic", r)
		}
	}()
	h(q.ctx, q.ev)
}

// Wait blocks until every event published so far has been handled.
func (b *Bus) Wait() {
	b.wg.Wait()
}

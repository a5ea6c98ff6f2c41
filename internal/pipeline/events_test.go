package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishReachesEverySubscriber(t *testing.T) {
	bus := NewBus(nil)
	var count atomic.Int32
	for range 3 {
		bus.Subscribe(func(_ context.Context, ev AdmittedEvent) {
			count.Add(int32(len(ev.IDs)))
		})
	}

	bus.Publish(context.Background(), AdmittedEvent{IDs: []int64{1, 2}})
	bus.Wait()

	assert.Equal(t, int32(6), count.Load())
}

func TestBus_HandlerContextSurvivesCancellation(t *testing.T) {
	bus := NewBus(nil)
	release := make(chan struct{})
	var ctxErr atomic.Value

	bus.Subscribe(func(ctx context.Context, _ AdmittedEvent) {
		<-release
		ctxErr.Store(ctx.Err() == nil)
	})

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, AdmittedEvent{IDs: []int64{1}})
	cancel()
	close(release)
	bus.Wait()

	assert.Equal(t, true, ctxErr.Load())
}

func TestBus_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewBus(nil)
	var ran atomic.Bool
	bus.Subscribe(func(context.Context, AdmittedEvent) { panic("boom") })
	bus.Subscribe(func(context.Context, AdmittedEvent) { ran.Store(true) })

	bus.Publish(context.Background(), AdmittedEvent{IDs: []int64{1}})
	bus.Wait()

	assert.True(t, ran.Load())
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := NewBus(nil)
	bus.Publish(context.Background(), AdmittedEvent{IDs: []int64{1}})
	bus.Wait()
}

func TestBus_HandlesEventsOneAtATimeInOrder(t *testing.T) {
	bus := NewBus(nil)
	var (
		active, peak atomic.Int32
		mu           sync.Mutex
		order        []string
	)
	bus.Subscribe(func(_ context.Context, ev AdmittedEvent) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		order = append(order, ev.RunID)
		mu.Unlock()
		active.Add(-1)
	})

	for _, id := range []string{"r1", "r2", "r3"} {
		bus.Publish(context.Background(), AdmittedEvent{RunID: id, IDs: []int64{1}})
	}
	bus.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, []string{"r1", "r2", "r3"}, order)
}

func TestBus_PublishAfterDrainStartsAgain(t *testing.T) {
	bus := NewBus(nil)
	var count atomic.Int32
	bus.Subscribe(func(context.Context, AdmittedEvent) { count.Add(1) })

	bus.Publish(context.Background(), AdmittedEvent{IDs: []int64{1}})
	bus.Wait()
	bus.Publish(context.Background(), AdmittedEvent{IDs: []int64{2}})
	bus.Wait()

	assert.Equal(t, int32(2), count.Load())
}

package event

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Handler consumes a single event delivery. Handlers run outside the
// publisher's request path; their errors and panics never reach the caller.
type Handler func(ctx context.Context, e Event)

// Bus is a process-wide typed publish/subscribe dispatcher. Publish never
// blocks on subscribers: each delivery runs in its own goroutine against
// the bus's base context, so slow or failing side effects (email, socket
// pushes) stay invisible to the HTTP request that triggered them.
type Bus struct {
	lg *zap.Logger

	mu   sync.RWMutex
	subs map[Topic][]Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewBus creates a Bus whose handler invocations are bounded by ctx.
func NewBus(ctx context.Context, lg *zap.Logger) *Bus {
	ctx, cancel := context.WithCancel(ctx)
	return &Bus{
		lg:     lg,
		subs:   make(map[Topic][]Handler),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Subscribe registers h for every event published on topic.
// Subscriptions are expected to be set up during wiring, before traffic.
func (b *Bus) Subscribe(topic Topic, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
}

// Publish delivers e to every subscriber of its topic asynchronously.
// Publishing on a closed bus is a no-op.
//
// The read lock is held across the wg.Add calls: Close marks the bus
// closed under the write lock before waiting, so every Add happens
// either before Close can take the lock or not at all.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, h := range b.subs[e.EventTopic()] {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					b.lg.Error("event handler panicked",
						zap.String("topic", string(e.EventTopic())),
						zap.Any("panic", rec),
					)
				}
			}()
			h(b.ctx, e)
		}(h)
	}
}

// Close stops accepting new events and waits for in-flight handlers.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	b.cancel()
}

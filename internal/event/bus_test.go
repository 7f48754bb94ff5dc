package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(context.Background(), zaptest.NewLogger(t))

	var (
		mu    sync.Mutex
		got   []string
		done  = make(chan struct{}, 2)
		count = 2
	)
	for range count {
		bus.Subscribe(TopicOrderCreated, func(_ context.Context, e Event) {
			oc, ok := e.(OrderCreated)
			require.True(t, ok)
			mu.Lock()
			got = append(got, oc.OrderID)
			mu.Unlock()
			done <- struct{}{}
		})
	}

	bus.Publish(OrderCreated{OrderID: "o1", UserID: "u1"})

	for range count {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"o1", "o1"}, got)
}

func TestBus_TopicIsolation(t *testing.T) {
	bus := NewBus(context.Background(), zaptest.NewLogger(t))

	delivered := make(chan Topic, 2)
	bus.Subscribe(TopicProductCreated, func(_ context.Context, e Event) {
		delivered <- e.EventTopic()
	})

	bus.Publish(CollectionCreated{CollectionID: "c1"})
	bus.Publish(ProductCreated{ProductID: "p1"})

	select {
	case topic := <-delivered:
		assert.Equal(t, TopicProductCreated, topic)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	select {
	case topic := <-delivered:
		t.Fatalf("unexpected second delivery on %s", topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_PanicInHandlerDoesNotPropagate(t *testing.T) {
	bus := NewBus(context.Background(), zaptest.NewLogger(t))

	done := make(chan struct{})
	bus.Subscribe(TopicOrderStatusUpdated, func(_ context.Context, _ Event) {
		panic("boom")
	})
	bus.Subscribe(TopicOrderStatusUpdated, func(_ context.Context, _ Event) {
		close(done)
	})

	require.NotPanics(t, func() {
		bus.Publish(OrderStatusUpdated{OrderID: "o1", Status: "initiated"})
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second handler was not invoked")
	}
	bus.Close()
}

func TestBus_PublishAfterCloseIsNoop(t *testing.T) {
	bus := NewBus(context.Background(), zaptest.NewLogger(t))

	delivered := make(chan struct{}, 1)
	bus.Subscribe(TopicOrderCreated, func(_ context.Context, _ Event) {
		delivered <- struct{}{}
	})

	bus.Close()
	bus.Publish(OrderCreated{OrderID: "o1"})

	select {
	case <-delivered:
		t.Fatal("delivery after close")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_ConcurrentPublishAndClose(t *testing.T) {
	bus := NewBus(context.Background(), zaptest.NewLogger(t))
	bus.Subscribe(TopicOrderCreated, func(_ context.Context, _ Event) {})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				bus.Publish(OrderCreated{OrderID: "o1", UserID: string(rune('a' + i%26))})
			}
		}()
	}

	// Close races against in-flight publishes; every Add must land
	// before Close starts waiting, or not at all.
	require.NotPanics(t, bus.Close)
	wg.Wait()
}

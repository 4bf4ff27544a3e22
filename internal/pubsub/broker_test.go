package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type renderState struct {
	phase  string
	slides int
}

func receive[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return event
	case <-time.After(100 * time.Millisecond):
		require.Fail(t, "timeout waiting for event")
		return Event[T]{}
	}
}

func TestBroker_DeliversToEverySubscriber(t *testing.T) {
	broker := NewBroker[renderState]()
	defer broker.Close()

	ctx := context.Background()
	preview := broker.Subscribe(ctx)
	status := broker.Subscribe(ctx)
	require.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(ResultEvent, renderState{phase: "idle", slides: 3})

	for _, ch := range []<-chan Event[renderState]{preview, status} {
		event := receive(t, ch)
		require.Equal(t, ResultEvent, event.Type)
		require.Equal(t, 3, event.Payload.slides)
		require.False(t, event.Timestamp.IsZero())
	}
}

func TestBroker_UnsubscribesOnCancel(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	require.Equal(t, 1, broker.SubscriberCount())

	cancel()

	require.Eventually(t, func() bool {
		return broker.SubscriberCount() == 0
	}, time.Second, 5*time.Millisecond)

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after cancel")
}

func TestBroker_DropsWhenSubscriberIsSlow(t *testing.T) {
	broker := NewBrokerWithBuffer[int](2)
	defer broker.Close()

	ch := broker.Subscribe(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			broker.Publish(StateChangedEvent, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Publish blocked on a full subscriber")
	}

	require.Equal(t, 0, receive(t, ch).Payload)
	require.Equal(t, 1, receive(t, ch).Payload)
}

func TestBroker_ReplayDeliversLatestFirst(t *testing.T) {
	broker := NewBroker[renderState]()
	defer broker.Close()

	broker.Publish(StateChangedEvent, renderState{phase: "rendering"})
	broker.Publish(ResultEvent, renderState{phase: "idle", slides: 2})

	latest, ok := broker.Latest()
	require.True(t, ok)
	require.Equal(t, "idle", latest.Payload.phase)

	ch := broker.SubscribeWithReplay(context.Background())
	event := receive(t, ch)
	require.Equal(t, ResultEvent, event.Type)
	require.Equal(t, 2, event.Payload.slides)

	broker.Publish(NavigatedEvent, renderState{phase: "idle", slides: 2})
	require.Equal(t, NavigatedEvent, receive(t, ch).Type)
}

func TestBroker_ReplayWithNothingPublished(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	_, ok := broker.Latest()
	require.False(t, ok)

	ch := broker.SubscribeWithReplay(context.Background())
	select {
	case <-ch:
		require.Fail(t, "no event should be replayed")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBroker_CloseEndsSubscriptions(t *testing.T) {
	broker := NewBroker[string]()
	ch := broker.Subscribe(context.Background())

	broker.Close()
	broker.Close()

	_, ok := <-ch
	require.False(t, ok)
	require.Equal(t, 0, broker.SubscriberCount())

	late := broker.Subscribe(context.Background())
	_, ok = <-late
	require.False(t, ok, "subscribing after Close returns a closed channel")

	broker.Publish(ControllerDoneEvent, "ignored")
}

func TestEventType_Terminal(t *testing.T) {
	require.True(t, ControllerDoneEvent.Terminal())
	for _, et := range []EventType{CreatedEvent, StateChangedEvent, ResultEvent, RenderErrorEvent, NavigatedEvent} {
		require.False(t, et.Terminal(), string(et))
	}
}

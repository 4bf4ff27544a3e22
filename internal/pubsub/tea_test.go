package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenCmd_ReturnsEvent(t *testing.T) {
	ch := make(chan Event[string], 1)
	ch <- Event[string]{Type: RenderErrorEvent, Payload: "theme compose failed"}

	msg := ListenCmd(context.Background(), ch)()

	event, ok := msg.(Event[string])
	require.True(t, ok)
	require.Equal(t, RenderErrorEvent, event.Type)
	require.Equal(t, "theme compose failed", event.Payload)
}

func TestListenCmd_NilOnCancelOrClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Nil(t, ListenCmd(ctx, make(chan Event[string]))())

	closed := make(chan Event[string])
	close(closed)
	require.Nil(t, ListenCmd(context.Background(), closed)())
}

func TestContinuousListener_ReceivesInOrder(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewContinuousListener(ctx, broker)
	broker.Publish(StateChangedEvent, 1)
	broker.Publish(ResultEvent, 2)

	first, ok := listener.Listen()().(Event[int])
	require.True(t, ok)
	require.Equal(t, 1, first.Payload)

	second, ok := listener.Listen()().(Event[int])
	require.True(t, ok)
	require.Equal(t, ResultEvent, second.Type)
}

func TestReplayListener_StartsFromLatest(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	broker.Publish(ResultEvent, 7)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewReplayListener(ctx, broker)
	event, ok := listener.Listen()().(Event[int])
	require.True(t, ok)
	require.Equal(t, 7, event.Payload)
}

package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beadboard/internal/undo"
)

func boardEvent(version uint64) Event {
	return Event{Type: EventTypeBoard, Data: BoardResponse{Version: version}}
}

func undoEvent(seconds int) Event {
	return Event{Type: EventTypeUndo, Data: undo.Tick{IssueID: "1", Seconds: seconds}}
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "channel closed")
		return evt
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for dispatched event")
	}
	return Event{}
}

func TestLocalEventDispatcherPublish(t *testing.T) {
	t.Parallel()

	dispatcher := NewLocalEventDispatcher(2)

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	ch1, err := dispatcher.Subscribe(ctx1)
	require.NoError(t, err)

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	ch2, err := dispatcher.Subscribe(ctx2)
	require.NoError(t, err)
	assert.Equal(t, 2, dispatcher.Subscribers())

	dispatcher.Publish(boardEvent(7))
	assert.Equal(t, boardEvent(7), receive(t, ch1))
	assert.Equal(t, boardEvent(7), receive(t, ch2))

	cancel1()
	cancel2()
	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channel should be closed after cancel")
		case <-time.After(200 * time.Millisecond):
			t.Fatal("timed out waiting for channel close")
		}
	}
	require.Eventually(t, func() bool { return dispatcher.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLocalEventDispatcherSlowWatcherKeepsLatestBoard(t *testing.T) {
	t.Parallel()

	dispatcher := NewLocalEventDispatcher(3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := dispatcher.Subscribe(ctx)
	require.NoError(t, err)

	// Fill the queue, then overflow it with a countdown tick.
	dispatcher.Publish(boardEvent(1))
	dispatcher.Publish(boardEvent(2))
	dispatcher.Publish(undoEvent(4))
	dispatcher.Publish(undoEvent(3))

	assert.Equal(t, boardEvent(2), receive(t, ch), "newest board survives the overflow")
	assert.Equal(t, undoEvent(3), receive(t, ch))
	select {
	case evt := <-ch:
		t.Fatalf("superseded event delivered: %+v", evt)
	default:
	}
}

func TestLocalEventDispatcherOverflowWithBoardReplacesQueue(t *testing.T) {
	t.Parallel()

	dispatcher := NewLocalEventDispatcher(2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := dispatcher.Subscribe(ctx)
	require.NoError(t, err)

	dispatcher.Publish(undoEvent(5))
	dispatcher.Publish(boardEvent(1))
	dispatcher.Publish(boardEvent(2))

	assert.Equal(t, boardEvent(2), receive(t, ch))
	select {
	case evt := <-ch:
		t.Fatalf("superseded event delivered: %+v", evt)
	default:
	}
}

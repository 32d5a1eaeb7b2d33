package api

import (
	"context"
	"sync"
	"sync/atomic"
)

// LocalEventDispatcher fans board events out to in-process subscribers,
// typically one per open /api/events stream.
//
// Each subscriber has a bounded queue. When a watcher falls behind, its
// queue collapses to the newest queued board event followed by the event
// being published: a board event carries the whole board, so the events it
// supersedes are never needed.
type LocalEventDispatcher struct {
	nextID      uint64
	mu          sync.Mutex
	subscribers map[uint64]chan Event
	buffer      int
}

// NewLocalEventDispatcher returns a dispatcher with a per-subscriber queue
// of buffer events (16 when buffer is not positive).
func NewLocalEventDispatcher(buffer int) *LocalEventDispatcher {
	if buffer <= 0 {
		buffer = 16
	}
	return &LocalEventDispatcher{
		subscribers: make(map[uint64]chan Event),
		buffer:      buffer,
	}
}

// Subscribe registers a subscriber until ctx is done; the channel is then closed.
func (d *LocalEventDispatcher) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, d.buffer)
	id := atomic.AddUint64(&d.nextID, 1)

	d.mu.Lock()
	d.subscribers[id] = ch
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.mu.Lock()
		delete(d.subscribers, id)
		close(ch)
		d.mu.Unlock()
	}()

	return ch, nil
}

// Subscribers reports how many streams are attached.
func (d *LocalEventDispatcher) Subscribers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subscribers)
}

// Publish queues evt for every subscriber without blocking.
func (d *LocalEventDispatcher) Publish(evt Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, ch := range d.subscribers {
		select {
		case ch <- evt:
			continue
		default:
		}
		latest, ok := drainLatestBoard(ch)
		if ok && evt.Type != EventTypeBoard {
			ch <- latest
		}
		select {
		case ch <- evt:
		default:
		}
	}
}

// drainLatestBoard empties ch and returns the newest board event it held.
// The caller holds d.mu, so ch cannot be closed or refilled concurrently.
func drainLatestBoard(ch chan Event) (Event, bool) {
	var latest Event
	found := false
	for {
		select {
		case queued := <-ch:
			if queued.Type == EventTypeBoard {
				latest, found = queued, true
			}
		default:
			return latest, found
		}
	}
}

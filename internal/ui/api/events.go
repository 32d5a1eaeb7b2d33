package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/steveyegge/beadboard/internal/board"
	"github.com/steveyegge/beadboard/internal/undo"
)

// EventType enumerates the SSE event kinds.
type EventType string

const (
	// EventTypeBoard carries a BoardResponse after every board change.
	EventTypeBoard EventType = "board"
	// EventTypeUndo carries an undo.Tick while an edit is undoable.
	EventTypeUndo EventType = "undo"
	// EventTypeHeartbeat keeps idle streams open.
	EventTypeHeartbeat EventType = "heartbeat"
)

// Event is emitted to clients that consume the SSE stream. Data is encoded
// as the JSON payload of the event.
type Event struct {
	Type EventType
	Data any
}

// EventSource provides a stream of events.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// EventPublisher emits events to active subscribers.
type EventPublisher interface {
	Publish(evt Event)
}

// EventStreamOption configures the SSE handler.
type EventStreamOption func(*eventStreamConfig)

type eventStreamConfig struct {
	heartbeatInterval time.Duration
	now               func() time.Time
	initial           func() []Event
}

// WithHeartbeatInterval overrides the interval between heartbeat events.
func WithHeartbeatInterval(interval time.Duration) EventStreamOption {
	return func(cfg *eventStreamConfig) {
		cfg.heartbeatInterval = interval
	}
}

// WithNowFunc injects a custom clock, primarily for tests.
func WithNowFunc(now func() time.Time) EventStreamOption {
	return func(cfg *eventStreamConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// WithInitialEvents sends the events returned by fn right after a client
// connects, so it does not wait for the next change to draw the board.
func WithInitialEvents(fn func() []Event) EventStreamOption {
	return func(cfg *eventStreamConfig) {
		cfg.initial = fn
	}
}

// NewEventStreamHandler returns an HTTP handler that serves Server-Sent Events.
func NewEventStreamHandler(source EventSource, opts ...EventStreamOption) http.Handler {
	cfg := eventStreamConfig{
		heartbeatInterval: 30 * time.Second,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if source == nil {
			WriteServiceUnavailable(w, "event stream unavailable", "The board server is not publishing events.")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		ctx := r.Context()
		events, err := source.Subscribe(ctx)
		if err != nil {
			WriteServiceUnavailable(w, "event stream unavailable", fmt.Sprintf("subscribe failed: %v", err))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		heartbeatInterval := cfg.heartbeatInterval
		var heartbeat <-chan time.Time
		if heartbeatInterval > 0 {
			ticker := time.NewTicker(heartbeatInterval)
			defer ticker.Stop()
			heartbeat = ticker.C
		}

		// Initial comment to confirm stream start.
		fmt.Fprintf(w, ": stream online %s\n\n", cfg.now().UTC().Format(time.RFC3339))
		if cfg.initial != nil {
			for _, evt := range cfg.initial() {
				if err := writeSSEEvent(w, string(evt.Type), evt.Data); err != nil {
					return
				}
			}
		}
		flusher.Flush()

		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				if err := writeSSEEvent(w, string(evt.Type), evt.Data); err != nil {
					return
				}
				flusher.Flush()
			case <-heartbeat:
				if err := writeSSEEvent(w, string(EventTypeHeartbeat), map[string]string{
					"at": cfg.now().UTC().Format(time.RFC3339),
				}); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	})
}

func writeSSEEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}

// ForwardBoardEvents publishes a board event for every store snapshot and an
// undo event for every countdown tick, until ctx is done. countdown may be nil.
func ForwardBoardEvents(ctx context.Context, store *board.Store, countdown *undo.Countdown, pub EventPublisher) error {
	snaps := store.Subscribe(ctx)
	var ticks <-chan undo.Tick
	if countdown != nil {
		ticks = countdown.Subscribe(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			pub.Publish(Event{Type: EventTypeBoard, Data: NewBoardResponse(snap, store.UndoRemaining())})
		case tick, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			pub.Publish(Event{Type: EventTypeUndo, Data: tick})
		}
	}
}

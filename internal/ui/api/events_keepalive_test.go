package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEvents(src EventSource, heartbeat time.Duration) serverOption {
	return func(cfg *Config) {
		cfg.Events = src
		cfg.Heartbeat = heartbeat
	}
}

// An idle board keeps its watchers connected: after the initial board the
// stream carries only heartbeats, scaled here so 30s becomes 750ms.
func TestEventStreamKeepaliveScaledMinute(t *testing.T) {
	t.Parallel()

	const (
		scaledSecond       = 25 * time.Millisecond
		heartbeatInterval  = 30 * scaledSecond
		requiredHeartbeats = 2
		waitDuration       = 65 * scaledSecond
	)

	dispatcher := NewLocalEventDispatcher(4)
	s := newTestServer(t, 1, withEvents(dispatcher, heartbeatInterval))
	ts := httptest.NewServer(s.handler)
	t.Cleanup(ts.Close)
	c, err := NewClient(ts.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitDuration+2*time.Second)
	defer cancel()

	var (
		boards     []BoardResponse
		heartbeats int
	)
	errDone := errors.New("heartbeat target reached")
	start := time.Now()
	err = c.Stream(ctx, func(evt StreamEvent) error {
		switch evt.Type {
		case EventTypeBoard:
			var b BoardResponse
			if err := json.Unmarshal(evt.Data, &b); err != nil {
				return err
			}
			boards = append(boards, b)
		case EventTypeHeartbeat:
			heartbeats++
			if heartbeats >= requiredHeartbeats {
				return errDone
			}
		default:
			t.Errorf("unexpected %s event on an idle board", evt.Type)
		}
		return nil
	})
	require.ErrorIs(t, err, errDone, "stream ended early")
	assert.Less(t, time.Since(start), waitDuration+time.Second)

	require.Len(t, boards, 1, "only the initial board is sent while nothing changes")
	assert.Equal(t, 3, boards[0].Total)
	assert.Equal(t, s.store.Snapshot().Version, boards[0].Version)
}

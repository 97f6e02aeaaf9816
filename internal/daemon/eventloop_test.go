package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/harun/pagebot/pkg/commandqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventLoop(t *testing.T) {
	d := newTestDaemon(t, nil)

	loop := NewEventLoop(d)
	assert.Equal(t, d, loop.daemon)
	assert.Equal(t, statsInterval, loop.interval)
}

func TestEventLoopRunStopsOnCancel(t *testing.T) {
	d := newTestDaemon(t, nil)
	loop := NewEventLoop(d)
	loop.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("event loop did not stop")
	}
}

func TestEventLoopProcessTasksWithBusyLane(t *testing.T) {
	d := newTestDaemon(t, nil)
	loop := NewEventLoop(d)

	block := make(chan struct{})
	lane := commandqueue.LaneFor("fake", "chan", "alice")
	require.NoError(t, d.queue.Submit(context.Background(), commandqueue.Job{
		Lane: lane,
		Run:  func(ctx context.Context) error { <-block; return nil },
	}))
	require.Eventually(t, func() bool { return d.queue.Stats()[lane]["running"] == 1 }, time.Second, time.Millisecond)

	assert.NotPanics(t, loop.processTasks)
	close(block)
}

func TestHandleShutdown(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		d := newTestDaemon(t, nil)
		start := time.Now()
		NewEventLoop(d).HandleShutdown()
		assert.Less(t, time.Since(start), shutdownGrace)
	})

	t.Run("queued commands are dropped", func(t *testing.T) {
		d := newTestDaemon(t, nil)
		lane := commandqueue.LaneFor("fake", "chan", "alice")

		release := make(chan struct{})
		require.NoError(t, d.queue.Submit(context.Background(), commandqueue.Job{
			Lane: lane,
			Run: func(ctx context.Context) error {
				<-release
				return nil
			},
		}))
		queued := make(chan error, 1)
		go func() {
			queued <- d.queue.Enqueue(context.Background(), commandqueue.Job{
				Lane: lane,
				Run:  func(ctx context.Context) error { return nil },
			})
		}()
		require.Eventually(t, func() bool { return d.queue.Stats()[lane]["queued"] == 1 }, time.Second, time.Millisecond)

		go func() {
			time.Sleep(20 * time.Millisecond)
			close(release)
		}()
		NewEventLoop(d).HandleShutdown()

		assert.ErrorIs(t, <-queued, commandqueue.ErrLaneCleared)
	})

	t.Run("long running session", func(t *testing.T) {
		d := newTestDaemon(t, nil)

		canceled := make(chan struct{})
		require.NoError(t, d.queue.Submit(context.Background(), commandqueue.Job{
			Lane: "session:fake:chan:alice",
			Run: func(ctx context.Context) error {
				<-ctx.Done()
				close(canceled)
				return ctx.Err()
			},
		}))

		NewEventLoop(d).HandleShutdown()
		require.NoError(t, d.queue.Close())

		select {
		case <-canceled:
		case <-time.After(time.Second):
			t.Fatal("session was not canceled")
		}
	})
}

func TestAttachDetach(t *testing.T) {
	d := newTestDaemon(t, nil)
	loop := NewEventLoop(d)

	loop.Detach()
	assert.NotPanics(t, func() {
		require.NoError(t, d.queue.Enqueue(context.Background(), commandqueue.Job{
			Lane: "detached",
			Run:  func(ctx context.Context) error { return nil },
		}))
	})
	loop.Attach()
	require.NoError(t, d.queue.Enqueue(context.Background(), commandqueue.Job{
		Lane: "attached",
		Run:  func(ctx context.Context) error { return nil },
	}))
}

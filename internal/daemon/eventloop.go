package daemon

import (
	"context"
	"time"

	"github.com/harun/pagebot/internal/observability"
	"github.com/harun/pagebot/pkg/commandqueue"
)

const (
	statsInterval = 30 * time.Second
	shutdownGrace = 2 * time.Second
)

// EventLoop handles the main event processing loop
type EventLoop struct {
	daemon   *Daemon
	interval time.Duration
}

// NewEventLoop creates a new event loop
func NewEventLoop(d *Daemon) *EventLoop {
	return &EventLoop{
		daemon:   d,
		interval: statsInterval,
	}
}

// Run runs the event loop with periodic maintenance tasks
func (e *EventLoop) Run(ctx context.Context) {
	e.daemon.logger.Info().Msg("Event loop started")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.daemon.logger.Info().Msg("Event loop stopping")
			return

		case <-ticker.C:
			e.processTasks()
		}
	}
}

// Attach reports queue events as metrics
func (e *EventLoop) Attach() {
	q := e.daemon.queue
	q.On(commandqueue.EventEnqueued, func(ev commandqueue.Event) {
		observability.RecordQueueEnqueue(commandqueue.LaneLabel(ev.Lane), ev.QueueSize)
	})
	q.On(commandqueue.EventCompleted, func(ev commandqueue.Event) {
		observability.RecordQueueCompletion(commandqueue.LaneLabel(ev.Lane), ev.Duration, ev.Err == nil, ev.QueueSize)
	})
	q.On(commandqueue.EventCleared, func(ev commandqueue.Event) {
		observability.RecordQueueCleared(commandqueue.LaneLabel(ev.Lane), ev.Cleared)
	})
}

// Detach removes the handlers registered by Attach
func (e *EventLoop) Detach() {
	q := e.daemon.queue
	q.Off(commandqueue.EventEnqueued)
	q.Off(commandqueue.EventCompleted)
	q.Off(commandqueue.EventCleared)
}

// processTasks publishes queue gauges and logs busy lanes
func (e *EventLoop) processTasks() {
	queued := make(map[string]int)
	for lane, laneStats := range e.daemon.queue.Stats() {
		queued[commandqueue.LaneLabel(lane)] += laneStats["queued"]
		if laneStats["queued"] > 0 || laneStats["running"] > 0 {
			e.daemon.logger.Debug().
				Str("lane", lane).
				Int("queued", laneStats["queued"]).
				Int("running", laneStats["running"]).
				Msg("Queue stats")
		}
	}
	for label, n := range queued {
		observability.SetQueueSize(label, n)
	}
}

// HandleShutdown drops queued commands and gives running ones a short grace
// period. Sessions still waiting for reactions are canceled when the queue
// closes, which clears their triggers.
func (e *EventLoop) HandleShutdown() {
	e.daemon.logger.Info().Msg("Handling graceful shutdown")

	dropped := 0
	for lane := range e.daemon.queue.Stats() {
		dropped += e.daemon.queue.ClearLane(lane)
	}
	if dropped > 0 {
		e.daemon.logger.Info().Int("dropped", dropped).Msg("Dropped queued commands")
	}

	if e.daemon.queue.WaitForActive(shutdownGrace) {
		e.daemon.logger.Info().Msg("All active commands completed")
		return
	}

	running := 0
	for _, laneStats := range e.daemon.queue.Stats() {
		running += laneStats["running"]
	}
	e.daemon.logger.Info().Int("running", running).Msg("Canceling running sessions")
}

package commandqueue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harun/pagebot/internal/tracing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrDuplicate is returned when a request id was already accepted within the dedupe TTL
	ErrDuplicate = errors.New("duplicate request")
	// ErrClosed is returned once the queue has been closed
	ErrClosed = errors.New("command queue closed")
	// ErrLaneCleared is delivered to queued tasks removed by ClearLane or a
	// preempting job
	ErrLaneCleared = errors.New("lane cleared")
)

// Event types passed to On
const (
	EventEnqueued  = "enqueued"
	EventCompleted = "completed"
	EventCleared   = "cleared"
)

// PanicError wraps a value recovered from a panicking task
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Task is one unit of work, typically a whole pagination session
type Task func(ctx context.Context) error

// Job describes a task submission
type Job struct {
	Lane      string
	RequestID string // platform message id, empty disables dedupe
	Run       Task

	// Preempt rejects the lane's queued jobs and cancels its running tasks
	// before this job is queued. Duplicates never preempt.
	Preempt bool

	// WarnAfter fires OnWait once if the job is still queued after this long
	WarnAfter time.Duration
	OnWait    func(wait time.Duration, queuePos int)
}

// Options configures a Queue
type Options struct {
	Concurrency int // tasks running at once per lane, default 1
	DedupeTTL   time.Duration
	Logger      *zerolog.Logger
}

// taskRecord tracks a task's execution state
type taskRecord struct {
	id         string
	job        Job
	ctx        context.Context
	runCtx     context.Context
	cancel     context.CancelFunc
	enqueuedAt time.Time
	result     chan error
}

// laneState manages execution state for a single lane
type laneState struct {
	queue   []*taskRecord
	running map[string]context.CancelFunc
}

// EventHandler is a function that handles queue events
type EventHandler func(event Event)

// Event represents a queue event
type Event struct {
	Type      string
	Lane      string
	TaskID    string // empty for EventCleared
	QueueSize int
	Duration  time.Duration // EventCompleted only
	Err       error         // EventCompleted only
	Cleared   int           // EventCleared only
}

// Queue provides lane-based task serialization with concurrency control
type Queue struct {
	opts   Options
	logger zerolog.Logger
	dedup  *dedupCache

	mu     sync.Mutex
	lanes  map[string]*laneState
	limits map[string]int
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	eventHandlers map[string][]EventHandler
	eventMu       sync.RWMutex
}

// New creates a new Queue
func New(opts Options) *Queue {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		opts:          opts,
		logger:        logger.With().Str("component", "commandqueue").Logger(),
		dedup:         newDedupCache(ctx, opts.DedupeTTL),
		lanes:         make(map[string]*laneState),
		limits:        make(map[string]int),
		ctx:           ctx,
		cancel:        cancel,
		eventHandlers: make(map[string][]EventHandler),
	}
}

// LaneFor returns the lane serializing one user's commands in one channel
func LaneFor(platform, channelID, userID string) string {
	return "session:" + platform + ":" + channelID + ":" + userID
}

// LaneLabel collapses a lane to its platform for metric labels
func LaneLabel(lane string) string {
	parts := strings.SplitN(lane, ":", 3)
	if len(parts) >= 2 {
		return parts[0] + ":" + parts[1]
	}
	return lane
}

// Submit queues a job and returns without waiting for it to run.
// The task context keeps ctx's values but not its cancellation; it is
// canceled when the queue closes.
func (q *Queue) Submit(ctx context.Context, job Job) error {
	_, err := q.enqueue(context.WithoutCancel(ctx), job)
	return err
}

// Enqueue queues a job and blocks until it has run, returning the task's error
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	record, err := q.enqueue(ctx, job)
	if err != nil {
		return err
	}

	select {
	case err := <-record.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) enqueue(ctx context.Context, job Job) (*taskRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"pagebot.commandqueue",
		"commandqueue.enqueue",
		attribute.String("lane", job.Lane),
		attribute.String("request_id", job.RequestID),
	)
	defer span.End()

	if tracing.GetSessionKey(ctx) == "" {
		ctx = tracing.WithSessionKey(ctx, job.Lane)
	}
	logger := tracing.LoggerFromContext(ctx, q.logger)

	if job.RequestID != "" && q.dedup.Mark(job.RequestID) {
		logger.Debug().Str("request_id", job.RequestID).Msg("Duplicate request dropped")
		return nil, ErrDuplicate
	}

	record := &taskRecord{
		id:         uuid.NewString(),
		job:        job,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		result:     make(chan error, 1),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	ls := q.lane(job.Lane)
	cleared, canceled := 0, 0
	if job.Preempt {
		cleared = q.clearLocked(ls)
		canceled = len(ls.running)
		for _, cancel := range ls.running {
			cancel()
		}
	}
	ls.queue = append(ls.queue, record)
	queueSize := len(ls.queue)
	q.mu.Unlock()

	if cleared > 0 || canceled > 0 {
		logger.Info().
			Str("lane", job.Lane).
			Int("cleared", cleared).
			Int("canceled", canceled).
			Msg("Lane preempted")
	}
	if cleared > 0 {
		q.emit(Event{Type: EventCleared, Lane: job.Lane, Cleared: cleared})
	}

	logger.Debug().
		Str("lane", job.Lane).
		Str("taskId", record.id).
		Int("queueSize", queueSize).
		Msg("Task enqueued")

	q.emit(Event{
		Type:      EventEnqueued,
		Lane:      job.Lane,
		TaskID:    record.id,
		QueueSize: queueSize,
	})

	if job.WarnAfter > 0 && job.OnWait != nil {
		go q.startWarnTimer(record)
	}

	q.processLane(job.Lane)

	return record, nil
}

// lane returns the lane state, creating it. Caller holds q.mu.
func (q *Queue) lane(name string) *laneState {
	ls, ok := q.lanes[name]
	if !ok {
		ls = &laneState{running: make(map[string]context.CancelFunc)}
		q.lanes[name] = ls
	}
	return ls
}

// concurrency returns the lane limit. Caller holds q.mu.
func (q *Queue) concurrency(lane string) int {
	if n, ok := q.limits[lane]; ok {
		return n
	}
	return q.opts.Concurrency
}

// processLane starts queued tasks while the lane has capacity
func (q *Queue) processLane(lane string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ls, ok := q.lanes[lane]
	if !ok || q.closed {
		return
	}

	for len(ls.running) < q.concurrency(lane) && len(ls.queue) > 0 {
		record := ls.queue[0]
		ls.queue = ls.queue[1:]
		record.runCtx, record.cancel = context.WithCancel(record.ctx)
		ls.running[record.id] = record.cancel

		q.wg.Add(1)
		go q.executeTask(lane, record)
	}
}

// executeTask executes a single task
func (q *Queue) executeTask(lane string, record *taskRecord) {
	defer q.wg.Done()

	taskCtx, span := tracing.StartSpan(
		record.runCtx,
		"pagebot.commandqueue",
		"commandqueue.execute_task",
		attribute.String("lane", lane),
		attribute.String("task_id", record.id),
	)

	logger := tracing.LoggerFromContext(taskCtx, q.logger)

	stopCancel := context.AfterFunc(q.ctx, record.cancel)

	startTime := time.Now()
	err := q.run(taskCtx, record.job.Run)
	duration := time.Since(startTime)

	stopCancel()
	record.cancel()
	tracing.EndSpan(span, err)

	// Update lane state, dropping idle lanes
	q.mu.Lock()
	ls := q.lanes[lane]
	delete(ls.running, record.id)
	queueSize := len(ls.queue)
	if len(ls.running) == 0 && queueSize == 0 {
		delete(q.lanes, lane)
	}
	q.mu.Unlock()

	record.result <- err

	if err != nil {
		logger.Error().
			Str("lane", lane).
			Str("taskId", record.id).
			Dur("duration", duration).
			Err(err).
			Msg("Task failed")
	} else {
		logger.Debug().
			Str("lane", lane).
			Str("taskId", record.id).
			Dur("duration", duration).
			Msg("Task completed")
	}

	q.emit(Event{
		Type:      EventCompleted,
		Lane:      lane,
		TaskID:    record.id,
		QueueSize: queueSize,
		Duration:  duration,
		Err:       err,
	})

	q.processLane(lane)
}

// run executes the task, turning a panic into an error so the lane keeps draining
func (q *Queue) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return task(ctx)
}

// startWarnTimer reports a job still waiting for a slot after WarnAfter
func (q *Queue) startWarnTimer(record *taskRecord) {
	timer := time.NewTimer(record.job.WarnAfter)
	defer timer.Stop()

	select {
	case <-timer.C:
		lane := record.job.Lane
		q.mu.Lock()
		queuePos := -1
		if ls, ok := q.lanes[lane]; ok {
			for i, r := range ls.queue {
				if r.id == record.id {
					queuePos = i
					break
				}
			}
		}
		q.mu.Unlock()

		if queuePos >= 0 {
			wait := time.Since(record.enqueuedAt)
			q.logger.Warn().
				Str("lane", lane).
				Str("taskId", record.id).
				Dur("wait", wait).
				Int("queuePos", queuePos).
				Msg("Task waiting longer than expected")

			record.job.OnWait(wait, queuePos)
		}
	case <-q.ctx.Done():
		return
	}
}

// Stats returns statistics for all active lanes
func (q *Queue) Stats() map[string]map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := make(map[string]map[string]int, len(q.lanes))
	for lane, ls := range q.lanes {
		stats[lane] = map[string]int{
			"queued":      len(ls.queue),
			"running":     len(ls.running),
			"concurrency": q.concurrency(lane),
		}
	}
	return stats
}

// ClearLane rejects all queued tasks of a lane with ErrLaneCleared.
// Running tasks are left alone.
func (q *Queue) ClearLane(lane string) int {
	q.mu.Lock()
	ls, ok := q.lanes[lane]
	if !ok {
		q.mu.Unlock()
		return 0
	}
	count := q.clearLocked(ls)
	q.mu.Unlock()

	if count > 0 {
		q.logger.Info().Str("lane", lane).Int("cleared", count).Msg("Lane cleared")
		q.emit(Event{Type: EventCleared, Lane: lane, Cleared: count})
	}
	return count
}

// clearLocked rejects the queued tasks of ls. Caller holds q.mu.
func (q *Queue) clearLocked(ls *laneState) int {
	count := len(ls.queue)
	for _, record := range ls.queue {
		record.result <- ErrLaneCleared
	}
	ls.queue = nil
	return count
}

// SetConcurrency overrides the concurrency limit for a lane
func (q *Queue) SetConcurrency(lane string, concurrency int) {
	q.mu.Lock()
	oldMax := q.concurrency(lane)
	q.limits[lane] = concurrency
	q.mu.Unlock()

	q.logger.Info().
		Str("lane", lane).
		Int("oldMax", oldMax).
		Int("newMax", concurrency).
		Msg("Lane concurrency updated")

	// Process queue in case we increased concurrency
	if concurrency > oldMax {
		q.processLane(lane)
	}
}

// WaitForActive waits for all running tasks to complete with timeout
func (q *Queue) WaitForActive(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		q.mu.Lock()
		active := 0
		for _, ls := range q.lanes {
			active += len(ls.running)
		}
		q.mu.Unlock()

		if active == 0 {
			return true
		}

		if time.Now().After(deadline) {
			q.logger.Warn().Dur("timeout", timeout).Int("active", active).Msg("Timeout waiting for active tasks")
			return false
		}

		<-ticker.C
	}
}

// Close cancels running tasks, rejects queued ones and waits for workers to exit
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for _, ls := range q.lanes {
		for _, record := range ls.queue {
			record.result <- ErrClosed
		}
		ls.queue = nil
	}
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	q.dedup.Stop()
	return nil
}

// On registers an event handler for a specific event type
func (q *Queue) On(eventType string, handler EventHandler) {
	q.eventMu.Lock()
	defer q.eventMu.Unlock()

	q.eventHandlers[eventType] = append(q.eventHandlers[eventType], handler)
}

// Off removes all handlers for the event type
func (q *Queue) Off(eventType string) {
	q.eventMu.Lock()
	defer q.eventMu.Unlock()

	delete(q.eventHandlers, eventType)
}

// emit emits an event synchronously to all registered handlers
func (q *Queue) emit(event Event) {
	q.eventMu.RLock()
	handlers := q.eventHandlers[event.Type]
	q.eventMu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

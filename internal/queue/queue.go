// Package queue implements the in-memory event batch queue: a bounded FIFO
// of pending events flushed by size, by elapsed time, or on demand.
package queue

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/engagekit/client-go/internal/apierrors"
)

// Defaults for Config fields left zero.
const (
	DefaultCapacity      = 1000
	DefaultBatchSize     = 10
	DefaultFlushInterval = 5 * time.Second
)

// shutdownFlushTimeout bounds the final drain during Shutdown.
const shutdownFlushTimeout = 5 * time.Second

// Event is a pending telemetry event. Events are immutable once enqueued.
type Event struct {
	ID         string
	Type       string
	Properties map[string]any
}

// Sender delivers one batch. It is expected to perform its own retries and
// return the final classified failure.
type Sender func(ctx context.Context, events []Event) error

// Config configures a Queue.
type Config struct {
	Capacity      int           // max pending events; oldest are evicted beyond this
	BatchSize     int           // pending count that forces an immediate flush
	FlushInterval time.Duration // max age of the oldest pending event before a flush
	Send          Sender        // required
	Logger        *slog.Logger  // optional
}

// Queue is a bounded, ordered in-memory event queue. All mutations happen
// under a single mutex, so concurrent enqueues and flushes are linearized.
// Delivery itself runs outside the lock.
type Queue struct {
	capacity      int
	batchSize     int
	flushInterval time.Duration
	send          Sender
	logger        *slog.Logger

	mu             sync.Mutex
	events         []Event
	timer          *time.Timer
	flushScheduled bool
	closed         bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a queue. The zero values of Capacity, BatchSize and
// FlushInterval select the defaults.
func New(cfg Config) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		capacity:      cfg.Capacity,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		send:          cfg.Send,
		logger:        cfg.Logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Enqueue appends an event. If the queue is full the oldest pending event
// is evicted first. Reaching the batch size schedules an immediate
// background flush; the first event in an empty queue arms the flush timer.
// Enqueue never blocks on network work.
func (q *Queue) Enqueue(eventType string, properties map[string]any) error {
	if strings.TrimSpace(eventType) == "" {
		return &apierrors.ValidationError{Field: "eventType", Message: "must not be blank"}
	}

	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Properties: properties,
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return apierrors.ErrClientClosed
	}

	if len(q.events) >= q.capacity {
		evicted := q.events[0]
		q.events = q.events[1:]
		q.logger.Warn("event queue full, dropping oldest event",
			slog.String("event_type", evicted.Type),
			slog.String("event_id", evicted.ID),
		)
	}
	q.events = append(q.events, event)

	if len(q.events) >= q.batchSize {
		if !q.flushScheduled {
			q.flushScheduled = true
			q.stopTimerLocked()
			q.wg.Add(1)
			go q.backgroundFlush()
		}
	} else if len(q.events) == 1 {
		// Timer measures time since the first event of the batch; it is
		// not re-armed on later inserts.
		q.armTimerLocked()
	}

	return nil
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Flush sends all pending events as one batch and surfaces the delivery
// failure, if any, to the caller. Flushing an empty queue is a no-op that
// performs no network call.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return apierrors.ErrClientClosed
	}
	q.mu.Unlock()
	return q.flush(ctx)
}

// Shutdown disarms the timer, waits for in-flight background flushes,
// attempts one final drain (errors swallowed), and releases the queue's
// background context. The queue must not be reused afterwards.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.stopTimerLocked()
	q.mu.Unlock()

	q.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()
	if err := q.flush(ctx); err != nil {
		q.logger.Warn("final flush on shutdown failed", slog.String("error", err.Error()))
	}

	q.cancel()
}

// flush snapshots and clears the queue atomically, then delivers the
// snapshot outside the lock. A failed batch is re-queued at the head.
func (q *Queue) flush(ctx context.Context) error {
	q.mu.Lock()
	batch := q.events
	q.events = nil
	q.flushScheduled = false
	q.stopTimerLocked()
	q.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := q.send(ctx, batch); err != nil {
		q.requeue(batch)
		return err
	}
	return nil
}

// requeue re-inserts a failed batch at the head, truncated to the
// remaining capacity. Oldest events are dropped first when the batch no
// longer fits.
func (q *Queue) requeue(batch []Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	remaining := q.capacity - len(q.events)
	if remaining <= 0 {
		q.logger.Warn("dropping failed batch, queue at capacity",
			slog.Int("dropped", len(batch)),
		)
		return
	}
	if len(batch) > remaining {
		dropped := len(batch) - remaining
		q.logger.Warn("truncating re-queued batch to remaining capacity",
			slog.Int("dropped", dropped),
		)
		batch = batch[dropped:]
	}

	merged := make([]Event, 0, len(batch)+len(q.events))
	merged = append(merged, batch...)
	merged = append(merged, q.events...)
	q.events = merged

	// The re-queued events are now the oldest pending, so reset the timer:
	// one armed for an event enqueued mid-send would measure the wrong head.
	if !q.closed {
		q.stopTimerLocked()
		q.armTimerLocked()
	}
}

func (q *Queue) backgroundFlush() {
	defer q.wg.Done()
	if err := q.flush(q.ctx); err != nil {
		q.logger.Warn("background flush failed, events re-queued",
			slog.String("error", err.Error()),
		)
	}
}

func (q *Queue) timerFired() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.timer = nil
	q.wg.Add(1)
	q.mu.Unlock()

	defer q.wg.Done()
	if err := q.flush(q.ctx); err != nil {
		q.logger.Warn("scheduled flush failed, events re-queued",
			slog.String("error", err.Error()),
		)
	}
}

func (q *Queue) armTimerLocked() {
	if q.timer != nil {
		return
	}
	q.timer = time.AfterFunc(q.flushInterval, q.timerFired)
}

func (q *Queue) stopTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

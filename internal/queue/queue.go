package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SignalPayload is the analyzed signal content. Timestamp is unix
// milliseconds; zero means no expiry check applies.
type SignalPayload struct {
	Kind      string  `json:"kind"`
	Price     float64 `json:"price"`
	MessageID int64   `json:"message_id"`
	Timestamp int64   `json:"timestamp_ms"`
	Text      string  `json:"text"`
}

// Result is delivered to the task callback exactly once per task
type Result struct {
	TaskID   int64
	TraceID  string
	Symbol   string
	Analysis string
	Err      error
	Skipped  bool
}

// Callback receives the task outcome. Invoked from the worker goroutine
// (or synchronously from Enqueue for expired tasks).
type Callback func(Result)

// AnalyzeFunc performs the downstream AI analysis for one task
type AnalyzeFunc func(ctx context.Context, symbol string, payload SignalPayload) (string, error)

// Config holds queue behavior knobs
type Config struct {
	TTL         time.Duration // max age for expiry-checked kinds
	ExpiryKinds []string      // payload kinds subject to the TTL check
	TaskTimeout time.Duration // per-task analysis deadline
	StopTimeout time.Duration // how long Stop waits for the current task
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		TTL:         24 * time.Hour,
		ExpiryKinds: []string{"bull", "bear"},
		TaskTimeout: 2 * time.Minute,
		StopTimeout: 30 * time.Second,
	}
}

// Stats is a read-only snapshot of queue counters
type Stats struct {
	Queued        int64  `json:"queued"`
	Processed     int64  `json:"processed"`
	Succeeded     int64  `json:"succeeded"`
	Failed        int64  `json:"failed"`
	Skipped       int64  `json:"skipped"`
	Depth         int    `json:"depth"`
	CurrentSymbol string `json:"current_symbol"`
}

type task struct {
	id        int64
	traceID   string
	symbol    string
	payload   SignalPayload
	callback  Callback
	createdAt time.Time
}

// AnalysisQueue is a strict FIFO with exactly one worker: at most one
// analysis in flight, tasks processed in arrival order, every non-expired
// task's callback invoked exactly once. The serialization prevents
// concurrent AI calls from racing on shared downstream state.
type AnalysisQueue struct {
	cfg     Config
	analyze AnalyzeFunc
	logger  zerolog.Logger

	mu            sync.Mutex
	tasks         []*task
	nextID        int64
	currentSymbol string
	started       bool
	stopped       bool

	wake       chan struct{}
	stopChan   chan struct{}
	workerDone chan struct{}
	drain      sync.WaitGroup

	queued    atomic.Int64
	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
}

// New creates an analysis queue. Call Start to launch the worker.
func New(cfg Config, analyze AnalyzeFunc, logger zerolog.Logger) *AnalysisQueue {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 2 * time.Minute
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 30 * time.Second
	}
	return &AnalysisQueue{
		cfg:        cfg,
		analyze:    analyze,
		logger:     logger.With().Str("component", "SequentialAnalysisQueue").Logger(),
		wake:       make(chan struct{}, 1),
		stopChan:   make(chan struct{}),
		workerDone: make(chan struct{}),
	}
}

// Start launches the single worker goroutine. Safe to call once.
func (q *AnalysisQueue) Start() {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	go q.worker()
	q.logger.Info().Msg("analysis queue started")
}

// Enqueue is non-blocking and safe for any number of concurrent producers.
// Tasks whose payload is older than the TTL and whose kind is in the expiry
// set are skipped synchronously: the callback fires immediately with an
// empty result and the task never reaches the worker. Enqueue after Stop is
// rejected the same way.
func (q *AnalysisQueue) Enqueue(symbol string, payload SignalPayload, callback Callback) int64 {
	q.mu.Lock()
	q.nextID++
	id := q.nextID
	q.mu.Unlock()

	traceID := uuid.NewString()

	if q.expired(payload) {
		q.skipped.Add(1)
		q.logger.Info().
			Str("symbol", symbol).
			Str("kind", payload.Kind).
			Int64("task_id", id).
			Msg("task expired at enqueue, skipping")
		if callback != nil {
			callback(Result{TaskID: id, TraceID: traceID, Symbol: symbol, Skipped: true})
		}
		return id
	}

	t := &task{
		id:        id,
		traceID:   traceID,
		symbol:    symbol,
		payload:   payload,
		callback:  callback,
		createdAt: time.Now(),
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		q.skipped.Add(1)
		q.logger.Info().
			Str("symbol", symbol).
			Int64("task_id", id).
			Msg("queue stopped, rejecting task")
		if callback != nil {
			callback(Result{TaskID: id, TraceID: traceID, Symbol: symbol, Skipped: true})
		}
		return id
	}
	q.drain.Add(1)
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
	q.queued.Add(1)

	select {
	case q.wake <- struct{}{}:
	default:
	}

	return id
}

func (q *AnalysisQueue) expired(payload SignalPayload) bool {
	if payload.Timestamp <= 0 {
		return false
	}
	match := false
	for _, kind := range q.cfg.ExpiryKinds {
		if kind == payload.Kind {
			match = true
			break
		}
	}
	if !match {
		return false
	}

	age := time.Since(time.UnixMilli(payload.Timestamp))
	return age > q.cfg.TTL
}

// worker pulls tasks strictly in arrival order, one at a time
func (q *AnalysisQueue) worker() {
	defer close(q.workerDone)
	defer q.drainQueued()

	for {
		t := q.pop()
		if t == nil {
			select {
			case <-q.wake:
				continue
			case <-q.stopChan:
				return
			}
		}

		select {
		case <-q.stopChan:
			// Tasks still queued at shutdown are dropped; the process is
			// expected to restart and sources re-deliver.
			q.drain.Done()
			return
		default:
		}

		q.process(t)
	}
}

// drainQueued releases the wait-group counts of tasks still queued when the
// worker exits, so Wait never blocks on tasks that will never run. Their
// callbacks are not invoked; sources are expected to re-deliver.
func (q *AnalysisQueue) drainQueued() {
	q.mu.Lock()
	dropped := len(q.tasks)
	q.tasks = nil
	q.mu.Unlock()

	for i := 0; i < dropped; i++ {
		q.drain.Done()
	}
	if dropped > 0 {
		q.logger.Warn().Int("dropped", dropped).Msg("queued tasks dropped at shutdown")
	}
}

func (q *AnalysisQueue) pop() *task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t
}

// process runs one task to completion. Failures are caught here; they never
// crash the worker and never skip the callback.
func (q *AnalysisQueue) process(t *task) {
	q.mu.Lock()
	q.currentSymbol = t.symbol
	q.mu.Unlock()

	logger := q.logger.With().
		Int64("task_id", t.id).
		Str("trace_id", t.traceID).
		Str("symbol", t.symbol).
		Logger()

	result := Result{TaskID: t.id, TraceID: t.traceID, Symbol: t.symbol}

	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("analysis panic: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), q.cfg.TaskTimeout)
		defer cancel()
		result.Analysis, result.Err = q.analyze(ctx, t.symbol, t.payload)
	}()

	if result.Err != nil {
		q.failed.Add(1)
		logger.Warn().Err(result.Err).Msg("analysis task failed")
	} else {
		q.succeeded.Add(1)
		logger.Debug().Dur("took", time.Since(t.createdAt)).Msg("analysis task completed")
	}

	if t.callback != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error().Interface("panic", r).Msg("task callback panicked")
				}
			}()
			t.callback(result)
		}()
	}

	q.mu.Lock()
	q.currentSymbol = ""
	q.mu.Unlock()
	q.processed.Add(1)
	q.drain.Done()
}

// Wait blocks until every enqueued task, including tasks enqueued after the
// wait began, has been processed.
func (q *AnalysisQueue) Wait() {
	q.drain.Wait()
}

// Stop sets the stop flag and waits for the current task (if any) to finish,
// bounded by the configured stop timeout. Queued tasks are not flushed.
func (q *AnalysisQueue) Stop() error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	started := q.started
	q.mu.Unlock()

	close(q.stopChan)

	if !started {
		q.drainQueued()
		return nil
	}

	select {
	case <-q.workerDone:
		q.logger.Info().Msg("analysis queue stopped")
		return nil
	case <-time.After(q.cfg.StopTimeout):
		return fmt.Errorf("queue worker did not stop within %s", q.cfg.StopTimeout)
	}
}

// Stats returns a read-only snapshot of the queue counters
func (q *AnalysisQueue) Stats() Stats {
	q.mu.Lock()
	depth := len(q.tasks)
	current := q.currentSymbol
	q.mu.Unlock()

	return Stats{
		Queued:        q.queued.Load(),
		Processed:     q.processed.Load(),
		Succeeded:     q.succeeded.Load(),
		Failed:        q.failed.Load(),
		Skipped:       q.skipped.Load(),
		Depth:         depth,
		CurrentSymbol: current,
	}
}

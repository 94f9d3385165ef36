package jobqueue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner executes one generation job. The manifest is the opaque registry
// document for the concrete version being generated.
type Runner func(ctx context.Context, record *Record, manifest map[string]any) error

// Submission describes one unit of generation work.
type Submission struct {
	Name     string
	Version  string
	Manifest map[string]any
}

// Key returns the dedup key for the submission.
func (s Submission) Key() string {
	return s.Name + "@" + s.Version
}

// Options configures a Queue.
type Options struct {
	// Store persists job records. Required.
	Store *Store

	// Runner executes jobs. Required.
	Runner Runner

	// Workers is the number of concurrent job executors.
	Workers int

	// Buffer is the pending-work channel capacity.
	Buffer int

	// Retention is how long terminal records are kept before reaping.
	// Zero keeps them for 24h.
	Retention time.Duration

	// Logger for queue events.
	Logger *zap.Logger
}

// Queue runs generation jobs with at most one in-flight job per key.
//
// Jobs run on a background context owned by the queue: a caller that stops
// waiting does not cancel the job, and the finished artifact stays available
// for later requests.
type Queue struct {
	store     *Store
	runner    Runner
	logger    *zap.Logger
	retention time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	tasks  chan *entry
	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type entry struct {
	record   *Record
	manifest map[string]any
	done     chan struct{}
}

// New creates a queue and starts its workers.
func New(opts Options) (*Queue, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.Retention <= 0 {
		opts.Retention = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		store:     opts.Store,
		runner:    opts.Runner,
		logger:    opts.Logger,
		retention: opts.Retention,
		entries:   make(map[string]*entry),
		tasks:     make(chan *entry, opts.Buffer),
		runCtx:    ctx,
		cancel:    cancel,
	}

	for i := 0; i < opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	return q, nil
}

// Submit enqueues a job for the submission's key, or returns the existing
// in-flight job for that key. The returned bool is true when a new job was
// created.
//
// A terminal record for the key does not block resubmission: retry is a
// caller decision, and a fresh trigger after failure starts a new run.
func (q *Queue) Submit(sub Submission) (*Record, bool, error) {
	if strings.TrimSpace(sub.Name) == "" || strings.TrimSpace(sub.Version) == "" {
		return nil, false, fmt.Errorf("name and version are required")
	}
	key := sub.Key()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, false, ErrQueueClosed
	}

	if e, ok := q.entries[key]; ok && !e.record.State.Terminal() {
		return e.record.Clone(), false, nil
	}

	record := &Record{
		ID:        key,
		Name:      sub.Name,
		Version:   sub.Version,
		State:     StateQueued,
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
	e := &entry{record: record, manifest: sub.Manifest, done: make(chan struct{})}

	select {
	case q.tasks <- e:
	default:
		return nil, false, ErrQueueFull
	}

	if err := q.store.Write(record); err != nil {
		q.logger.Warn("failed to persist queued job", zap.String("job_id", key), zap.Error(err))
	}
	q.entries[key] = e

	q.logger.Info("job queued",
		zap.String("job_id", key),
		zap.String("run_id", record.RunID))

	return record.Clone(), true, nil
}

// Status returns the current record for a job id.
// Returns ErrJobNotFound for ids that were never submitted or were reaped.
func (q *Queue) Status(jobID string) (*Record, error) {
	q.mu.Lock()
	if e, ok := q.entries[jobID]; ok {
		r := e.record.Clone()
		q.mu.Unlock()
		return r, nil
	}
	q.mu.Unlock()

	// Fall back to the durable store for records from a previous process.
	return q.store.Get(jobID)
}

// Wait suspends until the job reaches a terminal state or ctx is done.
// The job itself keeps running if ctx is cancelled.
func (q *Queue) Wait(ctx context.Context, jobID string) (*Record, error) {
	q.mu.Lock()
	e, ok := q.entries[jobID]
	q.mu.Unlock()

	if !ok {
		record, err := q.store.Get(jobID)
		if err != nil {
			return nil, err
		}
		if record.State.Terminal() {
			return record, nil
		}
		// A non-terminal record with no live entry is an orphan from a
		// previous process; it will never complete.
		return nil, ErrJobNotFound
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return e.record.Clone(), nil
}

// List returns all persisted job records, newest first.
func (q *Queue) List() ([]Record, error) {
	return q.store.List()
}

// Reap removes terminal entries whose jobs ended before cutoff.
func (q *Queue) Reap(cutoff time.Time) int {
	q.mu.Lock()
	var reaped []string
	for key, e := range q.entries {
		if e.record.State.Terminal() && e.record.EndedAt != nil && e.record.EndedAt.Before(cutoff) {
			delete(q.entries, key)
			reaped = append(reaped, key)
		}
	}
	q.mu.Unlock()

	for _, key := range reaped {
		if err := q.store.Delete(key); err != nil {
			q.logger.Warn("failed to delete reaped job", zap.String("job_id", key), zap.Error(err))
		}
	}
	if len(reaped) > 0 {
		q.logger.Info("reaped terminal jobs", zap.Int("count", len(reaped)))
	}
	return len(reaped)
}

// StartSweeper reaps expired terminal jobs on the given interval until ctx
// is done.
func (q *Queue) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				q.Reap(now.Add(-q.retention))
			}
		}
	}()
}

// Close stops accepting submissions and waits for in-flight jobs to finish
// before workers exit. Jobs are drained rather than cancelled: aborting a
// generation mid-run would leave a partial artifact tree on disk.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	close(q.tasks)
	q.wg.Wait()
	q.cancel()
	return nil
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	logger := q.logger.With(zap.Int("worker", id))

	for e := range q.tasks {
		q.runJob(logger, e)
	}
}

func (q *Queue) runJob(logger *zap.Logger, e *entry) {
	q.mu.Lock()
	now := time.Now().UTC()
	e.record.State = StateActive
	e.record.StartedAt = &now
	record := e.record.Clone()
	manifest := e.manifest
	q.mu.Unlock()

	if err := q.store.Write(record); err != nil {
		logger.Warn("failed to persist active job", zap.String("job_id", record.ID), zap.Error(err))
	}

	logger.Info("job started", zap.String("job_id", record.ID), zap.String("run_id", record.RunID))
	start := time.Now()
	runErr := q.runner(q.runCtx, record, manifest)

	q.mu.Lock()
	ended := time.Now().UTC()
	e.record.EndedAt = &ended
	if runErr != nil {
		e.record.State = StateFailed
		e.record.FailureReason = runErr.Error()
	} else {
		e.record.State = StateCompleted
	}
	record = e.record.Clone()
	q.mu.Unlock()

	if err := q.store.Write(record); err != nil {
		logger.Warn("failed to persist finished job", zap.String("job_id", record.ID), zap.Error(err))
	}
	close(e.done)

	if runErr != nil {
		logger.Error("job failed",
			zap.String("job_id", record.ID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(runErr))
		return
	}
	logger.Info("job completed",
		zap.String("job_id", record.ID),
		zap.Duration("duration", time.Since(start)))
}

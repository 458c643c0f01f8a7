package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamsplice/junction/internal/xerrors"
)

// RunFunc executes one job's body. It must call report whenever it
// has meaningful progress to surface; the scheduler owns coalescing
// those calls down to the store.
type RunFunc func(ctx context.Context, job *Job, report func(progress float64, stage string)) (json.RawMessage, error)

// Scheduler is the single-writer orchestrator described in design
// note "Coroutine-flavoured scheduler": Analyze work is serialized
// behind a dedicated single-worker queue (the exclusive lock of
// §4.8); Lrc work runs across a fixed pool of worker goroutines (the
// bounded semaphore of §4.8).
type Scheduler struct {
	store  *Store
	logger *slog.Logger

	runners map[Kind]RunFunc

	analyzeQueue chan string
	lrcQueue     chan string
	lrcWorkers   int

	mu         sync.Mutex
	inMemory   map[string]*Job
	finishedAt map[string]time.Time

	progressMu   sync.Mutex
	lastPersist  map[string]time.Time
	coalesceWait time.Duration

	retention     time.Duration
	reapInterval  time.Duration
	inMemoryGrace time.Duration
	sweepInterval time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewScheduler constructs a Scheduler. lrcConcurrency is the Lrc
// semaphore capacity (default 2 if <= 0).
func NewScheduler(store *Store, logger *slog.Logger, lrcConcurrency int) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if lrcConcurrency <= 0 {
		lrcConcurrency = 2
	}
	return &Scheduler{
		store:         store,
		logger:        logger,
		runners:       make(map[Kind]RunFunc),
		analyzeQueue:  make(chan string, 256),
		lrcQueue:      make(chan string, 256),
		lrcWorkers:    lrcConcurrency,
		inMemory:      make(map[string]*Job),
		finishedAt:    make(map[string]time.Time),
		lastPersist:   make(map[string]time.Time),
		coalesceWait:  DefaultProgressCoalesce,
		retention:     DefaultRetention,
		reapInterval:  time.Hour,
		inMemoryGrace: DefaultInMemoryGrace,
		sweepInterval: time.Minute,
	}
}

// RegisterRunner installs the RunFunc for a job kind. Must be called
// before Start.
func (s *Scheduler) RegisterRunner(kind Kind, fn RunFunc) {
	s.runners[kind] = fn
}

// Start performs §4.8 step 1 (reap, recover interrupted jobs, requeue
// them) and then launches the worker goroutines.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.store.Reap(s.retention); err != nil {
		return err
	}

	interrupted, err := s.store.Interrupted()
	if err != nil {
		return err
	}
	for _, j := range interrupted {
		j.Status = StatusQueued
		j.Progress = 0
		j.Stage = StageRequeued
		if err := s.store.UpdateStatus(j.ID, j.Status, j.Stage, nil, ""); err != nil {
			return err
		}
		if err := s.store.UpdateProgress(j.ID, j.Progress, j.Stage); err != nil {
			return err
		}
		s.mu.Lock()
		s.inMemory[j.ID] = j
		s.mu.Unlock()
		s.enqueue(j)
		s.logger.Info("requeued interrupted job", "job_id", j.ID, "kind", j.Kind)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runAnalyzeWorker(runCtx)

	for i := 0; i < s.lrcWorkers; i++ {
		s.wg.Add(1)
		go s.runLrcWorker(runCtx)
	}

	s.wg.Add(1)
	go s.runReaper(runCtx)

	s.wg.Add(1)
	go s.runInMemorySweep(runCtx)

	return nil
}

// Stop signals all workers to finish their current job and return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Submit validates nothing beyond requiring a registered runner for
// kind, creates the job row in Queued status, and enqueues it (§4.8
// step 2).
func (s *Scheduler) Submit(kind Kind, request json.RawMessage, contentHash string) (*Job, error) {
	if _, ok := s.runners[kind]; !ok {
		return nil, xerrors.NewInvalidParameters("kind", "no runner registered for job kind", kind)
	}

	now := time.Now()
	job := &Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		Status:      StatusQueued,
		Request:     request,
		ContentHash: contentHash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(job); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.inMemory[job.ID] = job
	s.mu.Unlock()

	s.enqueue(job)
	return job, nil
}

func (s *Scheduler) enqueue(j *Job) {
	switch j.Kind {
	case KindAnalyze:
		s.analyzeQueue <- j.ID
	case KindLrc:
		s.lrcQueue <- j.ID
	}
}

// Get returns a job from the in-memory map if present (answers
// immediate polls without a store round trip), falling back to the
// store otherwise (§4.8 step 6).
func (s *Scheduler) Get(id string) (*Job, bool) {
	s.mu.Lock()
	j, ok := s.inMemory[id]
	s.mu.Unlock()
	if ok {
		return j, true
	}
	stored, err := s.store.Get(id)
	if err != nil || stored == nil {
		return nil, false
	}
	return stored, true
}

// List returns up to limit durably stored jobs matching filter,
// newest first (§4.7). It reads straight through to the store rather
// than the in-memory map, since List is a bulk/reporting operation,
// not the single-job polling path Get optimizes.
func (s *Scheduler) List(filter ListFilter, limit int) ([]*Job, error) {
	return s.store.List(filter, limit)
}

func (s *Scheduler) runAnalyzeWorker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.analyzeQueue:
			s.runJob(ctx, id)
		}
	}
}

func (s *Scheduler) runLrcWorker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.lrcQueue:
			s.runJob(ctx, id)
		}
	}
}

// runJob implements §4.8 step 3: load, transition to Processing, run
// the body under a per-kind timeout, transition to Completed or
// Failed, always persisting durably before returning.
func (s *Scheduler) runJob(ctx context.Context, id string) {
	job, err := s.store.Get(id)
	if err != nil || job == nil {
		s.logger.Error("job vanished before processing", "job_id", id, "error", err)
		return
	}

	runner, ok := s.runners[job.Kind]
	if !ok {
		s.finish(job, StatusFailed, StageError, nil, "no runner registered")
		return
	}

	job.Status = StatusProcessing
	if err := s.store.UpdateStatus(job.ID, StatusProcessing, job.Stage, nil, ""); err != nil {
		s.logger.Error("persist processing transition", "job_id", job.ID, "error", err)
	}
	s.setInMemory(job)

	timeout := DefaultTimeout(job.Kind)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result json.RawMessage
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := runner(runCtx, job, func(progress float64, stage string) {
			s.reportProgress(job.ID, progress, stage)
		})
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			s.finish(job, StatusFailed, StageError, nil, o.err.Error())
			return
		}
		s.finish(job, StatusCompleted, StageComplete, o.result, "")
	case <-runCtx.Done():
		timeoutErr := &xerrors.TimeoutError{JobID: job.ID, Timeout: timeout.String()}
		s.finish(job, StatusFailed, StageError, nil, timeoutErr.Error())
	}
}

func (s *Scheduler) finish(job *Job, status Status, stage string, result json.RawMessage, errMsg string) {
	job.Status = status
	job.Stage = stage
	job.Result = result
	job.Error = errMsg
	if err := s.store.UpdateStatus(job.ID, status, stage, result, errMsg); err != nil {
		s.logger.Error("persist terminal transition", "job_id", job.ID, "error", err)
	}
	s.setInMemory(job)

	s.mu.Lock()
	s.finishedAt[job.ID] = time.Now()
	s.mu.Unlock()
}

// reportProgress implements §4.8 step 4: updates the in-memory view
// immediately, but only persists to the store once per
// coalesceWait window, except the scheduler always flushes the final
// transition via finish regardless of this gate.
func (s *Scheduler) reportProgress(id string, progress float64, stage string) {
	s.mu.Lock()
	if j, ok := s.inMemory[id]; ok {
		j.Progress = progress
		j.Stage = stage
	}
	s.mu.Unlock()

	s.progressMu.Lock()
	last, ok := s.lastPersist[id]
	shouldPersist := !ok || time.Since(last) >= s.coalesceWait
	if shouldPersist {
		s.lastPersist[id] = time.Now()
	}
	s.progressMu.Unlock()

	if shouldPersist {
		if err := s.store.UpdateProgress(id, progress, stage); err != nil {
			s.logger.Error("persist progress", "job_id", id, "error", err)
		}
	}
}

func (s *Scheduler) setInMemory(j *Job) {
	s.mu.Lock()
	s.inMemory[j.ID] = j
	s.mu.Unlock()
}

func (s *Scheduler) runReaper(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.store.Reap(s.retention); err != nil {
				s.logger.Error("reap", "error", err)
			} else if n > 0 {
				s.logger.Info("reaped terminal jobs", "count", n)
			}
		}
	}
}

// runInMemorySweep implements §4.8 step 6: a finished job answers
// immediate polls from the in-memory map for inMemoryGrace, then is
// evicted; subsequent Get calls fall back to the durable store.
func (s *Scheduler) runInMemorySweep(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *Scheduler) evictExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, finishedAt := range s.finishedAt {
		if now.Sub(finishedAt) >= s.inMemoryGrace {
			delete(s.inMemory, id)
			delete(s.finishedAt, id)
		}
	}
}

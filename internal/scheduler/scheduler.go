// Package scheduler drives batch processing: it promotes ready queue items to
// processing under a fixed concurrency cap, in strict FIFO order, and commits
// results back to the store. Cancellation is cooperative — in-flight calls
// run to completion but their results are discarded.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fin-diagnostics/backend/internal/models"
	"github.com/fin-diagnostics/backend/internal/processing"
	"github.com/fin-diagnostics/backend/internal/queue"
)

// Adapter is the boundary to the external diagnostics endpoint. One call per
// file; progress callbacks are optional and monotonic.
type Adapter interface {
	Process(ctx context.Context, item models.FileItem, onProgress func(int)) (*models.ProcessingResult, error)
}

// Scheduler owns the promotion loop. A single loop goroutine runs while there
// is work; workers signal it whenever a slot frees so the next ready item is
// promoted immediately rather than on a poll.
type Scheduler struct {
	store         *queue.Store
	adapter       Adapter
	maxConcurrent int
	fileTimeout   time.Duration

	mu        sync.Mutex
	cond      *sync.Cond
	running   bool
	cancelled bool
	restart   bool
	inflight  int
}

// New creates a scheduler. maxConcurrent must be at least 1; fileTimeout of
// zero disables the per-file ceiling.
func New(store *queue.Store, adapter Adapter, maxConcurrent int, fileTimeout time.Duration) *Scheduler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	s := &Scheduler{
		store:         store,
		adapter:       adapter,
		maxConcurrent: maxConcurrent,
		fileTimeout:   fileTimeout,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start launches the promotion loop, or wakes it when a run is already
// active so newly ready items (e.g. after a retry) are considered. A start
// arriving while a cancelled run drains is not lost: the loop resumes
// promotions once the drain completes.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		if s.cancelled {
			s.restart = true
		}
		s.cond.Broadcast()
		return
	}
	s.running = true
	s.cancelled = false
	s.restart = false
	go s.run()
}

// Cancel requests cooperative cancellation: no further promotions happen and
// every item still processing when its operation resolves is marked
// cancelled, never completed. No-op when idle.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancelled = true
	s.restart = false
	s.cond.Broadcast()
}

// IsRunning reports whether a processing run is active, including the drain
// after cancellation.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// run is the event-driven promotion loop. The store re-checks the processing
// count under its own lock inside PromoteNextReady, so the cap holds against
// the live snapshot no matter how completions interleave.
func (s *Scheduler) run() {
	s.mu.Lock()
	for {
		if !s.cancelled && s.inflight < s.maxConcurrent {
			if item, ok := s.store.PromoteNextReady(s.maxConcurrent); ok {
				s.inflight++
				go s.process(item)
				continue
			}
		}
		if s.inflight == 0 {
			// In-flight items drained under cancellation; a queued restart
			// resumes promotions within the same run.
			if s.restart {
				s.cancelled = false
				s.restart = false
				continue
			}
			break
		}
		s.cond.Wait()
	}
	s.running = false
	s.cancelled = false
	s.mu.Unlock()
}

// process runs one item through the adapter and commits the outcome. The
// cancel flag is re-read under the scheduler mutex immediately before the
// commit: a run that was cancelled while this call was in flight ends in
// cancelled even when the call itself succeeded.
func (s *Scheduler) process(item models.FileItem) {
	ctx := context.Background()
	if s.fileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fileTimeout)
		defer cancel()
	}

	result, err := s.adapter.Process(ctx, item, func(p int) {
		s.store.SetProgress(item.ID, p)
	})

	s.mu.Lock()
	switch {
	case s.cancelled:
		s.store.MarkCancelled(item.ID)
	case err != nil:
		s.store.MarkFailed(item.ID, toItemError(err))
	default:
		s.store.MarkCompleted(item.ID, result)
	}
	s.inflight--
	s.cond.Broadcast()
	s.mu.Unlock()
}

// toItemError maps adapter failures onto the stored per-item error.
func toItemError(err error) *models.ItemError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &models.ItemError{
			Message: "processing timed out",
			Details: err.Error(),
		}
	}
	var upErr *processing.UploadError
	if errors.As(err, &upErr) {
		return &models.ItemError{
			Message: upErr.Message,
			Details: upErr.Details,
		}
	}
	return &models.ItemError{
		Message: "processing failed",
		Details: err.Error(),
	}
}

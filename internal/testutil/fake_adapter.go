// fake_adapter.go - Controllable processing adapter for tests
package testutil

import (
	"context"
	"sync"

	"github.com/fin-diagnostics/backend/internal/models"
)

type outcome struct {
	result *models.ProcessingResult
	err    error
}

// FakeAdapter implements scheduler.Adapter with externally controlled
// completion so tests can pin down promotion order, concurrency and
// cancellation timing. Calls are keyed by file name.
type FakeAdapter struct {
	mu        sync.Mutex
	started   []string
	active    int
	maxActive int
	calls     map[string]chan outcome
	auto      bool
	autoOut   outcome
	startedCh chan string
}

// NewFakeAdapter creates an adapter whose calls block until released.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		calls:     make(map[string]chan outcome),
		startedCh: make(chan string, 64),
	}
}

// SetAuto makes every subsequent call complete immediately with the given
// outcome instead of blocking.
func (f *FakeAdapter) SetAuto(result *models.ProcessingResult, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auto = true
	f.autoOut = outcome{result: result, err: err}
}

// Process records the call, then blocks until Release (or auto-completes).
func (f *FakeAdapter) Process(ctx context.Context, item models.FileItem, onProgress func(int)) (*models.ProcessingResult, error) {
	f.mu.Lock()
	f.started = append(f.started, item.FileName)
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	ch := f.callChan(item.FileName)
	auto := f.auto
	out := f.autoOut
	f.mu.Unlock()

	f.startedCh <- item.FileName

	if !auto {
		select {
		case out = <-ch:
		case <-ctx.Done():
			out = outcome{err: ctx.Err()}
		}
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if out.err == nil && onProgress != nil {
		onProgress(100)
	}
	return out.result, out.err
}

// Release completes the in-flight (or future) call for fileName.
func (f *FakeAdapter) Release(fileName string, result *models.ProcessingResult, err error) {
	f.mu.Lock()
	ch := f.callChan(fileName)
	f.mu.Unlock()
	ch <- outcome{result: result, err: err}
}

// Started returns the file names in processing start order.
func (f *FakeAdapter) Started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

// StartedCh exposes the start signal channel; one receive per call.
func (f *FakeAdapter) StartedCh() <-chan string {
	return f.startedCh
}

// MaxActive returns the highest number of concurrent calls observed.
func (f *FakeAdapter) MaxActive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}

// callChan must be called with the lock held.
func (f *FakeAdapter) callChan(fileName string) chan outcome {
	ch, ok := f.calls[fileName]
	if !ok {
		ch = make(chan outcome, 1)
		f.calls[fileName] = ch
	}
	return ch
}

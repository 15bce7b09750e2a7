// Package batch exposes the public queue API consumed by the HTTP layer: the
// six operations (add, remove, process, cancel, retry, clear) plus the
// derived read model the views render from. No failure mode escapes as a
// panic; everything resolves to a state change or a returned message.
package batch

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/fin-diagnostics/backend/internal/models"
	"github.com/fin-diagnostics/backend/internal/queue"
	"github.com/fin-diagnostics/backend/internal/scheduler"
	"github.com/fin-diagnostics/backend/internal/validation"
)

// Limits are the configuration constants exposed for display.
type Limits struct {
	MaxFiles             int    `json:"maxFiles"`
	MaxFileSize          int64  `json:"maxFileSize"`
	MaxFileSizeFormatted string `json:"maxFileSizeFormatted"`
	MaxConcurrent        int    `json:"maxConcurrent"`
}

// AddResult is what AddFiles hands back: accepted item snapshots plus one
// rejection per refused file. Display timing of the rejection banner is the
// view's concern; the list is returned exactly once.
type AddResult struct {
	Accepted []models.FileItem      `json:"accepted"`
	Rejected []validation.Rejection `json:"rejected"`
}

// Controller wires the validator, store and scheduler behind one facade. One
// controller instance owns one queue; tests create independent instances.
type Controller struct {
	limits    Limits
	validator *validation.Validator
	store     *queue.Store
	sched     *scheduler.Scheduler
}

// Options configures a controller.
type Options struct {
	MaxFiles      int
	MaxFileSize   int64
	MaxConcurrent int
	FileTimeout   time.Duration
	Adapter       scheduler.Adapter
}

// NewController builds a queue controller with its own store and scheduler.
func NewController(opts Options) *Controller {
	store := queue.NewStore(opts.MaxFiles)
	return &Controller{
		limits: Limits{
			MaxFiles:             opts.MaxFiles,
			MaxFileSize:          opts.MaxFileSize,
			MaxFileSizeFormatted: humanize.Bytes(uint64(opts.MaxFileSize)),
			MaxConcurrent:        opts.MaxConcurrent,
		},
		validator: validation.NewValidator(opts.MaxFileSize),
		store:     store,
		sched:     scheduler.New(store, opts.Adapter, opts.MaxConcurrent, opts.FileTimeout),
	}
}

// AddFiles validates the candidates and appends the survivors in call order.
// Type and size rejections are per file; the capacity cut is applied
// atomically by the store so the queue never exceeds MaxFiles.
func (c *Controller) AddFiles(files []queue.IncomingFile, clientID string) AddResult {
	var result AddResult
	var admissible []queue.IncomingFile

	for _, f := range files {
		if rej := c.validator.Check(f.FileName, f.MimeType, int64(len(f.Data))); rej != nil {
			result.Rejected = append(result.Rejected, *rej)
			continue
		}
		f.ClientID = clientID
		admissible = append(admissible, f)
	}

	accepted, capacityRejected := c.store.Append(admissible)
	result.Accepted = accepted
	result.Rejected = append(result.Rejected, capacityRejected...)
	return result
}

// RemoveFile deletes one item; processing items must be cancelled first.
func (c *Controller) RemoveFile(id string) error {
	return c.store.Remove(id)
}

// ProcessAll starts (or wakes) the scheduler. A call with nothing ready is a
// no-op.
func (c *Controller) ProcessAll() {
	if c.store.CountStatus(models.StatusReady) == 0 {
		return
	}
	c.sched.Start()
}

// CancelProcessing requests cooperative cancellation of the active run.
func (c *Controller) CancelProcessing() {
	c.sched.Cancel()
}

// RetryFailed resets every failed item to ready, in original order, and
// re-enters the promotion loop. A call with no failed items changes nothing.
func (c *Controller) RetryFailed() {
	if len(c.store.ResetFailed()) == 0 {
		return
	}
	c.sched.Start()
}

// ClearQueue removes all items; it fails while a run is active.
func (c *Controller) ClearQueue() error {
	if c.sched.IsRunning() {
		return queue.ErrQueueProcessing
	}
	return c.store.Clear()
}

// Files returns the ordered queue snapshot.
func (c *Controller) Files() []models.FileItem {
	return c.store.Items()
}

// Stats returns the derived queue statistics.
func (c *Controller) Stats() models.QueueStats {
	return c.store.Stats()
}

// OverallProgress returns the queue-wide weighted progress, 0-100.
func (c *Controller) OverallProgress() int {
	return models.OverallProgress(c.store.Items())
}

// BatchStatus returns the aggregate status the views render.
func (c *Controller) BatchStatus() models.BatchStatus {
	items := c.store.Items()
	if c.sched.IsRunning() {
		// The scheduler may be between promotions with nothing marked
		// processing yet; the aggregate still reads as an active run.
		if st := models.ComputeBatchStatus(items); st == models.BatchIdle || st == models.BatchProcessing {
			return models.BatchProcessing
		}
	}
	return models.ComputeBatchStatus(items)
}

// IsProcessing reports whether a run is active, including pending promotions.
func (c *Controller) IsProcessing() bool {
	return c.sched.IsRunning()
}

// CanProcess reports whether ProcessAll would do anything.
func (c *Controller) CanProcess() bool {
	return !c.sched.IsRunning() && c.store.CountStatus(models.StatusReady) > 0
}

// HasFailedFiles reports whether a retry action should be offered.
func (c *Controller) HasFailedFiles() bool {
	return c.store.CountStatus(models.StatusError) > 0
}

// HasFiles reports whether the queue holds any items.
func (c *Controller) HasFiles() bool {
	return len(c.store.Items()) > 0
}

// StatusLabel maps an item status to its display label.
func (c *Controller) StatusLabel(s models.ItemStatus) string {
	return models.StatusLabel(s)
}

// Limits returns the display constants (MAX_FILES, MAX_FILE_SIZE).
func (c *Controller) Limits() Limits {
	return c.limits
}

// Subscribe registers a consumer for queue change events. The release func
// must be called when the consumer goes away.
func (c *Controller) Subscribe() (<-chan queue.Event, func()) {
	return c.store.Notifier().Subscribe()
}

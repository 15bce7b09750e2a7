// Package queue owns the ordered in-memory collection of batch upload items.
// The store is the single source of truth: every mutation flows through it,
// every reader gets a copied snapshot. Nothing here is ever written to disk
// (zero-storage).
package queue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fin-diagnostics/backend/internal/models"
	"github.com/fin-diagnostics/backend/internal/validation"
)

var (
	// ErrNotFound is returned when no item has the given ID.
	ErrNotFound = errors.New("queue item not found")
	// ErrItemProcessing is returned when removing an item mid-processing.
	ErrItemProcessing = errors.New("item is processing; cancel before removing")
	// ErrQueueProcessing is returned when clearing the queue mid-run.
	ErrQueueProcessing = errors.New("queue is processing; cancel before clearing")
)

// IncomingFile is one candidate file handed to Append. The bytes live in
// memory on the item until it is removed or the queue is cleared.
type IncomingFile struct {
	FileName string
	MimeType string
	ClientID string
	Data     []byte
}

// Store holds the ordered item list and enforces the per-item state machine.
type Store struct {
	mu       sync.RWMutex
	items    []*models.FileItem
	maxFiles int
	notifier *Notifier
}

// NewStore creates an empty store capped at maxFiles items.
func NewStore(maxFiles int) *Store {
	return &Store{
		maxFiles: maxFiles,
		notifier: NewNotifier(),
	}
}

// Notifier returns the store's event publisher.
func (s *Store) Notifier() *Notifier {
	return s.notifier
}

// MaxFiles returns the configured queue capacity.
func (s *Store) MaxFiles() int {
	return s.maxFiles
}

// Append admits candidate files in call order. The slot check is atomic with
// insertion so concurrent Append calls can never push the queue past its
// capacity: once the remaining slots are consumed, the rest of the batch is
// rejected with a capacity reason.
//
// Admitted items enter pending, pass through validating, and land in ready;
// the only deep check today is empty-file detection, which parks the item in
// error instead.
func (s *Store) Append(files []IncomingFile) (accepted []models.FileItem, capacityRejected []validation.Rejection) {
	s.mu.Lock()

	slots := s.maxFiles - len(s.items)
	if slots < 0 {
		slots = 0
	}

	admitted := files
	var overflow []IncomingFile
	if len(files) > slots {
		admitted = files[:slots]
		overflow = files[slots:]
	}

	for _, f := range admitted {
		item := &models.FileItem{
			ID:       uuid.New().String(),
			FileName: f.FileName,
			FileSize: int64(len(f.Data)),
			MimeType: f.MimeType,
			ClientID: f.ClientID,
			Status:   models.StatusPending,
			AddedAt:  time.Now(),
			Data:     f.Data,
		}
		s.items = append(s.items, item)

		// Deep validation beyond the synchronous admission checks.
		item.Status = models.StatusValidating
		if len(f.Data) == 0 {
			item.Status = models.StatusError
			item.Error = &models.ItemError{Message: "file is empty"}
		} else {
			item.Status = models.StatusReady
		}
		accepted = append(accepted, item.Snapshot())
	}

	for _, f := range overflow {
		capacityRejected = append(capacityRejected, validation.CapacityRejection(f.FileName, len(overflow)))
	}

	s.mu.Unlock()

	if len(accepted) > 0 {
		s.publish(EventAdded, nil)
	}
	return accepted, capacityRejected
}

// Remove deletes an item in any state except processing. Removing frees a
// queue slot immediately.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	if s.items[idx].Status == models.StatusProcessing {
		s.mu.Unlock()
		return ErrItemProcessing
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.mu.Unlock()

	s.publish(EventRemoved, nil)
	return nil
}

// Clear removes every item. It refuses while anything is processing; the
// caller must cancel first.
func (s *Store) Clear() error {
	s.mu.Lock()
	for _, it := range s.items {
		if it.Status == models.StatusProcessing {
			s.mu.Unlock()
			return ErrQueueProcessing
		}
	}
	s.items = nil
	s.mu.Unlock()

	s.publish(EventCleared, nil)
	return nil
}

// PromoteNextReady atomically promotes the first ready item to processing,
// but only if fewer than maxProcessing items are currently processing. The
// cap is checked against the live list under the lock, immediately before the
// promotion, so it can never be transiently exceeded. Returns the promoted
// item (including its bytes) for the worker.
func (s *Store) PromoteNextReady(maxProcessing int) (models.FileItem, bool) {
	s.mu.Lock()

	processing := 0
	for _, it := range s.items {
		if it.Status == models.StatusProcessing {
			processing++
		}
	}
	if processing >= maxProcessing {
		s.mu.Unlock()
		return models.FileItem{}, false
	}

	for _, it := range s.items {
		if it.Status != models.StatusReady {
			continue
		}
		it.Status = models.StatusProcessing
		it.Progress = 0
		cp := it.Snapshot()
		cp.Data = it.Data
		s.mu.Unlock()

		s.publish(EventStatus, &cp)
		return cp, true
	}

	s.mu.Unlock()
	return models.FileItem{}, false
}

// SetProgress records progress for a processing item. Progress is clamped to
// 0-100 and never moves backwards.
func (s *Store) SetProgress(id string, progress int) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 || s.items[idx].Status != models.StatusProcessing {
		s.mu.Unlock()
		return
	}
	if progress > 100 {
		progress = 100
	}
	if progress <= s.items[idx].Progress {
		s.mu.Unlock()
		return
	}
	s.items[idx].Progress = progress
	cp := s.items[idx].Snapshot()
	s.mu.Unlock()

	s.publish(EventProgress, &cp)
}

// MarkCompleted commits a successful result for a processing item.
func (s *Store) MarkCompleted(id string, result *models.ProcessingResult) error {
	return s.transition(id, models.StatusCompleted, func(it *models.FileItem) {
		it.Progress = 100
		it.Result = result
		it.Error = nil
	})
}

// MarkFailed records a processing failure on the item. The failure never
// propagates further; the item simply carries its error.
func (s *Store) MarkFailed(id string, itemErr *models.ItemError) error {
	return s.transition(id, models.StatusError, func(it *models.FileItem) {
		it.Result = nil
		it.Error = itemErr
	})
}

// MarkCancelled moves a processing item to cancelled. Any late result from
// the underlying operation has already been discarded by the caller.
func (s *Store) MarkCancelled(id string) error {
	return s.transition(id, models.StatusCancelled, func(it *models.FileItem) {
		it.Result = nil
		it.Error = nil
	})
}

// ResetFailed returns every error item to ready, preserving their original
// relative order, and clears the prior error. Returns the IDs that were
// reset.
func (s *Store) ResetFailed() []string {
	s.mu.Lock()
	var ids []string
	for _, it := range s.items {
		if it.Status != models.StatusError {
			continue
		}
		it.Status = models.StatusReady
		it.Progress = 0
		it.Error = nil
		ids = append(ids, it.ID)
	}
	s.mu.Unlock()

	if len(ids) > 0 {
		s.publish(EventStatus, nil)
	}
	return ids
}

// Items returns an ordered snapshot of the queue. Mutating the result has no
// effect on the store.
func (s *Store) Items() []models.FileItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FileItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it.Snapshot())
	}
	return out
}

// Get returns a snapshot of one item.
func (s *Store) Get(id string) (models.FileItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return models.FileItem{}, false
	}
	return s.items[idx].Snapshot(), true
}

// Stats derives the queue statistics from the current item list.
func (s *Store) Stats() models.QueueStats {
	return models.ComputeStats(s.Items(), s.maxFiles)
}

// CountStatus returns how many items currently hold the given status.
func (s *Store) CountStatus(status models.ItemStatus) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.items {
		if it.Status == status {
			n++
		}
	}
	return n
}

// transition applies a guarded status change plus a mutation under the lock.
func (s *Store) transition(id string, to models.ItemStatus, apply func(*models.FileItem)) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	it := s.items[idx]
	if !validTransition(it.Status, to) {
		from := it.Status
		s.mu.Unlock()
		return fmt.Errorf("invalid transition: %s -> %s", from, to)
	}
	it.Status = to
	apply(it)
	cp := it.Snapshot()
	s.mu.Unlock()

	s.publish(EventStatus, &cp)
	return nil
}

// indexOf must be called with the lock held.
func (s *Store) indexOf(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) publish(typ EventType, item *models.FileItem) {
	items := s.Items()
	s.notifier.Publish(Event{
		Type:            typ,
		Item:            item,
		Stats:           models.ComputeStats(items, s.maxFiles),
		BatchStatus:     models.ComputeBatchStatus(items),
		OverallProgress: models.OverallProgress(items),
	})
}

// validTransition enforces the allowed state machine edges. Only one forward
// path exists from each state; error and cancelled are the only exits from
// processing besides completed.
func validTransition(from, to models.ItemStatus) bool {
	switch from {
	case models.StatusPending:
		return to == models.StatusValidating
	case models.StatusValidating:
		return to == models.StatusReady || to == models.StatusError
	case models.StatusReady:
		return to == models.StatusProcessing
	case models.StatusProcessing:
		return to == models.StatusCompleted || to == models.StatusError || to == models.StatusCancelled
	case models.StatusError:
		return to == models.StatusReady
	default:
		return false
	}
}

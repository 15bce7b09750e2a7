package models

import "github.com/dustin/go-humanize"

// QueueStats is fully derived from the item list; it is never mutated
// independently of the items it summarizes.
type QueueStats struct {
	TotalFiles      int    `json:"totalFiles" msgpack:"totalFiles"`
	CompletedFiles  int    `json:"completedFiles" msgpack:"completedFiles"`
	ProcessingFiles int    `json:"processingFiles" msgpack:"processingFiles"`
	FailedFiles     int    `json:"failedFiles" msgpack:"failedFiles"`
	ReadyFiles      int    `json:"readyFiles" msgpack:"readyFiles"`
	CancelledFiles  int    `json:"cancelledFiles" msgpack:"cancelledFiles"`
	RemainingSlots  int    `json:"remainingSlots" msgpack:"remainingSlots"`
	CanAddMore      bool   `json:"canAddMore" msgpack:"canAddMore"`
	TotalSizeBytes  int64  `json:"totalSizeBytes" msgpack:"totalSizeBytes"`
	TotalSize       string `json:"totalSizeFormatted" msgpack:"totalSizeFormatted"`
}

// ComputeStats derives queue statistics from an item list and the configured
// capacity.
func ComputeStats(items []FileItem, maxFiles int) QueueStats {
	s := QueueStats{TotalFiles: len(items)}
	for i := range items {
		s.TotalSizeBytes += items[i].FileSize
		switch items[i].Status {
		case StatusCompleted:
			s.CompletedFiles++
		case StatusProcessing:
			s.ProcessingFiles++
		case StatusError:
			s.FailedFiles++
		case StatusReady:
			s.ReadyFiles++
		case StatusCancelled:
			s.CancelledFiles++
		}
	}
	s.RemainingSlots = maxFiles - s.TotalFiles
	if s.RemainingSlots < 0 {
		s.RemainingSlots = 0
	}
	s.CanAddMore = s.RemainingSlots > 0
	s.TotalSize = humanize.Bytes(uint64(s.TotalSizeBytes))
	return s
}

// BatchStatus is the aggregate state the views render: a roll-up of every
// item's status.
type BatchStatus string

const (
	BatchIdle       BatchStatus = "idle"
	BatchValidating BatchStatus = "validating"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
	BatchPartial    BatchStatus = "partial"
)

// ComputeBatchStatus rolls the per-item statuses up into one aggregate.
// processing wins over everything; validating over the idle states; once all
// items are terminal the result is completed, failed, or partial depending on
// the mix.
func ComputeBatchStatus(items []FileItem) BatchStatus {
	if len(items) == 0 {
		return BatchIdle
	}

	var validating, terminal, completed, failed int
	for i := range items {
		switch items[i].Status {
		case StatusProcessing:
			return BatchProcessing
		case StatusValidating:
			validating++
		case StatusCompleted:
			terminal++
			completed++
		case StatusError:
			terminal++
			failed++
		case StatusCancelled:
			terminal++
		}
	}

	if validating > 0 {
		return BatchValidating
	}
	if terminal < len(items) {
		return BatchIdle
	}
	switch {
	case completed == len(items):
		return BatchCompleted
	case failed == len(items):
		return BatchFailed
	default:
		return BatchPartial
	}
}

// OverallProgress is the weighted average across the queue: completed items
// contribute 100, error/cancelled items their last known progress, everything
// else its current progress. Returns 0 for an empty queue.
func OverallProgress(items []FileItem) int {
	if len(items) == 0 {
		return 0
	}
	sum := 0
	for i := range items {
		if items[i].Status == StatusCompleted {
			sum += 100
		} else {
			sum += items[i].Progress
		}
	}
	return sum / len(items)
}

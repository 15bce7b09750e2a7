package models

import "time"

// ItemStatus tracks a queued file through its lifecycle.
type ItemStatus string

const (
	StatusPending    ItemStatus = "pending"
	StatusValidating ItemStatus = "validating"
	StatusReady      ItemStatus = "ready"
	StatusProcessing ItemStatus = "processing"
	StatusCompleted  ItemStatus = "completed"
	StatusError      ItemStatus = "error"
	StatusCancelled  ItemStatus = "cancelled"
)

// StatusLabel maps a status to its display label.
func StatusLabel(s ItemStatus) string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusValidating:
		return "Validating"
	case StatusReady:
		return "Ready"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusError:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// ProcessingResult holds the summary the diagnostics endpoint returns for one
// file. The queue stores and exposes these fields without interpreting them.
type ProcessingResult struct {
	RowCount     int                    `json:"rowCount,omitempty" msgpack:"rowCount,omitempty"`
	AnomalyCount int                    `json:"anomalyCount,omitempty" msgpack:"anomalyCount,omitempty"`
	Extra        map[string]interface{} `json:"extra,omitempty" msgpack:"extra,omitempty"`
}

// ItemError describes a per-file processing or validation failure.
type ItemError struct {
	Message string `json:"message" msgpack:"message"`
	Details string `json:"details,omitempty" msgpack:"details,omitempty"`
}

// FileItem represents one file admitted into the batch queue.
// Data holds the raw bytes for the lifetime of the item and is never
// serialized or written to disk (zero-storage).
type FileItem struct {
	ID       string     `json:"id" msgpack:"id"`
	FileName string     `json:"fileName" msgpack:"fileName"`
	FileSize int64      `json:"fileSize" msgpack:"fileSize"`
	MimeType string     `json:"mimeType" msgpack:"mimeType"`
	ClientID string     `json:"clientId,omitempty" msgpack:"clientId,omitempty"`
	Status   ItemStatus `json:"status" msgpack:"status"`
	Progress int        `json:"progress" msgpack:"progress"` // 0-100, meaningful while processing
	AddedAt  time.Time  `json:"addedAt" msgpack:"addedAt"`

	Result *ProcessingResult `json:"result,omitempty" msgpack:"result,omitempty"`
	Error  *ItemError        `json:"error,omitempty" msgpack:"error,omitempty"`

	Data []byte `json:"-" msgpack:"-"`
}

// Snapshot returns a copy of the item safe to hand to readers.
// The raw bytes are not copied; snapshots are metadata only.
func (it *FileItem) Snapshot() FileItem {
	cp := *it
	cp.Data = nil
	if it.Result != nil {
		r := *it.Result
		cp.Result = &r
	}
	if it.Error != nil {
		e := *it.Error
		cp.Error = &e
	}
	return cp
}

// Terminal reports whether the item can no longer change on its own.
func (it *FileItem) Terminal() bool {
	switch it.Status {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

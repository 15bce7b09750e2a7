package models

import "testing"

func itemWith(status ItemStatus, progress int) FileItem {
	return FileItem{Status: status, Progress: progress, FileSize: 100}
}

func TestComputeStats(t *testing.T) {
	items := []FileItem{
		itemWith(StatusReady, 0),
		itemWith(StatusProcessing, 40),
		itemWith(StatusCompleted, 100),
		itemWith(StatusError, 20),
		itemWith(StatusCancelled, 60),
	}

	s := ComputeStats(items, 10)
	if s.TotalFiles != 5 {
		t.Errorf("totalFiles: got %d", s.TotalFiles)
	}
	if s.ReadyFiles != 1 || s.ProcessingFiles != 1 || s.CompletedFiles != 1 || s.FailedFiles != 1 || s.CancelledFiles != 1 {
		t.Errorf("per-status counts wrong: %+v", s)
	}
	if s.RemainingSlots != 5 || !s.CanAddMore {
		t.Errorf("slots wrong: %+v", s)
	}
	if s.TotalSizeBytes != 500 {
		t.Errorf("totalSizeBytes: got %d", s.TotalSizeBytes)
	}
	if s.TotalSize == "" {
		t.Error("expected formatted total size")
	}
}

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(nil, 10)
	if s.TotalFiles != 0 || s.RemainingSlots != 10 || !s.CanAddMore {
		t.Errorf("unexpected stats for empty queue: %+v", s)
	}
}

func TestComputeBatchStatus(t *testing.T) {
	tests := []struct {
		name  string
		items []FileItem
		want  BatchStatus
	}{
		{"empty queue", nil, BatchIdle},
		{"only ready", []FileItem{itemWith(StatusReady, 0)}, BatchIdle},
		{"processing wins", []FileItem{itemWith(StatusCompleted, 100), itemWith(StatusProcessing, 10)}, BatchProcessing},
		{"validating", []FileItem{itemWith(StatusValidating, 0), itemWith(StatusReady, 0)}, BatchValidating},
		{"all completed", []FileItem{itemWith(StatusCompleted, 100), itemWith(StatusCompleted, 100)}, BatchCompleted},
		{"all failed", []FileItem{itemWith(StatusError, 0)}, BatchFailed},
		{"mixed terminal", []FileItem{itemWith(StatusCompleted, 100), itemWith(StatusError, 0)}, BatchPartial},
		{"terminal plus pending work", []FileItem{itemWith(StatusCompleted, 100), itemWith(StatusReady, 0)}, BatchIdle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeBatchStatus(tt.items); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOverallProgress(t *testing.T) {
	if got := OverallProgress(nil); got != 0 {
		t.Errorf("empty queue: got %d", got)
	}

	items := []FileItem{
		itemWith(StatusCompleted, 100), // counts as 100
		itemWith(StatusProcessing, 50),
		itemWith(StatusError, 30),     // keeps last known progress
		itemWith(StatusCancelled, 20), // keeps last known progress
		itemWith(StatusReady, 0),
	}
	if got := OverallProgress(items); got != 40 {
		t.Errorf("got %d, want 40", got)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := map[ItemStatus]string{
		StatusPending:    "Pending",
		StatusValidating: "Validating",
		StatusReady:      "Ready",
		StatusProcessing: "Processing",
		StatusCompleted:  "Completed",
		StatusError:      "Failed",
		StatusCancelled:  "Cancelled",
	}
	for status, want := range tests {
		if got := StatusLabel(status); got != want {
			t.Errorf("%s: got %q, want %q", status, got, want)
		}
	}
}

func TestFileItem_Snapshot(t *testing.T) {
	it := &FileItem{
		ID:     "x",
		Status: StatusCompleted,
		Result: &ProcessingResult{RowCount: 5},
		Data:   []byte("bytes"),
	}
	cp := it.Snapshot()
	if cp.Data != nil {
		t.Error("snapshot must not carry raw bytes")
	}
	cp.Result.RowCount = 99
	if it.Result.RowCount != 5 {
		t.Error("snapshot result must be a copy")
	}
}

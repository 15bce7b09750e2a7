package batch

import (
	"testing"
	"time"

	"github.com/fin-diagnostics/backend/internal/models"
	"github.com/fin-diagnostics/backend/internal/queue"
	"github.com/fin-diagnostics/backend/internal/testutil"
	"github.com/fin-diagnostics/backend/internal/validation"
)

const testMaxFileSize = 1024 * 1024

func newTestController(maxFiles, maxConcurrent int, adapter *testutil.FakeAdapter) *Controller {
	return NewController(Options{
		MaxFiles:      maxFiles,
		MaxFileSize:   testMaxFileSize,
		MaxConcurrent: maxConcurrent,
		FileTimeout:   5 * time.Second,
		Adapter:       adapter,
	})
}

func csv(name string) queue.IncomingFile {
	return queue.IncomingFile{FileName: name, MimeType: "text/csv", Data: []byte("h\n1\n")}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestController_AddFilesOverCapacity(t *testing.T) {
	c := newTestController(2, 1, testutil.NewFakeAdapter())

	result := c.AddFiles([]queue.IncomingFile{csv("a.csv"), csv("b.csv"), csv("c.csv")}, "")

	if len(result.Accepted) != 2 {
		t.Fatalf("expected 2 accepted, got %d", len(result.Accepted))
	}
	if result.Accepted[0].FileName != "a.csv" || result.Accepted[1].FileName != "b.csv" {
		t.Error("expected acceptance in call order")
	}
	for _, it := range result.Accepted {
		if it.Status != models.StatusReady {
			t.Errorf("%s: expected ready, got %s", it.FileName, it.Status)
		}
	}
	if len(result.Rejected) != 1 || result.Rejected[0].FileName != "c.csv" || result.Rejected[0].Reason != validation.ReasonCapacity {
		t.Fatalf("expected capacity rejection for c.csv, got %+v", result.Rejected)
	}

	stats := c.Stats()
	if stats.TotalFiles != 2 || stats.CanAddMore {
		t.Errorf("expected full queue, got %+v", stats)
	}
}

func TestController_AddFilesRejectsDisallowedType(t *testing.T) {
	c := newTestController(5, 1, testutil.NewFakeAdapter())

	result := c.AddFiles([]queue.IncomingFile{
		{FileName: "d.pdf", MimeType: "application/pdf", Data: []byte("%PDF")},
	}, "")

	if len(result.Accepted) != 0 {
		t.Fatalf("expected no accepted files, got %d", len(result.Accepted))
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Reason != validation.ReasonType {
		t.Fatalf("expected type rejection, got %+v", result.Rejected)
	}
	if c.Stats().TotalFiles != 0 {
		t.Error("queue must be unchanged after a full rejection")
	}
	if c.HasFiles() {
		t.Error("expected HasFiles false")
	}
}

func TestController_AddFilesCarriesClientID(t *testing.T) {
	c := newTestController(5, 1, testutil.NewFakeAdapter())

	result := c.AddFiles([]queue.IncomingFile{csv("a.csv")}, "client-77")
	if result.Accepted[0].ClientID != "client-77" {
		t.Errorf("expected clientId carried, got %q", result.Accepted[0].ClientID)
	}
}

func TestController_ProcessAllSequential(t *testing.T) {
	adapter := testutil.NewFakeAdapter()
	c := newTestController(5, 1, adapter)

	result := c.AddFiles([]queue.IncomingFile{csv("one.csv"), csv("two.csv")}, "")
	ids := []string{result.Accepted[0].ID, result.Accepted[1].ID}

	if !c.CanProcess() {
		t.Fatal("expected CanProcess with ready items")
	}
	c.ProcessAll()

	<-adapter.StartedCh()
	if !c.IsProcessing() {
		t.Error("expected IsProcessing during run")
	}
	if c.CanProcess() {
		t.Error("CanProcess must be false while running")
	}
	if st := c.BatchStatus(); st != models.BatchProcessing {
		t.Errorf("expected processing aggregate, got %s", st)
	}

	adapter.Release("one.csv", &models.ProcessingResult{RowCount: 10, AnomalyCount: 2}, nil)
	// two.csv must begin without further calls.
	<-adapter.StartedCh()
	adapter.Release("two.csv", &models.ProcessingResult{RowCount: 5}, nil)

	waitFor(t, "run to finish", func() bool { return !c.IsProcessing() })

	files := c.Files()
	if files[0].ID != ids[0] || files[0].Status != models.StatusCompleted {
		t.Errorf("one.csv: %+v", files[0])
	}
	if files[0].Result == nil || files[0].Result.RowCount != 10 || files[0].Result.AnomalyCount != 2 {
		t.Errorf("one.csv result not stored: %+v", files[0].Result)
	}
	if c.OverallProgress() != 100 {
		t.Errorf("expected overall progress 100, got %d", c.OverallProgress())
	}
	if st := c.BatchStatus(); st != models.BatchCompleted {
		t.Errorf("expected completed aggregate, got %s", st)
	}
}

func TestController_ProcessAllWithNothingReady(t *testing.T) {
	c := newTestController(5, 1, testutil.NewFakeAdapter())

	c.ProcessAll()
	if c.IsProcessing() {
		t.Error("expected no run with an empty queue")
	}
}

func TestController_RetryFailedIsIdempotent(t *testing.T) {
	c := newTestController(5, 1, testutil.NewFakeAdapter())
	c.AddFiles([]queue.IncomingFile{csv("a.csv")}, "")

	if c.HasFailedFiles() {
		t.Fatal("expected no failed files")
	}
	before := c.Files()

	c.RetryFailed()

	if c.IsProcessing() {
		t.Error("retry with no failures must not start a run")
	}
	after := c.Files()
	if len(before) != len(after) || before[0].Status != after[0].Status {
		t.Error("retry with no failures must not change state")
	}
}

func TestController_ClearQueueBlockedWhileProcessing(t *testing.T) {
	adapter := testutil.NewFakeAdapter()
	c := newTestController(5, 1, adapter)
	c.AddFiles([]queue.IncomingFile{csv("a.csv")}, "")
	c.ProcessAll()
	<-adapter.StartedCh()

	if err := c.ClearQueue(); err != queue.ErrQueueProcessing {
		t.Errorf("expected ErrQueueProcessing, got %v", err)
	}

	c.CancelProcessing()
	adapter.Release("a.csv", nil, nil)
	waitFor(t, "run to drain", func() bool { return !c.IsProcessing() })

	if err := c.ClearQueue(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.HasFiles() {
		t.Error("expected empty queue after clear")
	}
}

func TestController_RemoveFreesSlot(t *testing.T) {
	c := newTestController(2, 1, testutil.NewFakeAdapter())
	result := c.AddFiles([]queue.IncomingFile{csv("a.csv"), csv("b.csv")}, "")

	if c.Stats().CanAddMore {
		t.Fatal("queue should be full")
	}
	if err := c.RemoveFile(result.Accepted[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again := c.AddFiles([]queue.IncomingFile{csv("c.csv")}, "")
	if len(again.Accepted) != 1 {
		t.Fatalf("expected freed slot to admit c.csv, got %+v", again)
	}
}

func TestController_Limits(t *testing.T) {
	c := newTestController(10, 3, testutil.NewFakeAdapter())
	limits := c.Limits()
	if limits.MaxFiles != 10 || limits.MaxFileSize != testMaxFileSize || limits.MaxConcurrent != 3 {
		t.Errorf("unexpected limits: %+v", limits)
	}
	if limits.MaxFileSizeFormatted == "" {
		t.Error("expected humanized size limit")
	}
}

func TestController_SubscribeReceivesEvents(t *testing.T) {
	c := newTestController(5, 1, testutil.NewFakeAdapter())
	events, release := c.Subscribe()
	defer release()

	c.AddFiles([]queue.IncomingFile{csv("a.csv")}, "")

	select {
	case ev := <-events:
		if ev.Stats.TotalFiles != 1 {
			t.Errorf("expected stats on event, got %+v", ev.Stats)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an event after AddFiles")
	}
}

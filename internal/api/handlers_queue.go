// handlers_queue.go - Batch upload queue operation handlers
package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/fin-diagnostics/backend/internal/batch"
	"github.com/fin-diagnostics/backend/internal/models"
	"github.com/fin-diagnostics/backend/internal/queue"
)

// QueueHandlerImpl implements the QueueHandler interface.
type QueueHandlerImpl struct {
	controller *batch.Controller
}

// NewQueueHandler creates a new queue handler instance.
func NewQueueHandler(controller *batch.Controller) QueueHandler {
	return &QueueHandlerImpl{controller: controller}
}

// queueSnapshot is the read model served to the views: the ordered file list
// plus every derived aggregate, computed in one place.
type queueSnapshot struct {
	Files           []models.FileItem  `json:"files" msgpack:"files"`
	Stats           models.QueueStats  `json:"stats" msgpack:"stats"`
	Status          models.BatchStatus `json:"status" msgpack:"status"`
	OverallProgress int                `json:"overallProgress" msgpack:"overallProgress"`
	IsProcessing    bool               `json:"isProcessing" msgpack:"isProcessing"`
	CanProcess      bool               `json:"canProcess" msgpack:"canProcess"`
	HasFailedFiles  bool               `json:"hasFailedFiles" msgpack:"hasFailedFiles"`
	HasFiles        bool               `json:"hasFiles" msgpack:"hasFiles"`
}

func (h *QueueHandlerImpl) snapshot() queueSnapshot {
	files := h.controller.Files()
	if files == nil {
		files = []models.FileItem{}
	}
	return queueSnapshot{
		Files:           files,
		Stats:           h.controller.Stats(),
		Status:          h.controller.BatchStatus(),
		OverallProgress: h.controller.OverallProgress(),
		IsProcessing:    h.controller.IsProcessing(),
		CanProcess:      h.controller.CanProcess(),
		HasFailedFiles:  h.controller.HasFailedFiles(),
		HasFiles:        h.controller.HasFiles(),
	}
}

// HandleAddFiles accepts a multipart batch under the "files" field, runs
// admission, and returns the accepted items plus one rejection per refused
// file. Rejections are data, not an HTTP error: a partially accepted batch is
// still a 200.
func (h *QueueHandlerImpl) HandleAddFiles(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("expected multipart form data", err)
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return NewValidationError("files")
	}
	clientID := c.FormValue("clientId")

	incoming := make([]queue.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			return NewInternalError("failed to open uploaded file", err)
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return NewInternalError("failed to read uploaded file", err)
		}
		incoming = append(incoming, queue.IncomingFile{
			FileName: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	result := h.controller.AddFiles(incoming, clientID)
	return c.JSON(http.StatusOK, result)
}

// HandleRemoveFile removes one item; processing items are a conflict.
func (h *QueueHandlerImpl) HandleRemoveFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	if err := h.controller.RemoveFile(id); err != nil {
		return fromQueueError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleProcessAll starts the processing run.
func (h *QueueHandlerImpl) HandleProcessAll(c echo.Context) error {
	h.controller.ProcessAll()
	return c.JSON(http.StatusAccepted, h.snapshot())
}

// HandleCancelProcessing requests cooperative cancellation.
func (h *QueueHandlerImpl) HandleCancelProcessing(c echo.Context) error {
	h.controller.CancelProcessing()
	return c.JSON(http.StatusAccepted, h.snapshot())
}

// HandleRetryFailed re-queues every failed item.
func (h *QueueHandlerImpl) HandleRetryFailed(c echo.Context) error {
	h.controller.RetryFailed()
	return c.JSON(http.StatusAccepted, h.snapshot())
}

// HandleClearQueue removes all items; refused while processing.
func (h *QueueHandlerImpl) HandleClearQueue(c echo.Context) error {
	if err := h.controller.ClearQueue(); err != nil {
		return fromQueueError(err, "")
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleGetQueue returns the JSON snapshot of the queue.
func (h *QueueHandlerImpl) HandleGetQueue(c echo.Context) error {
	return c.JSON(http.StatusOK, h.snapshot())
}

// HandleExportQueue returns the snapshot in MessagePack format for clients
// polling at high frequency.
func (h *QueueHandlerImpl) HandleExportQueue(c echo.Context) error {
	data, err := msgpack.Marshal(h.snapshot())
	if err != nil {
		return NewInternalError("failed to encode snapshot", err)
	}
	return c.Blob(http.StatusOK, "application/x-msgpack", data)
}

// HandleGetLimits returns the display constants (MAX_FILES, MAX_FILE_SIZE).
func (h *QueueHandlerImpl) HandleGetLimits(c echo.Context) error {
	return c.JSON(http.StatusOK, h.controller.Limits())
}

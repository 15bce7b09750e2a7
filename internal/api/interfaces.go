// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// QueueHandler handles batch upload queue operations.
type QueueHandler interface {
	HandleAddFiles(c echo.Context) error
	HandleRemoveFile(c echo.Context) error
	HandleProcessAll(c echo.Context) error
	HandleCancelProcessing(c echo.Context) error
	HandleRetryFailed(c echo.Context) error
	HandleClearQueue(c echo.Context) error
	HandleGetQueue(c echo.Context) error
	HandleExportQueue(c echo.Context) error
	HandleGetLimits(c echo.Context) error
}

// HealthHandler handles health check operations.
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/fin-diagnostics/backend/internal/batch"
)

// Dependencies holds all handler dependencies.
type Dependencies struct {
	Controller *batch.Controller
	Version    string
}

// Handlers holds all handler instances.
type Handlers struct {
	Health    HealthHandler
	Queue     QueueHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances.
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version),
		Queue:     NewQueueHandler(deps.Controller),
		WebSocket: NewWebSocketHandler(deps.Controller),
	}
}

// RegisterRoutes registers all API routes with the Echo instance.
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Queue event stream
	apiGroup.GET("/ws/queue", handlers.WebSocket.HandleWebSocket)

	// Batch upload queue
	queueGroup := apiGroup.Group("/queue")
	queueGroup.GET("", handlers.Queue.HandleGetQueue)
	queueGroup.DELETE("", handlers.Queue.HandleClearQueue)
	queueGroup.POST("/files", handlers.Queue.HandleAddFiles)
	queueGroup.DELETE("/files/:id", handlers.Queue.HandleRemoveFile)
	queueGroup.POST("/process", handlers.Queue.HandleProcessAll)
	queueGroup.POST("/cancel", handlers.Queue.HandleCancelProcessing)
	queueGroup.POST("/retry", handlers.Queue.HandleRetryFailed)
	queueGroup.GET("/export", handlers.Queue.HandleExportQueue)
	queueGroup.GET("/limits", handlers.Queue.HandleGetLimits)
}

// websocket.go - Pushes queue change events to connected views
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/fin-diagnostics/backend/internal/batch"
	"github.com/fin-diagnostics/backend/internal/queue"
)

// WebSocket message types for the queue event protocol.
const (
	// Client -> Server
	MsgTypePing = "ping"

	// Server -> Client
	MsgTypePong  = "pong"
	MsgTypeHello = "hello"
	MsgTypeEvent = "event"
)

// WSMessage is the envelope for every frame on the queue socket.
type WSMessage struct {
	Type      string       `json:"type"`
	Timestamp int64        `json:"timestamp"`
	Event     *queue.Event `json:"event,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced by the HTTP middleware; the socket accepts
		// whatever origin got this far.
		return true
	},
}

// WebSocketHandler streams queue events to each connected client. One
// subscription per connection, released when the socket closes.
type WebSocketHandler struct {
	controller *batch.Controller
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(controller *batch.Controller) *WebSocketHandler {
	return &WebSocketHandler{controller: controller}
}

// HandleWebSocket upgrades the connection and fans queue events into it until
// the client goes away.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return NewBadRequestError("websocket upgrade failed", err)
	}
	defer ws.Close()

	events, release := wsh.controller.Subscribe()
	defer release()

	// Reader goroutine: consume pings and detect disconnect. It never writes
	// to the socket itself — gorilla allows one concurrent writer, so every
	// outbound frame goes through the select loop below.
	done := make(chan struct{})
	pings := make(chan struct{}, 8)
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == MsgTypePing {
				select {
				case pings <- struct{}{}:
				default:
					// Ping flood; the pending pong already covers it.
				}
			}
		}
	}()

	wsh.send(ws, WSMessage{Type: MsgTypeHello, Timestamp: time.Now().UnixMilli()})

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return nil
			}
			wsh.send(ws, WSMessage{
				Type:      MsgTypeEvent,
				Timestamp: time.Now().UnixMilli(),
				Event:     &event,
			})
		case <-pings:
			wsh.send(ws, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		case <-done:
			return nil
		}
	}
}

func (wsh *WebSocketHandler) send(ws *websocket.Conn, msg WSMessage) {
	if err := ws.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
	}
}

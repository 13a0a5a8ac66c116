// websocket.go - WebSocket progress streaming for analyses
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/csv-profiler/backend/internal/analysis"
	"github.com/csv-profiler/backend/internal/models"
)

// WebSocket message types
const (
	MsgTypeProgress = "progress"
	MsgTypeComplete = "complete"
	MsgTypeError    = "error"
)

// WSMessage is the envelope sent to progress subscribers.
type WSMessage struct {
	Type      string           `json:"type"`
	Analysis  *models.Analysis `json:"analysis,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// WebSocketHandler streams analysis progress over a WebSocket connection.
type WebSocketHandler struct {
	manager  *analysis.Manager
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(manager *analysis.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origins are enforced by the CORS middleware in front of us.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleProgress upgrades the connection and pushes progress updates until
// the analysis finishes or the client goes away.
func (h *WebSocketHandler) HandleProgress(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return NewBadRequestError("websocket upgrade failed", err)
	}
	defer conn.Close()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	deadline := time.NewTimer(5 * time.Minute)
	defer deadline.Stop()

	for {
		a, ok := h.manager.Get(id)
		if !ok {
			h.send(conn, &WSMessage{Type: MsgTypeError, Error: "analysis not found"})
			return nil
		}

		msg := &WSMessage{Type: MsgTypeProgress, Analysis: a}
		if a.Status == models.AnalysisStatusComplete {
			msg.Type = MsgTypeComplete
		} else if a.Status == models.AnalysisStatusError {
			msg.Type = MsgTypeError
		}

		if err := h.send(conn, msg); err != nil {
			return nil // client gone
		}
		if msg.Type != MsgTypeProgress {
			return nil
		}

		select {
		case <-ticker.C:
		case <-c.Request().Context().Done():
			return nil
		case <-deadline.C:
			h.send(conn, &WSMessage{Type: MsgTypeError, Error: "stream timeout"})
			return nil
		}
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msg *WSMessage) error {
	msg.Timestamp = time.Now().UnixMilli()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(msg)
}

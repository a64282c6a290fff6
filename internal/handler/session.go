package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"hail/internal/ws"
)

// SessionHandler upgrades HTTP requests to websocket sessions and registers
// them with the hub so riders and captains can receive ride events.
type SessionHandler struct {
	hub      *ws.Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(hub *ws.Hub, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks belong to the API gateway in front of this service.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Attach handles GET /ws/captains/:id and GET /ws/riders/:id
func (h *SessionHandler) Attach(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "principal id is required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "id", id, "error", err)
		return
	}

	h.hub.Attach(id, conn)
	h.logger.Info("session attached", "id", id)

	// The read loop exists only to observe the close; this service never
	// consumes client messages.
	go func() {
		defer func() {
			h.hub.Detach(id, conn)
			_ = conn.Close()
			h.logger.Info("session detached", "id", id)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// UserIDKey is the gin context key the auth middleware stores the user ID under
const UserIDKey = "userID"

// Handler upgrades dashboard connections and attaches them to the hub
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		upgrader: newUpgrader(allowedOrigins),
		logger:   logger,
	}
}

// HandleConnection godoc
// @Summary Live activity feed
// @Description Upgrades to a WebSocket that receives one JSON activity event per audited change
// @Tags dashboard
// @Security BearerAuth
// @Param token query string false "JWT, for clients that cannot set headers"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /dashboard/activity/ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	userID := c.GetInt64(UserIDKey)
	if userID == 0 {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Int64("userID", userID).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:        h.hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		userID:     userID,
		remoteAddr: conn.RemoteAddr().String(),
		logger:     h.logger,
	}
	if !h.hub.Register(client) {
		h.logger.Warn().Int64("userID", userID).Msg("Activity hub stopped, closing WebSocket")
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

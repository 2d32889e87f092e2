// internal/handlers/websocket/websocket.go
package websocket

import (
	"net/http"
	"strings"
	"time"

	"gitwallet-service/internal/middleware"
	"gitwallet-service/internal/pkg/response"
	ws "gitwallet-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler builds the dashboard socket endpoint. An empty
// allowedOrigins accepts any origin.
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		logger: logger,
	}
}

// HandleConnection authenticates a vendor and upgrades the connection.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "missing authentication token", nil)
		return
	}

	auth, err := h.hub.AuthenticateClient(token)
	if err != nil {
		h.logger.Warn("websocket authentication failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		response.Error(c, http.StatusUnauthorized, "authentication failed", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	client := ws.NewClient(h.hub, conn, auth)
	h.hub.Register <- client

	h.logger.Info("websocket client connected",
		zap.String("user_id", auth.UserID),
		zap.String("organization_id", auth.OrganizationID),
		zap.String("session_id", auth.SessionID),
	)

	go client.WritePump()
	go client.ReadPump()
}

// browsers cannot set headers on the upgrade request
func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}

	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// GetStats returns connection counts for the caller's organization.
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	stats := gin.H{
		"total_connections": h.hub.TotalClients(),
		"timestamp":         time.Now(),
	}
	if actor := middleware.GetActor(c); actor.OrganizationID != "" {
		stats["organization_connections"] = h.hub.ConnectedClients(actor.OrganizationID)
	}

	response.Success(c, http.StatusOK, "websocket stats", stats)
}

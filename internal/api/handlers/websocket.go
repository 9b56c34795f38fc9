package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"travelsync/internal/api/middleware"
	"travelsync/internal/collab"
	"travelsync/internal/services"
)

type WebSocketHandler struct {
	gateway      *collab.Gateway
	redisService *services.RedisService
	auth         *middleware.AuthMiddleware
}

func NewWebSocketHandler(gateway *collab.Gateway, redisService *services.RedisService, auth *middleware.AuthMiddleware) *WebSocketHandler {
	return &WebSocketHandler{gateway: gateway, redisService: redisService, auth: auth}
}

// HandleConnection godoc
// @Summary      Open a collaboration session
// @Description  Upgrades to a websocket; authenticate and join-room happen over the socket
// @Tags         collab
// @Param        token query string false "JWT, validated before upgrading when present"
// @Router       /ws [get]
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	// Browsers cannot set headers on a ws upgrade, so the token rides a
	// query parameter. A bad token is rejected before the upgrade; the
	// session identity itself is still bound by the authenticate event.
	if token := c.Query("token"); token != "" {
		if _, err := h.auth.ParseUserID(token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
	}
	h.gateway.ServeWS(c.Writer, c.Request)
}

// OnlineUsers godoc
// @Summary      List users currently connected to collaboration
// @Tags         collab
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string][]string
// @Router       /ws/online [get]
func (h *WebSocketHandler) OnlineUsers(c *gin.Context) {
	users, err := h.redisService.GetOnlineUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read online users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

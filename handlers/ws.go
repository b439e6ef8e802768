package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Horizonnns/vue-chat-server/chat"
	"github.com/Horizonnns/vue-chat-server/middleware"
	"github.com/Horizonnns/vue-chat-server/utils"
)

type WSHandler struct {
	svc      *chat.Service
	logger   *utils.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(svc *chat.Service, allowedOrigin string, logger *utils.Logger) *WSHandler {
	return &WSHandler{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Serve handles GET /ws. The Auth middleware has already bound the request
// to a user id; the upgraded connection is handed to the chat core, which
// registers it and pumps it until disconnect.
func (h *WSHandler) Serve(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Missing user identity",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := chat.NewClient(h.svc, conn, userID, h.logger)
	go client.Run()
}

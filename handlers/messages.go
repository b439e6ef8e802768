package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Horizonnns/vue-chat-server/chat"
	"github.com/Horizonnns/vue-chat-server/db"
	"github.com/Horizonnns/vue-chat-server/middleware"
	"github.com/Horizonnns/vue-chat-server/models"
	"github.com/Horizonnns/vue-chat-server/utils"
)

// HistoryStore is the slice of the persistence gateway the message
// handlers need.
type HistoryStore interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
	Conversation(ctx context.Context, userID, contactID int64) ([]models.Message, error)
}

type MessageHandler struct {
	store    HistoryStore
	registry *chat.Registry
	logger   *utils.Logger
}

func NewMessageHandler(store HistoryStore, registry *chat.Registry, logger *utils.Logger) *MessageHandler {
	return &MessageHandler{
		store:    store,
		registry: registry,
		logger:   logger,
	}
}

// History handles GET /messages?contactId=. Returns both directions of the
// conversation ordered by timestamp.
func (h *MessageHandler) History(c *gin.Context) {
	contactID, err := strconv.ParseInt(c.Query("contactId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "contactId is required",
		})
		return
	}

	userID := middleware.UserID(c)

	messages, err := h.store.Conversation(c.Request.Context(), userID, contactID)
	if err != nil {
		h.logger.Error("Failed to fetch messages", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Server error",
		})
		return
	}

	if messages == nil {
		messages = []models.Message{}
	}

	c.JSON(http.StatusOK, messages)
}

// Status handles GET /status/:userId. Online state comes from the
// connection registry at call time; last_seen from durable storage.
func (h *MessageHandler) Status(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	user, err := h.store.UserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}
		h.logger.Error("Failed to fetch user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Server error",
		})
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{
		IsOnline: h.registry.Contains(userID),
		LastSeen: user.LastSeen,
	})
}

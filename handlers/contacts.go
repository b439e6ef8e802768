package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Horizonnns/vue-chat-server/db"
	"github.com/Horizonnns/vue-chat-server/middleware"
	"github.com/Horizonnns/vue-chat-server/models"
	"github.com/Horizonnns/vue-chat-server/utils"
)

// ContactStore is the slice of the persistence gateway the contact
// handlers need.
type ContactStore interface {
	UserByPhone(ctx context.Context, phone string) (*models.User, error)
	AddContactPair(ctx context.Context, userID, contactID int64) error
	ContactsOf(ctx context.Context, userID int64) ([]models.ContactInfo, error)
}

type ContactHandler struct {
	store  ContactStore
	logger *utils.Logger
}

func NewContactHandler(store ContactStore, logger *utils.Logger) *ContactHandler {
	return &ContactHandler{
		store:  store,
		logger: logger,
	}
}

// Search handles GET /search?phone=
func (h *ContactHandler) Search(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "phone parameter is required",
		})
		return
	}

	user, err := h.store.UserByPhone(c.Request.Context(), phone)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}
		h.logger.Error("Failed to search user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Server error",
		})
		return
	}

	c.JSON(http.StatusOK, models.ContactInfo{
		ID:    user.ID,
		Name:  user.Name,
		Phone: user.Phone,
	})
}

// AddContact handles POST /add-contact. Both directions of the contact
// edge are inserted together so the relation stays symmetric.
func (h *ContactHandler) AddContact(c *gin.Context) {
	var req models.AddContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "contactPhone is required",
		})
		return
	}

	userID := middleware.UserID(c)

	contact, err := h.store.UserByPhone(c.Request.Context(), req.ContactPhone)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}
		h.logger.Error("Failed to fetch contact", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Server error",
		})
		return
	}

	if contact.ID == userID {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cannot add yourself as a contact",
		})
		return
	}

	if err := h.store.AddContactPair(c.Request.Context(), userID, contact.ID); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Contact already exists",
			})
			return
		}
		h.logger.Error("Failed to add contact", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Server error",
		})
		return
	}

	h.logger.Info("Contact added", "userId", userID, "contactId", contact.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Contact added successfully",
	})
}

// ListContacts handles GET /contacts/:userId
func (h *ContactHandler) ListContacts(c *gin.Context) {
	requestedID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	if requestedID != middleware.UserID(c) {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Access denied",
		})
		return
	}

	contacts, err := h.store.ContactsOf(c.Request.Context(), requestedID)
	if err != nil {
		h.logger.Error("Failed to fetch contacts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Server error",
		})
		return
	}

	if contacts == nil {
		contacts = []models.ContactInfo{}
	}

	c.JSON(http.StatusOK, contacts)
}

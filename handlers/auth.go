package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Horizonnns/vue-chat-server/auth"
	"github.com/Horizonnns/vue-chat-server/config"
	"github.com/Horizonnns/vue-chat-server/db"
	"github.com/Horizonnns/vue-chat-server/models"
	"github.com/Horizonnns/vue-chat-server/utils"
)

// UserStore is the slice of the persistence gateway the auth handlers use.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByPhone(ctx context.Context, phone string) (*models.User, error)
}

type AuthHandler struct {
	store  UserStore
	cfg    *config.Config
	logger *utils.Logger
}

func NewAuthHandler(store UserStore, cfg *config.Config, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Register handles POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "All fields are required",
		})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("Failed to hash password", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Registration failed",
		})
		return
	}

	user := &models.User{
		Name:     req.Name,
		Phone:    req.Phone,
		Password: string(hashed),
	}

	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "A user with this phone number already exists",
			})
			return
		}
		h.logger.Error("Failed to create user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Registration failed",
		})
		return
	}

	h.logger.Info("User registered", "id", user.ID, "phone", user.Phone)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
	})
}

// Login handles POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "All fields are required",
		})
		return
	}

	user, err := h.store.UserByPhone(c.Request.Context(), req.Phone)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.logger.Error("Failed to fetch user", "error", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid phone number or password",
		})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid phone number or password",
		})
		return
	}

	token, err := auth.GenerateToken(user.ID, []byte(h.cfg.JWTSecret), h.cfg.TokenTTL)
	if err != nil {
		h.logger.Error("Failed to sign token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Login failed",
		})
		return
	}

	// The password hash is excluded by the model's json tag.
	c.JSON(http.StatusOK, models.LoginResponse{
		Token: token,
		User:  user,
	})
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-reminders/internal/adapters/metrics"
	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
	"github.com/comitanigiacomo/kanso-reminders/internal/core/services"
)

type AuthHandler struct {
	service *services.AuthService
	tokens  *services.TokenService
}

func NewAuthHandler(service *services.AuthService, tokens *services.TokenService) *AuthHandler {
	return &AuthHandler{
		service: service,
		tokens:  tokens,
	}
}

type registerRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	Username       string `json:"username" binding:"omitempty,max=50"`
	TelegramChatID string `json:"tg_chat_id" binding:"omitempty,max=21"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type userResponse struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Username       *string `json:"username,omitempty"`
	TelegramChatID *string `json:"tg_chat_id,omitempty"`
}

// Register godoc
// @Summary  Create an account
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    user body registerRequest true "Account"
// @Success  201 {object} userResponse
// @Failure  400 {object} map[string]string
// @Failure  409 {object} map[string]string
// @Router   /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.RegisterInput{
		Email:          req.Email,
		Password:       req.Password,
		Username:       req.Username,
		TelegramChatID: req.TelegramChatID,
	}

	user, err := h.service.Register(c.Request.Context(), input)
	metrics.TrackAuthAttempt("register", err)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
		case errors.Is(err, domain.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email format"})
		case errors.Is(err, domain.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
		case errors.Is(err, domain.ErrInvalidChatID):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, userResponse{
		ID:             user.ID,
		Email:          user.Email,
		Username:       user.Username,
		TelegramChatID: user.TelegramChatID,
	})
}

// Login godoc
// @Summary  Exchange credentials for a token pair
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    credentials body loginRequest true "Credentials"
// @Success  200 {object} services.TokenPair
// @Failure  401 {object} map[string]string
// @Router   /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.service.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	metrics.TrackAuthAttempt("login", err)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Refresh godoc
// @Summary  Exchange a refresh token for a new pair
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    token body refreshRequest true "Refresh token"
// @Success  200 {object} services.TokenPair
// @Failure  401 {object} map[string]string
// @Router   /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.tokens.Refresh(req.Refresh)
	metrics.TrackAuthAttempt("refresh", err)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}
}

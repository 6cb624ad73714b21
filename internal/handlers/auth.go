package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"gamehub-chat/internal/middleware"
	"gamehub-chat/internal/models"
	"gamehub-chat/internal/moderation"
	"gamehub-chat/internal/repositories"
	"gamehub-chat/internal/session"
)

// AuthHandler manages account registration and session lifecycle.
type AuthHandler struct {
	users    repositories.UserRepository
	sessions *session.Store
	state    *moderation.State
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(users repositories.UserRepository, sessions *session.Store, state *moderation.State) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, state: state}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates an account and returns a fresh session token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || len(username) > models.MaxUsernameLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	user, err := h.users.Create(c.Request.Context(), username, string(hash))
	if err != nil {
		if errors.Is(err, repositories.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	token, err := h.sessions.Create(c.Request.Context(), user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "username": user.Username})
}

// Login verifies credentials and mints a session token. Banned accounts are
// refused with the ban reason before any token is issued.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load account"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if banned, reason := h.state.BannedReason(user.Username); banned {
		c.JSON(http.StatusForbidden, gin.H{"error": "banned", "reason": reason})
		return
	}

	token, err := h.sessions.Create(c.Request.Context(), user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "username": user.Username})
}

// Logout revokes the caller's current session token.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
		return
	}

	h.sessions.Revoke(c.Request.Context(), token)
	c.Status(http.StatusNoContent)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/auth/credentials"
	"github.com/Tenac92/LEXIS-sub001/internal/logger"
	"github.com/Tenac92/LEXIS-sub001/internal/middleware"
	"github.com/Tenac92/LEXIS-sub001/internal/session"

	"github.com/gin-gonic/gin"
)

// PasswordChecker verifies email/password pairs.
type PasswordChecker interface {
	Authenticate(ctx context.Context, email, password string) (credentials.Principal, error)
}

// SessionInvalidator is told when a session ends so live sockets bound to it
// are pruned on the next heartbeat.
type SessionInvalidator interface {
	Invalidate(sessionID string)
}

type Handler struct {
	credentials PasswordChecker
	auth        *session.Authenticator
	sessions    SessionInvalidator
	cookies     session.CookiePolicy
	now         func() time.Time
}

func NewHandler(
	credentials PasswordChecker,
	auth *session.Authenticator,
	sessions SessionInvalidator,
	cookieSecure bool,
) *Handler {
	return &Handler{
		credentials: credentials,
		auth:        auth,
		sessions:    sessions,
		cookies:     session.NewCookiePolicy(cookieSecure),
		now:         time.Now,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, requireAuth gin.HandlerFunc) {
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)

	api := r.Group("/api")
	api.Use(requireAuth)
	api.GET("/me", h.Me)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	principal, err := h.credentials.Authenticate(
		c.Request.Context(),
		req.Email,
		req.Password,
	)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	sess, err := h.auth.Issue(c.Request.Context(), principal.UserID, principal.Role)
	if err != nil {
		logger.Error("failed to persist session", map[string]any{
			"user_id": principal.UserID,
			"error":   err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
		return
	}

	h.cookies.Write(c.Writer, sess, h.now())

	logger.Info("login succeeded", map[string]any{
		"user_id": principal.UserID,
		"ip":      c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{
		"status":  "logged_in",
		"user_id": principal.UserID,
		"role":    principal.Role,
	})
}

// Logout is idempotent: it answers 204 whether or not a session existed.
func (h *Handler) Logout(c *gin.Context) {
	if sessionID, ok := session.IDFromRequest(c.Request); ok {
		if err := h.auth.Revoke(c.Request.Context(), sessionID); err != nil {
			logger.Warn("session delete failed", map[string]any{
				"error": err.Error(),
			})
		}
		if h.sessions != nil {
			h.sessions.Invalidate(sessionID)
		}
		logger.Info("logout", map[string]any{
			"ip": c.ClientIP(),
		})
	}

	h.cookies.Clear(c.Writer)
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id": c.GetString(middleware.ContextKeyUserID),
		"role":    c.GetString(middleware.ContextKeyRole),
	})
}

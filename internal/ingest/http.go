package ingest

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Tenac92/LEXIS-sub001/internal/event"
	"github.com/Tenac92/LEXIS-sub001/internal/gateway"

	"github.com/gin-gonic/gin"
)

const maxEventBody = 64 << 10

// StatsSource reports live connection counts.
type StatsSource interface {
	Stats() gateway.Stats
}

// HTTPHandler serves the internal endpoints used by trusted backend services.
// Every route requires the bearer token.
type HTTPHandler struct {
	pub   Publisher
	stats StatsSource
	token string
}

func NewHTTPHandler(pub Publisher, token string) *HTTPHandler {
	return &HTTPHandler{pub: pub, token: token}
}

// WithStats also serves GET /internal/ws/stats.
func (h *HTTPHandler) WithStats(s StatsSource) *HTTPHandler {
	h.stats = s
	return h
}

func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	internal := r.Group("/internal", h.requireToken)
	internal.POST("/events", h.Publish)
	if h.stats != nil {
		internal.GET("/ws/stats", h.Stats)
	}
}

func (h *HTTPHandler) requireToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if h.token == "" || !ok ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

// Publish answers 202 with the delivery report. Unknown kinds and invalid
// payloads get 400.
func (h *HTTPHandler) Publish(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBody+1))
	if err != nil || len(body) > maxEventBody {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	report, err := deliver(c.Request.Context(), h.pub, "http", body)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrUnknownKind), errors.Is(err, event.ErrInvalidPayload):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "publish failed"})
		}
		return
	}

	c.JSON(http.StatusAccepted, report)
}

func (h *HTTPHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Stats())
}

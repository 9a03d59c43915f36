package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chatrelay/internal/entities"
	"chatrelay/internal/infrastructure"
	"chatrelay/internal/interfaces"
	"chatrelay/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Handler struct {
	relay  *usecases.RelayService
	db     interfaces.Database
	logger *zap.Logger
}

func NewHandler(relay *usecases.RelayService, db interfaces.Database, logger *zap.Logger) *Handler {
	return &Handler{relay: relay, db: db, logger: logger}
}

// RouteOptions holds the limits applied to the relay routes.
type RouteOptions struct {
	RateLimit    float64
	RateBurst    int
	MaxBodyBytes int64
}

func SetupRoutes(r *gin.Engine, h *Handler, middleware *Middleware, opts RouteOptions) {
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(opts.MaxBodyBytes))
	r.Use(middleware.CORSMiddleware())

	r.GET("/healthz", h.Health)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerToken(rate.Limit(opts.RateLimit), opts.RateBurst))
	{
		api.POST("/relay/:platform/messages/:channelId", h.RelayMessage)
	}
}

// RelayMessage forwards {"content"} to the platform's messenger using the
// caller's bearer token and writes the upstream body back verbatim.
func (h *Handler) RelayMessage(c *gin.Context) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	content := SanitizeString(payload.Content)
	if !ValidateLength(content, 1, MaxContentLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content must be between 1 and 4096 bytes"})
		return
	}

	msg := entities.Message{
		ChannelID: c.Param("channelId"),
		Content:   content,
		Platform:  c.Param("platform"),
	}

	resp, err := h.relay.Relay(c.Request.Context(), msg, c.GetString(tokenKey))
	if err != nil {
		h.writeRelayError(c, err)
		return
	}

	if len(resp) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	contentType := "application/json"
	if !json.Valid(resp) {
		contentType = "text/plain; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, resp)
}

func (h *Handler) writeRelayError(c *gin.Context, err error) {
	var statusErr *infrastructure.StatusError
	switch {
	case errors.Is(err, usecases.ErrUnknownPlatform):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, usecases.ErrEmptyContent), errors.Is(err, infrastructure.ErrEmptyChannel):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &statusErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream rejected message", "upstream_status": statusErr.StatusCode})
	default:
		h.logger.Error("relay failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream unavailable"})
	}
}

// Health pings the database opened at startup.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "driver": h.db.Driver()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "driver": h.db.Driver()})
}

// Package api exposes an HTTP trigger in front of the publish endpoint, so
// other services can publish without holding the socket themselves.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"bolt/internal/messages"
	"bolt/internal/publisher"
)

// Endpoint is the subset of *publisher.Server the handlers use.
type Endpoint interface {
	PublishMessage(topic string, msg messages.Message) error
	Attach(sub publisher.Subscriber) (func(), error)
	SubscriberCount() int
	Addr() string
}

type Handler struct {
	endpoint       Endpoint
	logger         *slog.Logger
	now            func() time.Time
	heartbeatTopic string
}

func NewHandler(endpoint Endpoint, heartbeatTopic string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		endpoint:       endpoint,
		logger:         logger,
		now:            time.Now,
		heartbeatTopic: heartbeatTopic,
	}
}

// NewRouter wires the trigger routes; limiter may be nil to disable throttling.
func NewRouter(h *Handler, limiter *rate.Limiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if limiter != nil {
		r.Use(RateLimit(limiter))
	}

	r.GET("/health", h.Health)
	r.GET("/ws", h.Subscribe)

	publish := r.Group("/publish")
	{
		publish.POST("/pool-attach", h.PoolAttach)
		publish.POST("/subscription-register", h.SubscriptionRegister)
		publish.POST("/heartbeat", h.Heartbeat)
	}
	return r
}

// RateLimit rejects requests once the shared token bucket is empty.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

type PoolAttachRequest struct {
	Topic  string  `json:"topic" binding:"required"`
	PoolID *string `json:"pool_id"`
}

type SubscriptionRegisterRequest struct {
	Topic         string  `json:"topic" binding:"required"`
	Username      *string `json:"username"`
	Password      *string `json:"password"`
	Environment   *string `json:"environment"`
	ActivationKey *string `json:"activation_key"`
}

type PublishResponse struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"addr":        h.endpoint.Addr(),
		"subscribers": h.endpoint.SubscriberCount(),
	})
}

func (h *Handler) PoolAttach(c *gin.Context) {
	var req PoolAttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := messages.NewPoolAttach(messages.PoolAttachOptions{PoolID: req.PoolID})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.publish(c, req.Topic, msg)
}

func (h *Handler) SubscriptionRegister(c *gin.Context) {
	var req SubscriptionRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg := messages.NewSubscriptionRegister(messages.RegisterOptions{
		Username:      req.Username,
		Password:      req.Password,
		Environment:   req.Environment,
		ActivationKey: req.ActivationKey,
	})
	h.publish(c, req.Topic, msg)
}

// Heartbeat publishes an out-of-schedule heartbeat on the configured topic.
func (h *Handler) Heartbeat(c *gin.Context) {
	h.publish(c, h.heartbeatTopic, messages.NewHeartbeat(h.now()))
}

func (h *Handler) publish(c *gin.Context, topic string, msg messages.Message) {
	err := h.endpoint.PublishMessage(topic, msg)
	switch {
	case err == nil:
		h.logger.Info("message_published",
			"topic", topic,
			"message", msg.String(),
			"client_ip", c.ClientIP(),
		)
		c.JSON(http.StatusAccepted, PublishResponse{Topic: topic, Message: msg.String()})
	case errors.Is(err, publisher.ErrNotConnected):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, publisher.ErrInvalidFrame):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("message_publish_failed", "topic", topic, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

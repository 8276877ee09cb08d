package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/young1lin/civicsource/internal/config"
	"github.com/young1lin/civicsource/internal/metrics"
	"github.com/young1lin/civicsource/internal/models"
	"github.com/young1lin/civicsource/internal/search"
	"github.com/young1lin/civicsource/pkg/logger"
)

// AssistantFallback is sent with a 200 status whenever the model cannot answer
const AssistantFallback = "⚠️ Sorry, I couldn't reach the assistant right now. Please try again in a moment."

const logKey = "logger"

// Replier answers a free-text message
type Replier interface {
	Reply(ctx context.Context, message string) (string, error)
}

// Handler serves the public API
type Handler struct {
	config    *config.Config
	search    *search.Service
	assistant Replier
	engine    *gin.Engine
}

// New creates the handler and its routes
func New(cfg *config.Config, svc *search.Service, assistant Replier) *Handler {
	h := &Handler{
		config:    cfg,
		search:    svc,
		assistant: assistant,
	}
	h.engine = h.routes()
	return h
}

// ServeHTTP handles all HTTP requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

func (h *Handler) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(traceRequests())
	engine.Use(cors.New(corsConfig(h.config.CORS)))

	engine.GET("/health", h.handleHealth)
	engine.GET("/providers", h.handleProviders)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := engine.Group("/api")
	api.GET("/search", h.handleSearch)
	api.POST("/chat", h.handleChat)
	api.POST("/procurements", h.handleAcknowledge("procurement", "Procurement received"))
	api.POST("/proposals", h.handleAcknowledge("proposal", "Proposal received"))

	// The bundled frontend posts chat messages here
	engine.POST("/chat", h.handleChat)

	engine.NoRoute(func(c *gin.Context) {
		h.handleError(c, http.StatusNotFound, "Endpoint not found")
	})

	return engine
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Trace-ID", "X-Request-ID"},
		ExposeHeaders: []string{"X-Trace-ID"},
		MaxAge:        12 * time.Hour,
	}
	if cfg.AllowAll() {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return c
}

// traceRequests assigns a trace ID, logs the request and records its latency
func traceRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		traceID := extractTraceID(c.Request)
		if traceID == "" {
			traceID = generateTraceID()
		}
		c.Request = c.Request.WithContext(logger.ContextWithTraceID(c.Request.Context(), traceID))
		c.Header("X-Trace-ID", traceID)

		log := logger.WithTraceID(traceID)
		c.Set(logKey, log)
		log.Info("request received",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("remote_addr", c.ClientIP()),
		)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())

		log.Info("request completed",
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}
}

func requestLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(logKey); ok {
		if log, ok := v.(*zap.Logger); ok {
			return log
		}
	}
	return logger.Named("handler")
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// handleProviders lists the registered providers in merge order
func (h *Handler) handleProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers":        h.search.Providers(),
		"default_location": h.config.Search.DefaultLocation,
		"default_limit":    h.config.Search.DefaultLimit,
	})
}

// handleSearch handles GET /api/search
func (h *Handler) handleSearch(c *gin.Context) {
	var raw models.RawSearchQuery
	if err := c.ShouldBindQuery(&raw); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	businesses, err := h.search.Search(c.Request.Context(), raw)
	if err != nil {
		var verr *search.ValidationError
		if errors.As(err, &verr) {
			h.handleError(c, http.StatusBadRequest, verr.Message)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Search failed")
		return
	}

	c.JSON(http.StatusOK, models.SearchResponse{Businesses: businesses})
}

// handleChat handles POST /api/chat. Assistant failures are answered with a
// fallback reply rather than an error status.
func (h *Handler) handleChat(c *gin.Context) {
	log := requestLogger(c)

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		h.handleError(c, http.StatusBadRequest, "Message required")
		return
	}

	reply, err := h.assistant.Reply(c.Request.Context(), strings.TrimSpace(req.Message))
	if err != nil {
		metrics.AssistantRequests.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.Warn("assistant failed, sending fallback reply", zap.Error(err))
		c.JSON(http.StatusOK, models.ChatResponse{Reply: AssistantFallback})
		return
	}

	metrics.AssistantRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
	c.JSON(http.StatusOK, models.ChatResponse{Reply: reply})
}

// handleAcknowledge logs a demo submission and acknowledges it
func (h *Handler) handleAcknowledge(kind, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			h.handleError(c, http.StatusBadRequest, "Failed to read request body")
			return
		}
		requestLogger(c).Info("submission received",
			zap.String("kind", kind),
			zap.ByteString("payload", body),
		)
		c.JSON(http.StatusOK, models.Acknowledgement{Status: "success", Message: message})
	}
}

// handleError writes a flat {"error": "..."} body
func (h *Handler) handleError(c *gin.Context, status int, message string) {
	requestLogger(c).Warn("request error",
		zap.String("message", message),
		zap.Int("status", status),
	)
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message})
}

// extractTraceID extracts trace ID from various possible headers
func extractTraceID(r *http.Request) string {
	headers := []string{
		"X-Trace-ID",
		"X-Request-ID",
		"X-Correlation-ID",
	}

	for _, header := range headers {
		if id := r.Header.Get(header); id != "" {
			return id
		}
	}

	return ""
}

// generateTraceID generates a new trace ID
func generateTraceID() string {
	return uuid.New().String()[:16]
}

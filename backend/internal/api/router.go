package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sd-prompt-enhancer/backend/internal/catalog"
	"sd-prompt-enhancer/backend/internal/constants"
	"sd-prompt-enhancer/backend/internal/enhancer"
	"sd-prompt-enhancer/backend/internal/journal"
	"sd-prompt-enhancer/backend/internal/state"
	apperrors "sd-prompt-enhancer/backend/pkg/errors"
	"sd-prompt-enhancer/backend/pkg/logger"
)

// BackendInfo describes the configured LLM backend for the status endpoint
type BackendInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Endpoint string `json:"endpoint"`
}

// Deps are the components the HTTP API exposes
type Deps struct {
	Catalog  *catalog.Catalog
	Enhancer *enhancer.Enhancer
	Sessions *enhancer.Registry
	Journal  *journal.Journal
	Backend  BackendInfo
	Logger   *zap.Logger
}

type handlers struct {
	Deps
	log *zap.Logger
}

// NewRouter builds the gin engine serving the HTTP API
func NewRouter(deps Deps) *gin.Engine {
	h := &handlers{Deps: deps, log: logger.OrDefault(deps.Logger)}

	router := gin.New()
	router.Use(ginLogger(h.log))
	router.Use(gin.Recovery())
	router.Use(cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/status", h.status)

		api.GET("/catalog", h.getCatalog)
		api.POST("/catalog/refresh", h.refreshCatalog)
		api.POST("/catalog/loras/refresh", h.refreshLoras)

		api.POST("/sessions", h.createSession)
		api.GET("/sessions/:id/transcript", h.transcript)
		api.POST("/sessions/:id/enhance", h.enhance)

		api.POST("/save", h.save)
	}

	return router
}

func (h *handlers) status(c *gin.Context) {
	resp := gin.H{
		"provider":           h.Backend.Provider,
		"model":              h.Backend.Model,
		"endpoint":           h.Backend.Endpoint,
		"submission_enabled": h.Enhancer.SubmissionEnabled(),
		"catalog_warnings":   h.Catalog.Snapshot().Warnings,
		"sessions":           h.Sessions.Len(),
	}
	if err := h.Enhancer.DisabledReason(); err != nil {
		resp["config_error"] = apperrors.UserMessage(err)
	}
	c.JSON(http.StatusOK, resp)
}

type styleTag struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`
}

func (h *handlers) catalogResponse() gin.H {
	snap := h.Catalog.Snapshot()
	tags := make([]styleTag, 0, len(snap.StyleTags))
	for _, e := range snap.StyleTags {
		tags = append(tags, styleTag{Name: e.Name, Selector: e.Selector()})
	}
	return gin.H{
		"checkpoints": snap.Checkpoints,
		"loras":       snap.Loras,
		"style_tags":  tags,
		"styles":      h.Enhancer.Styles().Names(),
		"warnings":    snap.Warnings,
		"defaults": gin.H{
			"style":       constants.DefaultStyle,
			"conciseness": constants.DefaultConciseness,
		},
	}
}

func (h *handlers) getCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalogResponse())
}

func (h *handlers) refreshCatalog(c *gin.Context) {
	h.Catalog.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, h.catalogResponse())
}

func (h *handlers) refreshLoras(c *gin.Context) {
	loras, warnings := h.Catalog.RefreshLoras()
	messages := make([]string, 0, len(warnings))
	for _, w := range warnings {
		messages = append(messages, apperrors.UserMessage(w))
	}
	c.JSON(http.StatusOK, gin.H{"loras": loras, "warnings": messages})
}

func (h *handlers) createSession(c *gin.Context) {
	s := h.Sessions.Create()
	c.JSON(http.StatusCreated, gin.H{"id": s.ID})
}

func (h *handlers) session(c *gin.Context) (*enhancer.Session, bool) {
	s, ok := h.Sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	}
	return s, ok
}

func (h *handlers) transcript(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": s.ID, "busy": s.Busy(), "exchanges": s.Transcript()})
}

func (h *handlers) enhance(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req state.EnhancementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.Enhance(c.Request.Context(), req)
	if err != nil {
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			h.log.Error("Enhancement request failed", zap.String("session_id", s.ID), zap.Error(err))
		}
		c.JSON(code, gin.H{
			"error":      apperrors.UserMessage(err),
			"error_type": apperrors.TypeOf(err),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *handlers) save(c *gin.Context) {
	var req struct {
		Positive string `json:"positive"`
		Negative string `json:"negative"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.Journal.Append(req.Positive, req.Negative)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": apperrors.UserMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "path": h.Journal.Path()})
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	var (
		timeout *apperrors.ErrTimeout
		status  *apperrors.ErrStatus
		conn    *apperrors.ErrConnectionFailed
	)
	switch {
	case errors.Is(err, apperrors.ErrSubmissionDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrSessionBusy):
		return http.StatusConflict
	case apperrors.IsErrorType(err, apperrors.ErrorTypeInput):
		return http.StatusBadRequest
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &status), errors.As(err, &conn):
		return http.StatusBadGateway
	case apperrors.IsErrorType(err, apperrors.ErrorTypeResponse):
		return http.StatusBadGateway
	case apperrors.IsErrorType(err, apperrors.ErrorTypePersistence):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/catalog"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/inspections"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/notifications"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/permits"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	documentFormField        = "document"
	defaultHeartbeatInterval = 25 * time.Second
)

var (
	errMissingInspections = errors.New("inspection service dependency required")
	errMissingPermits     = errors.New("permit service dependency required")
	errMissingCatalog     = errors.New("catalog stores dependency required")
	errMissingRealtime    = errors.New("realtime dispatcher dependency required")
)

type Dependencies struct {
	Inspections       *inspections.Service
	Permits           *permits.Service
	Catalog           *catalog.Stores
	Realtime          *RealtimeDispatcher
	WatchRules        notifications.WatchRules
	RateLimiter       *RateLimiter
	AllowedOrigins    []string
	MetricsHandler    http.Handler
	HeartbeatInterval time.Duration
	Logger            *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Inspections == nil {
		return nil, errMissingInspections
	}
	if deps.Permits == nil {
		return nil, errMissingPermits
	}
	if deps.Catalog == nil {
		return nil, errMissingCatalog
	}
	if deps.Realtime == nil {
		return nil, errMissingRealtime
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))
	router.Use(metricsMiddleware())

	router.GET("/metrics", gin.WrapH(metricsHandler))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/")
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.Middleware())
	}

	handler := &httpHandler{
		inspections: deps.Inspections,
		permits:     deps.Permits,
		realtime:    deps.Realtime,
		rules:       deps.WatchRules,
		heartbeat:   heartbeat,
		logger:      logger,
	}

	registerResource[inspections.Inspection](api, "/inspections", deps.Inspections, logger)
	registerResource[permits.Permit](api, "/permits", deps.Permits, logger)
	registerResource[catalog.Client](api, "/clients", deps.Catalog.Clients, logger)
	registerResource[catalog.ClientRequest](api, "/client-requests", deps.Catalog.ClientRequests, logger)
	registerResource[catalog.DailyIssue](api, "/daily-issues", deps.Catalog.DailyIssues, logger)
	registerResource[catalog.DailyLog](api, "/daily-logs", deps.Catalog.DailyLogs, logger)
	registerResource[catalog.Procurement](api, "/procurements", deps.Catalog.Procurements, logger)
	registerResource[catalog.Project](api, "/projects", deps.Catalog.Projects, logger)
	registerResource[catalog.Task](api, "/tasks", deps.Catalog.Tasks, logger)
	registerResource[catalog.Proposal](api, "/proposals", deps.Catalog.Proposals, logger)
	registerResource[catalog.Vendor](api, "/vendors", deps.Catalog.Vendors, logger)

	api.GET("/notifications", handler.handleListNotifications)
	api.GET("/notifications/stream", handler.handleNotificationStream)
	api.GET("/api/notifications", handler.handlePermitNotifications)
	api.POST("/permits/:id/document", handler.handleUploadPermitDocument)
	api.GET("/permits/:id/document", handler.handleDownloadPermitDocument)

	return router, nil
}

type httpHandler struct {
	inspections *inspections.Service
	permits     *permits.Service
	realtime    *RealtimeDispatcher
	rules       notifications.WatchRules
	heartbeat   time.Duration
	logger      *zap.Logger
}

func (h *httpHandler) handleListNotifications(c *gin.Context) {
	assignee := strings.TrimSpace(c.Query("assignee"))
	feed, err := h.inspections.ListWatchedNotifications(c.Request.Context(), assignee)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

func (h *httpHandler) handlePermitNotifications(c *gin.Context) {
	notices, err := h.permits.ExpiringPermits(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, notices)
}

func (h *httpHandler) handleNotificationStream(c *gin.Context) {
	assignee := strings.TrimSpace(c.Query("assignee"))
	if assignee == "" || !h.rules.Watches(assignee) {
		respondInvalidRequest(c, "assignee must name a watched assignee")
		return
	}

	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, assignee)
	defer cleanup()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-stream:
			if !ok {
				return
			}
			c.SSEvent(message.EventType, message)
			c.Writer.Flush()
		case tick := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, gin.H{"timestamp": tick.UTC(), "source": realtimeSourceBackend})
			c.Writer.Flush()
		}
	}
}

func (h *httpHandler) handleUploadPermitDocument(c *gin.Context) {
	fileHeader, err := c.FormFile(documentFormField)
	if err != nil {
		respondInvalidRequest(c, fmt.Sprintf("multipart field %q is required", documentFormField))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondInvalidRequest(c, "uploaded document could not be read")
		return
	}
	defer func() { _ = file.Close() }()

	permit, err := h.permits.AttachDocument(c.Request.Context(), c.Param("id"), fileHeader.Filename, file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, permit)
}

func (h *httpHandler) handleDownloadPermitDocument(c *gin.Context) {
	permit, reader, err := h.permits.OpenDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer func() { _ = reader.Close() }()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", permit.DocumentName),
	}
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", reader, headers)
}

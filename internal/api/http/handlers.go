package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/perfguard/backend/internal/domain/engine"
	"github.com/perfguard/backend/internal/domain/whitelist"
	"github.com/perfguard/backend/internal/infrastructure/monitoring"
	"github.com/perfguard/backend/internal/shared/types"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	engine  *engine.Engine
	metrics *monitoring.Metrics
	version string
}

// NewHandlers creates a new handler set.
func NewHandlers(eng *engine.Engine, version string) *Handlers {
	return &Handlers{
		engine:  eng,
		version: version,
	}
}

// WithMetrics sets the metrics collector, used for uptime reporting.
func (h *Handlers) WithMetrics(m *monitoring.Metrics) *Handlers {
	h.metrics = m
	return h
}

// Health reports agent liveness.
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"service": "perfguard-agent",
		"version": h.version,
	}
	if h.metrics != nil {
		resp["uptime_seconds"] = int64(h.metrics.Uptime().Seconds())
	}
	c.JSON(http.StatusOK, resp)
}

// ListProcesses returns the current aggregated process table.
func (h *Handlers) ListProcesses(c *gin.Context) {
	procs, err := h.engine.Processes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"processes": procs})
}

// ListWhitelist returns all whitelist entries.
func (h *Handlers) ListWhitelist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"whitelist": h.engine.Whitelist()})
}

type addAppRequest struct {
	Name    string  `json:"name" binding:"required"`
	ExePath *string `json:"exe_path"`
}

// AddApp adds an application to the whitelist.
func (h *Handlers) AddApp(c *gin.Context) {
	var req addAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.engine.AddApp(req.Name, req.ExePath)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, whitelist.ErrDuplicateName) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// RemoveApp removes a whitelist entry and discards any in-progress
// session for it.
func (h *Handlers) RemoveApp(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.engine.RemoveApp(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": id})
}

type setTrackedRequest struct {
	IsTracked *bool `json:"is_tracked" binding:"required"`
}

// SetTracked toggles tracking for a whitelist entry.
func (h *Handlers) SetTracked(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req setTrackedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.engine.SetTracked(id, *req.IsTracked)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ListSessions returns all sessions, closed history plus live views,
// optionally filtered by app name.
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.engine.Sessions(time.Now())

	if app := c.Query("app"); app != "" {
		filtered := make([]types.SessionRecord, 0, len(sessions))
		for _, s := range sessions {
			if strings.EqualFold(s.AppName, app) {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// AppSummary aggregates every session of one application.
func (h *Handlers) AppSummary(c *gin.Context) {
	app := c.Param("app")
	if app == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "app name required"})
		return
	}
	c.JSON(http.StatusOK, h.engine.Summary(app, time.Now()))
}

// DailySummary returns the per-day productivity rollup, optionally
// limited to the most recent N days.
func (h *Handlers) DailySummary(c *gin.Context) {
	days := h.engine.DailySummary(time.Now())

	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
			return
		}
		if n < len(days) {
			days = days[len(days)-n:]
		}
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

// SyncNow runs a full cloud synchronization.
func (h *Handlers) SyncNow(c *gin.Context) {
	if err := h.engine.SyncNow(c.Request.Context()); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, engine.ErrCloudDisabled) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": true})
}

// Wake triggers recovery after a sleep/wake cycle.
func (h *Handlers) Wake(c *gin.Context) {
	if err := h.engine.OnWake(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recovered": true})
}

package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	version   string
	checks    map[string]HealthCheck
}

// NewSystemHandler creates a new SystemHandler. checks are run by Ready.
func NewSystemHandler(version string, checks map[string]HealthCheck) *SystemHandler {
	if version == "" {
		version = "dev"
	}
	return &SystemHandler{
		startTime: time.Now(),
		version:   version,
		checks:    checks,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      "Fulfillment API",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Ping GET /system/ping
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, gin.H{
		"message":   "pong",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Ready runs every dependency check. Any failure answers 503 with the
// per-dependency results in the error message.
// GET /system/ready
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}
	if !healthy {
		resp := dto.NewErrorResponseWithRequestID("ERR_UNAVAILABLE", "Dependency check failed", "")
		resp.Data = results
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	h.Success(c, results)
}

package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventdesk/internal/device"
)

type heartbeatRequest struct {
	DeviceID string `json:"device_id"`
	Label    string `json:"label"`
	Type     string `json:"type" binding:"required"`
}

// Heartbeat registers or refreshes a scanning station. USB readers and mobile
// browsers may omit device_id; a stable id is derived for them.
func (h *Handler) Heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := device.DeriveID(req.Type, req.DeviceID, c.Request.UserAgent())
	d, err := h.devices.Heartbeat(c.Request.Context(), id, req.Label, req.Type)
	if err != nil {
		if errors.Is(err, device.ErrInvalidType) || errors.Is(err, device.ErrMissingID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListDevices returns the currently active stations.
func (h *Handler) ListDevices(c *gin.Context) {
	res, err := h.devices.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": res})
}

// StreamDevices pushes the active device set over SSE. The full set is sent
// on connect and again after every change notification.
func (h *Handler) StreamDevices(c *gin.Context) {
	if h.feed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "device feed not configured"})
		return
	}

	ctx := c.Request.Context()
	ticks, cancel, err := h.feed.Subscribe(ctx)
	if err != nil {
		h.log.Error("device feed subscribe failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "device feed unavailable"})
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	send := func() bool {
		devices, err := h.devices.ListActive(ctx)
		if err != nil {
			h.log.Warn("device list failed during stream", zap.Error(err))
			return true
		}
		c.SSEvent("devices", devices)
		c.Writer.Flush()
		return true
	}

	send()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case _, ok := <-ticks:
			if !ok {
				return false
			}
			return send()
		}
	})
}

package httpapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventdesk/internal/assets"
)

// UploadAsset stores a design asset (logo, signature, template image) and
// returns its public URL. Accepts a multipart file or a base64 data URL.
func (h *Handler) UploadAsset(c *gin.Context) {
	if h.assets == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}

	var result *assets.UploadResult
	var err error

	switch {
	case strings.Contains(c.ContentType(), "multipart/form-data"):
		file, header, ferr := c.Request.FormFile("file")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()
		data, ferr := io.ReadAll(file)
		if ferr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
			return
		}
		result, err = h.assets.UploadBytes(data, header.Filename)

	default:
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if berr := c.ShouldBindJSON(&body); berr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
			return
		}
		result, err = h.assets.UploadBase64(body.Data)
	}

	if err != nil {
		h.log.Error("asset upload failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":       result.SecureURL,
		"public_id": result.PublicID,
		"width":     result.Width,
		"height":    result.Height,
		"bytes":     result.Bytes,
	})
}

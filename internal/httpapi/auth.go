package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventdesk/internal/auth"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges admin credentials for a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.admins.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.fail(c, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		h.log.Error("admin lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.fail(c, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	tokens, err := auth.Issue(user.ID, "admin", h.jwtIssuer, h.jwtKey, h.accessTTL, h.refreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a valid refresh token for a new pair. The account must
// still be active.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := auth.Parse(req.RefreshToken, h.jwtKey, h.jwtIssuer)
	if err != nil || claims.Kind != auth.KindRefresh {
		h.fail(c, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	active, err := h.admins.IsAdmin(c.Request.Context(), claims.Subject)
	if err != nil {
		h.log.Error("admin check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	if !active {
		h.fail(c, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	tokens, err := auth.Issue(claims.Subject, "admin", h.jwtIssuer, h.jwtKey, h.accessTTL, h.refreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

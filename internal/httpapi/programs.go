package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventdesk/internal/program"
)

type programRequest struct {
	Name   string `json:"name" binding:"required"`
	Type   string `json:"type"`
	Active *bool  `json:"active"`
}

// CreateProgram registers a program; new programs default to active.
func (h *Handler) CreateProgram(c *gin.Context) {
	var req programRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	p, err := h.programs.Insert(c.Request.Context(), program.Program{
		Name:   req.Name,
		Type:   req.Type,
		Active: active,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListPrograms lists programs; ?active=true narrows to active ones.
func (h *Handler) ListPrograms(c *gin.Context) {
	res, err := h.programs.List(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"programs": res})
}

// UpdateProgram edits name, type and the active flag.
func (h *Handler) UpdateProgram(c *gin.Context) {
	var req programRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	p, err := h.programs.Update(c.Request.Context(), program.Program{
		ID:     c.Param("id"),
		Name:   req.Name,
		Type:   req.Type,
		Active: active,
	})
	if err != nil {
		if errors.Is(err, program.ErrNotFound) {
			h.fail(c, http.StatusNotFound, "program_not_found")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

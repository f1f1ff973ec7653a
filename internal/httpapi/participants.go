package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eventdesk/internal/participant"
)

type createParticipantRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Organization string `json:"organization"`
}

// CreateParticipant registers one participant and queues their QR email.
func (h *Handler) CreateParticipant(c *gin.Context) {
	var req createParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.participants.Register(c.Request.Context(), req.Name, req.Email, req.Organization)
	switch {
	case errors.Is(err, participant.ErrDuplicateEmail):
		h.fail(c, http.StatusConflict, "participant_duplicate_email")
	case errors.Is(err, participant.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, p)
	}
}

// ListParticipants lists the registry with an optional status filter.
// ?email= looks a single participant up instead.
func (h *Handler) ListParticipants(c *gin.Context) {
	if email := c.Query("email"); email != "" {
		p, err := h.participants.GetByEmail(c.Request.Context(), email)
		if err != nil {
			if errors.Is(err, participant.ErrNotFound) {
				h.fail(c, http.StatusNotFound, "participant_not_found")
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"participants": []participant.Participant{*p}})
		return
	}

	limit, offset := pageParams(c)
	res, err := h.participants.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": res})
}

// GetParticipant returns one participant.
func (h *Handler) GetParticipant(c *gin.Context) {
	p, err := h.participants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, participant.ErrNotFound) {
			h.fail(c, http.StatusNotFound, "participant_not_found")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

type updateParticipantRequest struct {
	Name         string `json:"name" binding:"required"`
	Organization string `json:"organization"`
	Status       string `json:"status"`
}

// UpdateParticipant edits mutable fields; status "inactive" retires the code.
func (h *Handler) UpdateParticipant(c *gin.Context) {
	var req updateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")

	p, err := h.participants.Update(c.Request.Context(), id, req.Name, req.Organization)
	if err != nil {
		if errors.Is(err, participant.ErrNotFound) {
			h.fail(c, http.StatusNotFound, "participant_not_found")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if req.Status == participant.StatusInactive && p.Status != participant.StatusInactive {
		if err := h.participants.Deactivate(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		p.Status = participant.StatusInactive
	}
	c.JSON(http.StatusOK, p)
}

// ImportParticipants bulk-registers participants from an uploaded CSV.
// Accepts either a multipart "file" field or a raw CSV body.
func (h *Handler) ImportParticipants(c *gin.Context) {
	body := c.Request.Body
	if file, _, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		body = file
	}

	sum, err := h.participants.ImportCSV(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, participant.ErrTooManyRows) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": h.tr.T(locale(c), "import_too_many_rows", map[string]any{"Max": participant.MaxImportRows}),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// ParticipantQR renders a participant's scan code as a PNG.
func (h *Handler) ParticipantQR(c *gin.Context) {
	p, err := h.participants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, participant.ErrNotFound) {
			h.fail(c, http.StatusNotFound, "participant_not_found")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	png, err := participant.QRPNG(p.Code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ResendQR re-queues the QR code email for a participant.
func (h *Handler) ResendQR(c *gin.Context) {
	if err := h.participants.ResendQR(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, participant.ErrNotFound) {
			h.fail(c, http.StatusNotFound, "participant_not_found")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, offset = 50, 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	return limit, offset
}

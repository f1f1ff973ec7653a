package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventdesk/internal/certificate"
	"eventdesk/internal/participant"
	"eventdesk/internal/program"
)

type issueRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	ProgramID     string `json:"program_id" binding:"required"`
	Type          string `json:"certificate_type" binding:"required"`
	TemplateID    string `json:"template_id" binding:"required"`
	DesignID      string `json:"design_id" binding:"required"`
}

// IssueCertificate issues and delivers a single certificate.
func (h *Handler) IssueCertificate(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cert, err := h.certificates.Issue(c.Request.Context(),
		req.ParticipantID, req.ProgramID, req.Type, req.TemplateID, req.DesignID)
	switch {
	case errors.Is(err, certificate.ErrAlreadyIssued):
		h.fail(c, http.StatusConflict, "certificate_already_issued")
	case errors.Is(err, certificate.ErrTemplateInvalid):
		h.fail(c, http.StatusUnprocessableEntity, "certificate_template_invalid")
	case errors.Is(err, certificate.ErrInvalidType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, certificate.ErrProgramInactive):
		h.fail(c, http.StatusUnprocessableEntity, "program_inactive")
	case errors.Is(err, participant.ErrNotFound):
		h.fail(c, http.StatusNotFound, "participant_not_found")
	case errors.Is(err, program.ErrNotFound):
		h.fail(c, http.StatusNotFound, "program_not_found")
	case errors.Is(err, certificate.ErrDeliveryFailed):
		// The row is kept in ERROR for a later retry.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "certificate": cert})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, cert)
	}
}

type bulkIssueRequest struct {
	ParticipantIDs []string `json:"participant_ids" binding:"required"`
	ProgramID      string   `json:"program_id" binding:"required"`
	Type           string   `json:"certificate_type" binding:"required"`
	TemplateID     string   `json:"template_id" binding:"required"`
	DesignID       string   `json:"design_id" binding:"required"`
}

// IssueCertificatesBulk issues sequentially; partial failure is reported, not
// rolled back.
func (h *Handler) IssueCertificatesBulk(c *gin.Context) {
	var req bulkIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sum := h.certificates.IssueBulk(c.Request.Context(),
		req.ParticipantIDs, req.ProgramID, req.Type, req.TemplateID, req.DesignID)
	c.JSON(http.StatusOK, sum)
}

// ListCertificates lists certificates with optional filters.
func (h *Handler) ListCertificates(c *gin.Context) {
	limit, offset := pageParams(c)
	res, err := h.certificates.List(c.Request.Context(),
		c.Query("participant_id"), c.Query("program_id"), c.Query("status"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificates": res})
}

// VerifyCertificate is the public lookup by certificate number.
func (h *Handler) VerifyCertificate(c *gin.Context) {
	v, err := h.certificates.Verify(c.Request.Context(), c.Param("number"))
	if err != nil {
		if errors.Is(err, certificate.ErrNotFound) {
			h.fail(c, http.StatusNotFound, "certificate_not_found")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, v)
}

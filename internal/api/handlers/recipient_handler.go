package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/groupe-jds/doku-seal/internal/services"
	"github.com/groupe-jds/doku-seal/internal/tracing"
)

// RecipientService manages recipients of draft envelopes
type RecipientService interface {
	Add(ctx context.Context, owner models.Owner, envelopeID string, in services.RecipientInput) (*models.Recipient, error)
	Update(ctx context.Context, owner models.Owner, id string, in services.UpdateRecipientInput) (*models.Recipient, error)
	Remove(ctx context.Context, owner models.Owner, id string) error
}

// RecipientHandler handles recipient-related HTTP requests
type RecipientHandler struct {
	recipients RecipientService
	tracer     tracing.Tracer
}

// NewRecipientHandler creates a new recipient handler
func NewRecipientHandler(recipients RecipientService, tracer tracing.Tracer) *RecipientHandler {
	return &RecipientHandler{
		recipients: recipients,
		tracer:     tracer,
	}
}

// RegisterRoutes registers the handler's routes
func (h *RecipientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	recipients := rg.Group("/recipients")
	recipients.POST("", h.Add)
	recipients.PUT("/:id", h.Update)
	recipients.PATCH("/:id", h.Update)
	recipients.DELETE("/:id", h.Remove)
}

// Add handles POST /recipients
func (h *RecipientHandler) Add(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	var req addRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	recipient, err := h.recipients.Add(c.Request.Context(), owner, req.EnvelopeID, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipient)
}

// Update handles PUT and PATCH /recipients/:id
func (h *RecipientHandler) Update(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	var req updateRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	recipient, err := h.recipients.Update(c.Request.Context(), owner, c.Param("id"), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recipient)
}

// Remove handles DELETE /recipients/:id
func (h *RecipientHandler) Remove(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	if err := h.recipients.Remove(c.Request.Context(), owner, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Recipient deleted successfully"})
}

func (h *RecipientHandler) fail(c *gin.Context, err error) {
	h.tracer.RecordError(c.Request.Context(), err)
	writeError(c, err)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/groupe-jds/doku-seal/internal/services"
	"github.com/groupe-jds/doku-seal/internal/tracing"
)

// FieldService manages fields of draft envelopes
type FieldService interface {
	Add(ctx context.Context, owner models.Owner, in services.AddFieldInput) (*models.Field, error)
	Update(ctx context.Context, owner models.Owner, id string, in services.UpdateFieldInput) (*models.Field, error)
	Remove(ctx context.Context, owner models.Owner, id string) error
}

// FieldHandler handles field-related HTTP requests
type FieldHandler struct {
	fields FieldService
	tracer tracing.Tracer
}

// NewFieldHandler creates a new field handler
func NewFieldHandler(fields FieldService, tracer tracing.Tracer) *FieldHandler {
	return &FieldHandler{
		fields: fields,
		tracer: tracer,
	}
}

// RegisterRoutes registers the handler's routes
func (h *FieldHandler) RegisterRoutes(rg *gin.RouterGroup) {
	fields := rg.Group("/fields")
	fields.POST("", h.Add)
	fields.PUT("/:id", h.Update)
	fields.PATCH("/:id", h.Update)
	fields.DELETE("/:id", h.Remove)
}

// Add handles POST /fields
func (h *FieldHandler) Add(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	var req addFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	field, err := h.fields.Add(c.Request.Context(), owner, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, field)
}

// Update handles PUT and PATCH /fields/:id
func (h *FieldHandler) Update(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	var req updateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	field, err := h.fields.Update(c.Request.Context(), owner, c.Param("id"), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, field)
}

// Remove handles DELETE /fields/:id
func (h *FieldHandler) Remove(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	if err := h.fields.Remove(c.Request.Context(), owner, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Field deleted successfully"})
}

func (h *FieldHandler) fail(c *gin.Context, err error) {
	h.tracer.RecordError(c.Request.Context(), err)
	writeError(c, err)
}

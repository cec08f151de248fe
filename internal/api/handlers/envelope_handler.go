package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/groupe-jds/doku-seal/internal/api/middleware"
	"github.com/groupe-jds/doku-seal/internal/cache"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/groupe-jds/doku-seal/internal/services"
	"github.com/groupe-jds/doku-seal/internal/tracing"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// IdempotencyKeyHeader lets clients retry envelope creation safely
const IdempotencyKeyHeader = "Idempotency-Key"

// EnvelopeService is the envelope lifecycle used by the handler
type EnvelopeService interface {
	Create(ctx context.Context, owner models.Owner, in services.CreateEnvelopeInput) (*models.Envelope, error)
	List(ctx context.Context, owner models.Owner, in services.ListEnvelopesInput) (*services.EnvelopePage, error)
	Get(ctx context.Context, owner models.Owner, id string) (*models.Envelope, error)
	Update(ctx context.Context, owner models.Owner, id string, in services.UpdateEnvelopeInput) (*models.Envelope, error)
	Remove(ctx context.Context, owner models.Owner, id string) error
	Send(ctx context.Context, owner models.Owner, id string) (*models.Envelope, error)
	Resend(ctx context.Context, owner models.Owner, id string, recipientIDs []string) ([]models.Recipient, error)
	UploadDocument(ctx context.Context, owner models.Owner, id, title string, content []byte) (*models.EnvelopeItem, error)
}

// IdempotencyStore keeps responses of requests that carried an Idempotency-Key
type IdempotencyStore interface {
	Lookup(ctx context.Context, key cache.IdempotencyKey) (*cache.IdempotencyRecord, bool, error)
	Save(ctx context.Context, key cache.IdempotencyKey, record cache.IdempotencyRecord) error
}

// Pagination describes the page returned by a listing
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// ListEnvelopesResponse is one page of envelopes
type ListEnvelopesResponse struct {
	Data       []models.Envelope `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

// ResendResponse lists the recipients notified again
type ResendResponse struct {
	Recipients []models.Recipient `json:"recipients"`
}

// MessageResponse is a plain confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// EnvelopeHandler handles envelope-related HTTP requests
type EnvelopeHandler struct {
	envelopes      EnvelopeService
	idempotency    IdempotencyStore
	maxUploadBytes int64
	tracer         tracing.Tracer
}

// NewEnvelopeHandler creates a new envelope handler. idempotency may be nil.
func NewEnvelopeHandler(envelopes EnvelopeService, idempotency IdempotencyStore, maxUploadBytes int64, tracer tracing.Tracer) *EnvelopeHandler {
	return &EnvelopeHandler{
		envelopes:      envelopes,
		idempotency:    idempotency,
		maxUploadBytes: maxUploadBytes,
		tracer:         tracer,
	}
}

// RegisterRoutes registers the handler's routes
func (h *EnvelopeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	envelopes := rg.Group("/envelopes")
	envelopes.POST("", h.Create)
	envelopes.GET("", h.List)
	envelopes.GET("/:id", h.Get)
	envelopes.PUT("/:id", h.Update)
	envelopes.PATCH("/:id", h.Update)
	envelopes.DELETE("/:id", h.Remove)
	envelopes.POST("/:id/send", h.Send)
	envelopes.POST("/:id/resend", h.Resend)
	envelopes.POST("/:id/document", h.UploadDocument)
}

// Create handles POST /envelopes
func (h *EnvelopeHandler) Create(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	var req createEnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	key, replayable := h.idempotencyKey(c, owner, "envelopes.create")
	if replayable && h.replay(c, key) {
		return
	}

	env, err := h.envelopes.Create(c.Request.Context(), owner, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}

	if replayable {
		h.remember(c, key, http.StatusCreated, env)
	}
	c.JSON(http.StatusCreated, env)
}

// List handles GET /envelopes
func (h *EnvelopeHandler) List(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	var query listEnvelopesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		writeError(c, bindError(err))
		return
	}

	page, err := h.envelopes.List(c.Request.Context(), owner, query.input())
	if err != nil {
		h.fail(c, err)
		return
	}

	data := page.Envelopes
	if data == nil {
		data = []models.Envelope{}
	}
	c.JSON(http.StatusOK, ListEnvelopesResponse{
		Data: data,
		Pagination: Pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

// Get handles GET /envelopes/:id
func (h *EnvelopeHandler) Get(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	env, err := h.envelopes.Get(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

// Update handles PUT and PATCH /envelopes/:id
func (h *EnvelopeHandler) Update(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	var req updateEnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	env, err := h.envelopes.Update(c.Request.Context(), owner, c.Param("id"), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

// Remove handles DELETE /envelopes/:id
func (h *EnvelopeHandler) Remove(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	if err := h.envelopes.Remove(c.Request.Context(), owner, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Envelope deleted successfully"})
}

// Send handles POST /envelopes/:id/send
func (h *EnvelopeHandler) Send(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	h.tracer.AddAttribute(c.Request.Context(), "envelope_id", c.Param("id"))
	env, err := h.envelopes.Send(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

// Resend handles POST /envelopes/:id/resend
func (h *EnvelopeHandler) Resend(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	var req resendEnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	notified, err := h.envelopes.Resend(c.Request.Context(), owner, c.Param("id"), req.RecipientIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ResendResponse{Recipients: notified})
}

// UploadDocument handles POST /envelopes/:id/document with a multipart "file"
func (h *EnvelopeHandler) UploadDocument(c *gin.Context) {
	owner, ok := ownerOf(c)
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, NewValidationError("Document exceeds the maximum upload size", nil))
			return
		}
		writeError(c, NewValidationError("Document file is required", nil))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.fail(c, errors.Wrap(err, "failed to open uploaded document"))
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, errors.Wrap(err, "failed to read uploaded document"))
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = fh.Filename
	}

	item, err := h.envelopes.UploadDocument(c.Request.Context(), owner, c.Param("id"), title, content)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *EnvelopeHandler) fail(c *gin.Context, err error) {
	h.tracer.RecordError(c.Request.Context(), err)
	writeError(c, err)
}

func (h *EnvelopeHandler) idempotencyKey(c *gin.Context, owner models.Owner, endpoint string) (cache.IdempotencyKey, bool) {
	raw := c.GetHeader(IdempotencyKeyHeader)
	if h.idempotency == nil || raw == "" || len(raw) > 255 {
		return cache.IdempotencyKey{}, false
	}
	return cache.IdempotencyKey{
		UserID:   owner.UserID,
		TeamID:   owner.TeamID,
		Endpoint: endpoint,
		Key:      raw,
	}, true
}

// replay writes a stored response and reports whether one existed
func (h *EnvelopeHandler) replay(c *gin.Context, key cache.IdempotencyKey) bool {
	record, found, err := h.idempotency.Lookup(c.Request.Context(), key)
	if err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("Failed to look up idempotency key")
		return false
	}
	if !found {
		return false
	}

	c.Header("Idempotent-Replayed", "true")
	c.Data(record.Status, "application/json; charset=utf-8", record.Body)
	return true
}

func (h *EnvelopeHandler) remember(c *gin.Context, key cache.IdempotencyKey, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode response for idempotency store")
		return
	}
	if err := h.idempotency.Save(c.Request.Context(), key, cache.IdempotencyRecord{Status: status, Body: data}); err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("Failed to store idempotency key")
	}
}

func ownerOf(c *gin.Context) (models.Owner, bool) {
	owner, ok := middleware.OwnerFrom(c)
	if !ok {
		writeError(c, ErrUnauthorized)
	}
	return owner, ok
}

package handlers

import (
	"io"
	"net/http"
	"testing"

	"github.com/groupe-jds/doku-seal/internal/services"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestToAPIError(t *testing.T) {
	apiErr := NewValidationError("Document file is required", nil)
	assert.Same(t, apiErr, toAPIError(errors.Wrap(apiErr, "upload")))
	assert.Same(t, ErrInternalError, toAPIError(errors.New("boom")))

	wrapped := errors.Wrap(&services.Error{Kind: services.ErrNotFound, Message: "Field not found"}, "lookup")
	got := toAPIError(wrapped)
	assert.Equal(t, http.StatusNotFound, got.StatusCode)
	assert.Equal(t, "Field not found", got.Message)
}

func TestBindErrorFallbacks(t *testing.T) {
	assert.Equal(t, "Request body is required", bindError(io.EOF).Message)
	assert.Same(t, ErrBadRequest, bindError(io.ErrUnexpectedEOF))
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "recipients[0].email", fieldPath("createEnvelopeRequest.recipients[0].email"))
	assert.Equal(t, "title", fieldPath("title"))
}

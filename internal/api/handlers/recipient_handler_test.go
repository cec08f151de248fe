package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/groupe-jds/doku-seal/internal/services"
	"github.com/groupe-jds/doku-seal/internal/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func recipientRouter(t *testing.T, svc RecipientService) *gin.Engine {
	return newTestRouter(t, func(rg *gin.RouterGroup) {
		NewRecipientHandler(svc, tracing.Disabled()).RegisterRoutes(rg)
	})
}

func TestAddRecipient(t *testing.T) {
	svc := new(MockRecipientService)
	r := recipientRouter(t, svc)

	svc.On("Add", mock.Anything, owner, "env-1", services.RecipientInput{
		Email: "c@x.com", Name: "C", Role: models.RoleApprover,
	}).Return(&models.Recipient{ID: "r-3", EnvelopeID: "env-1", Email: "c@x.com"}, nil)

	w := doRequest(r, http.MethodPost, "/api/v1/recipients", map[string]string{
		"envelopeId": "env-1", "email": "c@x.com", "name": "C", "role": "APPROVER",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"r-3"`)
	assert.NotContains(t, w.Body.String(), "token")

	w = doRequest(r, http.MethodPost, "/api/v1/recipients", map[string]string{"email": "c@x.com", "name": "C"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "envelopeId", body.Details.([]interface{})[0].(map[string]interface{})["field"])
}

func TestUpdateRecipient(t *testing.T) {
	svc := new(MockRecipientService)
	r := recipientRouter(t, svc)

	role := models.RoleCC
	svc.On("Update", mock.Anything, owner, "r-1", services.UpdateRecipientInput{Name: strPtr("Alice"), Role: &role}).
		Return(&models.Recipient{ID: "r-1", Name: "Alice", Role: models.RoleCC}, nil)
	svc.On("Update", mock.Anything, owner, "r-2", mock.Anything).
		Return(nil, &services.Error{Kind: services.ErrForbidden, Message: "Cannot update recipient of envelope that has been sent"})

	w := doRequest(r, http.MethodPatch, "/api/v1/recipients/r-1", map[string]string{"name": "Alice", "role": "CC"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodPut, "/api/v1/recipients/r-2", map[string]string{"name": "Late"}, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, w).Code)

	w = doRequest(r, http.MethodPut, "/api/v1/recipients/r-1", map[string]string{"role": "BOSS"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPatch, "/api/v1/recipients/r-1", map[string]string{"name": ""}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)
	svc.AssertNumberOfCalls(t, "Update", 2)
}

func TestRemoveRecipient(t *testing.T) {
	svc := new(MockRecipientService)
	r := recipientRouter(t, svc)

	svc.On("Remove", mock.Anything, owner, "r-1").Return(nil)
	svc.On("Remove", mock.Anything, owner, "r-2").
		Return(&services.Error{Kind: services.ErrForbidden, Message: "Recipient has fields assigned"})

	w := doRequest(r, http.MethodDelete, "/api/v1/recipients/r-1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Recipient deleted successfully"}`, w.Body.String())

	w = doRequest(r, http.MethodDelete, "/api/v1/recipients/r-2", nil, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Recipient has fields assigned", decodeError(t, w).Message)
}

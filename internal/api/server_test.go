package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/groupe-jds/doku-seal/config"
	"github.com/groupe-jds/doku-seal/internal/api/handlers"
	"github.com/groupe-jds/doku-seal/internal/api/middleware"
	"github.com/groupe-jds/doku-seal/internal/metrics"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/groupe-jds/doku-seal/internal/services"
	"github.com/groupe-jds/doku-seal/internal/testutil"
	"github.com/groupe-jds/doku-seal/internal/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type client struct {
	t      *testing.T
	h      http.Handler
	userID string
	teamID string
}

func (c client) do(method, path string, body interface{}, out interface{}) int {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.userID != "" {
		req.Header.Set(middleware.UserIDHeader, c.userID)
	}
	if c.teamID != "" {
		req.Header.Set(middleware.TeamIDHeader, c.teamID)
	}

	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	db := testutil.NewDB(t)
	repos := services.NewGormRepositories(db)
	m := metrics.NewMetrics()
	tracer := tracing.Disabled()

	server, err := NewServer(config.ServerConfig{Address: ":0", MaxUploadBytes: 1 << 20}, Dependencies{
		Envelopes:  services.NewEnvelopeService(repos, nil, nil, m, tracer),
		Recipients: services.NewRecipientService(repos, services.RemovalReject, m, tracer),
		Fields:     services.NewFieldService(repos, m, tracer),
		Metrics:    m,
		HealthChecks: map[string]handlers.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
		Tracer: tracer,
	})
	require.NoError(t, err)
	return server.Handler()
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestEnvelopeLifecycleOverHTTP(t *testing.T) {
	h := newTestServer(t)
	alice := client{t: t, h: h, userID: "1", teamID: "10"}
	mallory := client{t: t, h: h, userID: "2", teamID: "20"}

	var env models.Envelope
	status := alice.do(http.MethodPost, "/api/v1/envelopes", map[string]interface{}{
		"title":        "NDA",
		"signingOrder": "SEQUENTIAL",
		"recipients": []map[string]string{
			{"email": "a@x.com", "name": "A"},
			{"email": "b@x.com", "name": "B"},
		},
	}, &env)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, env.Recipients, 2)
	require.NotNil(t, env.Recipients[1].SigningOrder)
	assert.Equal(t, 2, *env.Recipients[1].SigningOrder)

	var errResp errorBody
	require.Equal(t, http.StatusForbidden, alice.do(http.MethodPost, "/api/v1/envelopes/"+env.ID+"/send", nil, &errResp))
	assert.Equal(t, "Envelope must have at least one field", errResp.Error.Message)

	var field models.Field
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/api/v1/fields", map[string]interface{}{
		"envelopeId": env.ID, "recipientId": env.Recipients[0].ID, "type": "SIGNATURE",
		"pageNumber": 1, "pageX": 0.1, "pageY": 0.8, "pageWidth": 0.2, "pageHeight": 0.05,
	}, &field))
	assert.True(t, field.Required)

	require.Equal(t, http.StatusNotFound, mallory.do(http.MethodPost, "/api/v1/envelopes/"+env.ID+"/send", nil, &errResp))
	assert.Equal(t, "NOT_FOUND", errResp.Error.Code)

	var sent models.Envelope
	require.Equal(t, http.StatusOK, alice.do(http.MethodPost, "/api/v1/envelopes/"+env.ID+"/send", nil, &sent))
	assert.Equal(t, models.StatusPending, sent.Status)

	require.Equal(t, http.StatusForbidden, alice.do(http.MethodPatch, "/api/v1/envelopes/"+env.ID, map[string]string{"title": "Changed"}, &errResp))
	assert.Equal(t, "FORBIDDEN", errResp.Error.Code)

	var page handlers.ListEnvelopesResponse
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/api/v1/envelopes?status=PENDING", nil, &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.Pagination.Total)
	require.NotNil(t, page.Data[0].FieldCount)
	assert.Equal(t, int64(1), *page.Data[0].FieldCount)

	require.Equal(t, http.StatusOK, alice.do(http.MethodDelete, "/api/v1/envelopes/"+env.ID, nil, nil))
	require.Equal(t, http.StatusNotFound, alice.do(http.MethodDelete, "/api/v1/envelopes/"+env.ID, nil, &errResp))
	assert.Equal(t, "Envelope not found", errResp.Error.Message)
}

func TestRequestsWithoutIdentityAreRejected(t *testing.T) {
	h := newTestServer(t)
	anonymous := client{t: t, h: h}

	var errResp errorBody
	require.Equal(t, http.StatusUnauthorized, anonymous.do(http.MethodGet, "/api/v1/envelopes", nil, &errResp))
	assert.Equal(t, "UNAUTHORIZED", errResp.Error.Code)

	userOnly := client{t: t, h: h, userID: "1"}
	require.Equal(t, http.StatusUnauthorized, userOnly.do(http.MethodGet, "/api/v1/envelopes", nil, nil))
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t)

	var body struct {
		Status  string          `json:"status"`
		Details map[string]bool `json:"details"`
	}
	require.Equal(t, http.StatusOK, client{t: t, h: h}.do(http.MethodGet, "/health", nil, &body))
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.Details["database"])
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/groupe-jds/doku-seal/internal/api/middleware"
	"github.com/groupe-jds/doku-seal/internal/cache"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/groupe-jds/doku-seal/internal/services"
	"github.com/groupe-jds/doku-seal/internal/tracing"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var owner = models.Owner{UserID: 7, TeamID: 3}

func init() {
	gin.SetMode(gin.TestMode)
}

// MockEnvelopeService is a mock implementation of EnvelopeService
type MockEnvelopeService struct {
	mock.Mock
}

func (m *MockEnvelopeService) Create(ctx context.Context, owner models.Owner, in services.CreateEnvelopeInput) (*models.Envelope, error) {
	args := m.Called(ctx, owner, in)
	env, _ := args.Get(0).(*models.Envelope)
	return env, args.Error(1)
}

func (m *MockEnvelopeService) List(ctx context.Context, owner models.Owner, in services.ListEnvelopesInput) (*services.EnvelopePage, error) {
	args := m.Called(ctx, owner, in)
	page, _ := args.Get(0).(*services.EnvelopePage)
	return page, args.Error(1)
}

func (m *MockEnvelopeService) Get(ctx context.Context, owner models.Owner, id string) (*models.Envelope, error) {
	args := m.Called(ctx, owner, id)
	env, _ := args.Get(0).(*models.Envelope)
	return env, args.Error(1)
}

func (m *MockEnvelopeService) Update(ctx context.Context, owner models.Owner, id string, in services.UpdateEnvelopeInput) (*models.Envelope, error) {
	args := m.Called(ctx, owner, id, in)
	env, _ := args.Get(0).(*models.Envelope)
	return env, args.Error(1)
}

func (m *MockEnvelopeService) Remove(ctx context.Context, owner models.Owner, id string) error {
	args := m.Called(ctx, owner, id)
	return args.Error(0)
}

func (m *MockEnvelopeService) Send(ctx context.Context, owner models.Owner, id string) (*models.Envelope, error) {
	args := m.Called(ctx, owner, id)
	env, _ := args.Get(0).(*models.Envelope)
	return env, args.Error(1)
}

func (m *MockEnvelopeService) Resend(ctx context.Context, owner models.Owner, id string, recipientIDs []string) ([]models.Recipient, error) {
	args := m.Called(ctx, owner, id, recipientIDs)
	recipients, _ := args.Get(0).([]models.Recipient)
	return recipients, args.Error(1)
}

func (m *MockEnvelopeService) UploadDocument(ctx context.Context, owner models.Owner, id, title string, content []byte) (*models.EnvelopeItem, error) {
	args := m.Called(ctx, owner, id, title, content)
	item, _ := args.Get(0).(*models.EnvelopeItem)
	return item, args.Error(1)
}

// MockRecipientService is a mock implementation of RecipientService
type MockRecipientService struct {
	mock.Mock
}

func (m *MockRecipientService) Add(ctx context.Context, owner models.Owner, envelopeID string, in services.RecipientInput) (*models.Recipient, error) {
	args := m.Called(ctx, owner, envelopeID, in)
	r, _ := args.Get(0).(*models.Recipient)
	return r, args.Error(1)
}

func (m *MockRecipientService) Update(ctx context.Context, owner models.Owner, id string, in services.UpdateRecipientInput) (*models.Recipient, error) {
	args := m.Called(ctx, owner, id, in)
	r, _ := args.Get(0).(*models.Recipient)
	return r, args.Error(1)
}

func (m *MockRecipientService) Remove(ctx context.Context, owner models.Owner, id string) error {
	args := m.Called(ctx, owner, id)
	return args.Error(0)
}

// MockFieldService is a mock implementation of FieldService
type MockFieldService struct {
	mock.Mock
}

func (m *MockFieldService) Add(ctx context.Context, owner models.Owner, in services.AddFieldInput) (*models.Field, error) {
	args := m.Called(ctx, owner, in)
	f, _ := args.Get(0).(*models.Field)
	return f, args.Error(1)
}

func (m *MockFieldService) Update(ctx context.Context, owner models.Owner, id string, in services.UpdateFieldInput) (*models.Field, error) {
	args := m.Called(ctx, owner, id, in)
	f, _ := args.Get(0).(*models.Field)
	return f, args.Error(1)
}

func (m *MockFieldService) Remove(ctx context.Context, owner models.Owner, id string) error {
	args := m.Called(ctx, owner, id)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Lookup(ctx context.Context, key cache.IdempotencyKey) (*cache.IdempotencyRecord, bool, error) {
	args := m.Called(ctx, key)
	record, _ := args.Get(0).(*cache.IdempotencyRecord)
	return record, args.Bool(1), args.Error(2)
}

func (m *MockIdempotencyStore) Save(ctx context.Context, key cache.IdempotencyKey, record cache.IdempotencyRecord) error {
	args := m.Called(ctx, key, record)
	return args.Error(0)
}

func newTestRouter(t *testing.T, register func(rg *gin.RouterGroup)) *gin.Engine {
	t.Helper()
	require.NoError(t, RegisterValidations())

	r := gin.New()
	register(r.Group("/api/v1", middleware.Identity()))
	return r
}

func envelopeRouter(t *testing.T, svc EnvelopeService, idem IdempotencyStore, maxUpload int64) *gin.Engine {
	return newTestRouter(t, func(rg *gin.RouterGroup) {
		NewEnvelopeHandler(svc, idem, maxUpload, tracing.Disabled()).RegisterRoutes(rg)
	})
}

func doRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserIDHeader, "7")
	req.Header.Set(middleware.TeamIDHeader, "3")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func strPtr(s string) *string { return &s }

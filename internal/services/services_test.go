package services

import (
	"context"
	"testing"

	"github.com/groupe-jds/doku-seal/internal/metrics"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/groupe-jds/doku-seal/internal/testutil"
	"github.com/groupe-jds/doku-seal/internal/tracing"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	alice = models.Owner{UserID: 1, TeamID: 10}
	bob   = models.Owner{UserID: 2, TeamID: 20}
)

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyRecipients(ctx context.Context, envelope *models.Envelope, recipients []models.Recipient) error {
	args := m.Called(ctx, envelope, recipients)
	return args.Error(0)
}

// MockIndexer is a mock implementation of Indexer
type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexEnvelope(ctx context.Context, envelope *models.Envelope) error {
	args := m.Called(ctx, envelope)
	return args.Error(0)
}

func (m *MockIndexer) DeleteEnvelope(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type fixture struct {
	db         *gorm.DB
	repos      Repositories
	metrics    *metrics.Metrics
	envelopes  *EnvelopeService
	recipients *RecipientService
	fields     *FieldService
}

func newFixture(t *testing.T, notifier Notifier, indexer Indexer) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	repos := NewGormRepositories(db)
	m := metrics.NewMetrics()
	tracer := tracing.Disabled()

	return &fixture{
		db:         db,
		repos:      repos,
		metrics:    m,
		envelopes:  NewEnvelopeService(repos, notifier, indexer, m, tracer),
		recipients: NewRecipientService(repos, RemovalReject, m, tracer),
		fields:     NewFieldService(repos, m, tracer),
	}
}

func (f *fixture) createNDA(t *testing.T, order models.SigningOrder) *models.Envelope {
	t.Helper()

	env, err := f.envelopes.Create(context.Background(), alice, CreateEnvelopeInput{
		Title:        "NDA",
		SigningOrder: order,
		Recipients: []RecipientInput{
			{Email: "a@x.com", Name: "A"},
			{Email: "b@x.com", Name: "B"},
		},
	})
	require.NoError(t, err)
	return env
}

func (f *fixture) addSignature(t *testing.T, env *models.Envelope, recipientID string) *models.Field {
	t.Helper()

	field, err := f.fields.Add(context.Background(), alice, AddFieldInput{
		EnvelopeID:  env.ID,
		RecipientID: recipientID,
		Type:        models.FieldSignature,
		PageNumber:  1,
		PageX:       0.1,
		PageY:       0.8,
		PageWidth:   0.2,
		PageHeight:  0.05,
	})
	require.NoError(t, err)
	return field
}

func assertKind(t *testing.T, err error, kind error, message string) {
	t.Helper()

	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "unexpected error kind: %v", err)
	var svcErr *Error
	require.True(t, errors.As(err, &svcErr))
	if message != "" {
		assert.Equal(t, message, svcErr.Message)
	}
}

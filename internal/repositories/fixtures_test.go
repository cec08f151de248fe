package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	alice = models.Owner{UserID: 1, TeamID: 10}
	bob   = models.Owner{UserID: 2, TeamID: 20}
)

type envelopeOption func(*models.Envelope)

func withStatus(s models.EnvelopeStatus) envelopeOption {
	return func(e *models.Envelope) { e.Status = s }
}

func withCreatedAt(t time.Time) envelopeOption {
	return func(e *models.Envelope) {
		e.CreatedAt = t
		e.UpdatedAt = t
	}
}

func withFolder(id string) envelopeOption {
	return func(e *models.Envelope) { e.FolderID = &id }
}

func withRecipient(email, name string, position *int) envelopeOption {
	return func(e *models.Envelope) {
		e.Recipients = append(e.Recipients, models.Recipient{
			ID:           uuid.NewString(),
			EnvelopeID:   e.ID,
			Email:        email,
			Name:         name,
			Role:         models.RoleSigner,
			SigningOrder: position,
			Token:        uuid.NewString(),
		})
	}
}

func intPtr(v int) *int { return &v }

func createEnvelope(t *testing.T, db *gorm.DB, owner models.Owner, title string, opts ...envelopeOption) *models.Envelope {
	t.Helper()

	id := uuid.NewString()
	env := &models.Envelope{
		ID:          id,
		SecondaryID: uuid.NewString(),
		Title:       title,
		Status:      models.StatusDraft,
		Visibility:  models.VisibilityEveryone,
		UserID:      owner.UserID,
		TeamID:      owner.TeamID,
		DocumentMeta: &models.DocumentMeta{
			ID:                 uuid.NewString(),
			EnvelopeID:         id,
			SigningOrder:       models.SigningOrderParallel,
			DistributionMethod: models.DistributionEmail,
		},
	}
	for _, opt := range opts {
		opt(env)
	}

	require.NoError(t, NewEnvelopeRepository(db).Create(context.Background(), env))
	return env
}

func createField(t *testing.T, db *gorm.DB, envelopeID, recipientID string) *models.Field {
	t.Helper()

	field := &models.Field{
		ID:          uuid.NewString(),
		EnvelopeID:  envelopeID,
		RecipientID: recipientID,
		Type:        models.FieldSignature,
		PageNumber:  1,
		PageX:       0.1,
		PageY:       0.2,
		PageWidth:   0.3,
		PageHeight:  0.05,
		Required:    true,
	}
	require.NoError(t, NewFieldRepository(db).Create(context.Background(), field))
	return field
}

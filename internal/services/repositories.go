package services

import (
	"context"

	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/groupe-jds/doku-seal/internal/repositories"
	"gorm.io/gorm"
)

// TxRunner runs a function inside a store transaction bound to the context it receives
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EnvelopeRepository is the envelope store used by the services
type EnvelopeRepository interface {
	Create(ctx context.Context, envelope *models.Envelope) error
	FindOwned(ctx context.Context, owner models.Owner, id string) (*models.Envelope, error)
	LockOwned(ctx context.Context, owner models.Owner, id string) (*models.Envelope, error)
	UpdateDraft(ctx context.Context, owner models.Owner, id string, updates map[string]interface{}) error
	TransitionStatus(ctx context.Context, owner models.Owner, id string, from, to models.EnvelopeStatus) error
	SoftDelete(ctx context.Context, owner models.Owner, id string) error
	UpdateMeta(ctx context.Context, envelopeID string, updates map[string]interface{}) error
	Touch(ctx context.Context, id string) error
	List(ctx context.Context, owner models.Owner, filter repositories.ListFilter) ([]models.Envelope, int64, error)
	ListChangedAfter(ctx context.Context, after repositories.SyncCursor, limit int) ([]models.Envelope, error)
}

// RecipientRepository is the recipient store used by the services
type RecipientRepository interface {
	Create(ctx context.Context, recipient *models.Recipient) error
	CountByEnvelope(ctx context.Context, envelopeID string) (int64, error)
	FindOwned(ctx context.Context, owner models.Owner, id string) (*models.Recipient, error)
	FindInEnvelope(ctx context.Context, envelopeID, id string) (*models.Recipient, error)
	ListByEnvelope(ctx context.Context, envelopeID string) ([]models.Recipient, error)
	ListByIDs(ctx context.Context, envelopeID string, ids []string) ([]models.Recipient, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// FieldRepository is the field store used by the services
type FieldRepository interface {
	Create(ctx context.Context, field *models.Field) error
	FindOwned(ctx context.Context, owner models.Owner, id string) (*models.Field, error)
	Get(ctx context.Context, id string) (*models.Field, error)
	CountByEnvelope(ctx context.Context, envelopeID string) (int64, error)
	CountByRecipient(ctx context.Context, recipientID string) (int64, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	DeleteByRecipient(ctx context.Context, recipientID string) (int64, error)
}

// DocumentRepository is the document store used by the services
type DocumentRepository interface {
	CreateItem(ctx context.Context, data *models.DocumentData, item *models.EnvelopeItem) error
	CountItems(ctx context.Context, envelopeID string) (int64, error)
	FirstItem(ctx context.Context, envelopeID string) (*models.EnvelopeItem, error)
}

// Repositories groups the store collaborators shared by the services
type Repositories struct {
	Tx         TxRunner
	Envelopes  EnvelopeRepository
	Recipients RecipientRepository
	Fields     FieldRepository
	Documents  DocumentRepository
}

// NewGormRepositories wires the gorm backed repositories onto db
func NewGormRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Tx:         repositories.NewTxManager(db),
		Envelopes:  repositories.NewEnvelopeRepository(db),
		Recipients: repositories.NewRecipientRepository(db),
		Fields:     repositories.NewFieldRepository(db),
		Documents:  repositories.NewDocumentRepository(db),
	}
}

// Notifier hands recipients of an envelope to the notification pipeline.
// Implementations must not block on delivery.
type Notifier interface {
	NotifyRecipients(ctx context.Context, envelope *models.Envelope, recipients []models.Recipient) error
}

// Indexer mirrors envelopes into the search index
type Indexer interface {
	IndexEnvelope(ctx context.Context, envelope *models.Envelope) error
	DeleteEnvelope(ctx context.Context, id string) error
}

package repositories

import (
	"context"

	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// RecipientRepository provides access to envelope recipients
type RecipientRepository struct {
	db *gorm.DB
}

// NewRecipientRepository creates a new recipient repository
func NewRecipientRepository(db *gorm.DB) *RecipientRepository {
	return &RecipientRepository{db: db}
}

// Create inserts a recipient
func (r *RecipientRepository) Create(ctx context.Context, recipient *models.Recipient) error {
	if err := conn(ctx, r.db).Create(recipient).Error; err != nil {
		return errors.Wrap(err, "failed to create recipient")
	}
	return nil
}

// CountByEnvelope counts the recipients of an envelope
func (r *RecipientRepository) CountByEnvelope(ctx context.Context, envelopeID string) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Recipient{}).
		Where("envelope_id = ?", envelopeID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count recipients")
	}
	return count, nil
}

// FindOwned loads a recipient whose envelope is active and owned by owner
func (r *RecipientRepository) FindOwned(ctx context.Context, owner models.Owner, id string) (*models.Recipient, error) {
	var recipient models.Recipient
	err := conn(ctx, r.db).
		Joins("JOIN envelopes ON envelopes.id = recipients.envelope_id").
		Where("recipients.id = ?", id).
		Where("envelopes.user_id = ? AND envelopes.team_id = ? AND envelopes.deleted_at IS NULL",
			owner.UserID, owner.TeamID).
		First(&recipient).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to get recipient")
	}
	return &recipient, nil
}

// FindInEnvelope loads a recipient only if it belongs to the given envelope
func (r *RecipientRepository) FindInEnvelope(ctx context.Context, envelopeID, id string) (*models.Recipient, error) {
	var recipient models.Recipient
	err := conn(ctx, r.db).
		Where("id = ? AND envelope_id = ?", id, envelopeID).
		First(&recipient).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to get recipient")
	}
	return &recipient, nil
}

// ListByEnvelope returns the recipients of an envelope in signing order
func (r *RecipientRepository) ListByEnvelope(ctx context.Context, envelopeID string) ([]models.Recipient, error) {
	var recipients []models.Recipient
	err := orderRecipients(conn(ctx, r.db).Where("envelope_id = ?", envelopeID)).
		Find(&recipients).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recipients")
	}
	return recipients, nil
}

// ListByIDs returns the recipients of an envelope whose ids are in ids
func (r *RecipientRepository) ListByIDs(ctx context.Context, envelopeID string, ids []string) ([]models.Recipient, error) {
	var recipients []models.Recipient
	err := orderRecipients(conn(ctx, r.db).Where("envelope_id = ? AND id IN ?", envelopeID, ids)).
		Find(&recipients).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recipients")
	}
	return recipients, nil
}

// Update applies updates to a recipient
func (r *RecipientRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	result := conn(ctx, r.db).Model(&models.Recipient{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update recipient")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a recipient row
func (r *RecipientRepository) Delete(ctx context.Context, id string) error {
	result := conn(ctx, r.db).Where("id = ?", id).Delete(&models.Recipient{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete recipient")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

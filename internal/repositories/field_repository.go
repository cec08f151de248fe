package repositories

import (
	"context"

	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// FieldRepository provides access to envelope fields
type FieldRepository struct {
	db *gorm.DB
}

// NewFieldRepository creates a new field repository
func NewFieldRepository(db *gorm.DB) *FieldRepository {
	return &FieldRepository{db: db}
}

// Create inserts a field
func (r *FieldRepository) Create(ctx context.Context, field *models.Field) error {
	if err := conn(ctx, r.db).Omit("Recipient").Create(field).Error; err != nil {
		return errors.Wrap(err, "failed to create field")
	}
	return nil
}

// FindOwned loads a field whose envelope is active and owned by owner
func (r *FieldRepository) FindOwned(ctx context.Context, owner models.Owner, id string) (*models.Field, error) {
	var field models.Field
	err := conn(ctx, r.db).
		Joins("JOIN envelopes ON envelopes.id = fields.envelope_id").
		Where("fields.id = ?", id).
		Where("envelopes.user_id = ? AND envelopes.team_id = ? AND envelopes.deleted_at IS NULL",
			owner.UserID, owner.TeamID).
		First(&field).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to get field")
	}
	return &field, nil
}

// Get loads a field with the public identity of its recipient
func (r *FieldRepository) Get(ctx context.Context, id string) (*models.Field, error) {
	var field models.Field
	err := conn(ctx, r.db).
		Preload("Recipient", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "email", "name", "role")
		}).
		Where("id = ?", id).
		First(&field).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to get field")
	}
	return &field, nil
}

// CountByEnvelope counts the fields of an envelope
func (r *FieldRepository) CountByEnvelope(ctx context.Context, envelopeID string) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Field{}).
		Where("envelope_id = ?", envelopeID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count fields")
	}
	return count, nil
}

// CountByRecipient counts the fields assigned to a recipient
func (r *FieldRepository) CountByRecipient(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Field{}).
		Where("recipient_id = ?", recipientID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count recipient fields")
	}
	return count, nil
}

// Update applies updates to a field
func (r *FieldRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	result := conn(ctx, r.db).Model(&models.Field{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update field")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a field row
func (r *FieldRepository) Delete(ctx context.Context, id string) error {
	result := conn(ctx, r.db).Where("id = ?", id).Delete(&models.Field{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete field")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByRecipient removes every field assigned to a recipient
func (r *FieldRepository) DeleteByRecipient(ctx context.Context, recipientID string) (int64, error) {
	result := conn(ctx, r.db).Where("recipient_id = ?", recipientID).Delete(&models.Field{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete recipient fields")
	}
	return result.RowsAffected, nil
}

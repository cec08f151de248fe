package repositories

import (
	"context"

	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// DocumentRepository provides access to uploaded documents and envelope items
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateItem stores document content and links it to an envelope
func (r *DocumentRepository) CreateItem(ctx context.Context, data *models.DocumentData, item *models.EnvelopeItem) error {
	db := conn(ctx, r.db)
	if err := db.Create(data).Error; err != nil {
		return errors.Wrap(err, "failed to create document data")
	}
	item.DocumentDataID = data.ID
	if err := db.Create(item).Error; err != nil {
		return errors.Wrap(err, "failed to create envelope item")
	}
	return nil
}

// CountItems counts the documents attached to an envelope
func (r *DocumentRepository) CountItems(ctx context.Context, envelopeID string) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.EnvelopeItem{}).
		Where("envelope_id = ?", envelopeID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count envelope items")
	}
	return count, nil
}

// FirstItem returns the lowest ordered document of an envelope
func (r *DocumentRepository) FirstItem(ctx context.Context, envelopeID string) (*models.EnvelopeItem, error) {
	var item models.EnvelopeItem
	err := conn(ctx, r.db).
		Where("envelope_id = ?", envelopeID).
		Order("item_order ASC").
		First(&item).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to get envelope item")
	}
	return &item, nil
}

package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListFilter narrows an envelope listing
type ListFilter struct {
	Status   models.EnvelopeStatus
	FolderID string
	Search   string
	Page     int
	Limit    int
}

// EnvelopeRepository provides access to envelopes and their document metadata
type EnvelopeRepository struct {
	db *gorm.DB
}

// NewEnvelopeRepository creates a new envelope repository
func NewEnvelopeRepository(db *gorm.DB) *EnvelopeRepository {
	return &EnvelopeRepository{db: db}
}

// Create inserts an envelope together with its document metadata and recipients
func (r *EnvelopeRepository) Create(ctx context.Context, envelope *models.Envelope) error {
	if err := conn(ctx, r.db).Create(envelope).Error; err != nil {
		return errors.Wrap(err, "failed to create envelope")
	}
	return nil
}

// FindOwned loads an active envelope owned by owner with all of its relations
func (r *EnvelopeRepository) FindOwned(ctx context.Context, owner models.Owner, id string) (*models.Envelope, error) {
	var envelope models.Envelope
	err := owned(conn(ctx, r.db), owner, id).
		Preload("DocumentMeta").
		Preload("Recipients", orderRecipients).
		Preload("Fields", func(db *gorm.DB) *gorm.DB {
			return db.Order("fields.created_at ASC").Order("fields.id ASC")
		}).
		Preload("Fields.Recipient", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "email", "name", "role")
		}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("item_order ASC")
		}).
		First(&envelope).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to get envelope")
	}
	return &envelope, nil
}

// LockOwned loads an active envelope owned by owner and locks its row until the
// surrounding transaction ends. Document metadata is preloaded.
func (r *EnvelopeRepository) LockOwned(ctx context.Context, owner models.Owner, id string) (*models.Envelope, error) {
	var envelope models.Envelope
	err := owned(conn(ctx, r.db), owner, id).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("DocumentMeta").
		First(&envelope).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to lock envelope")
	}
	return &envelope, nil
}

// UpdateDraft applies updates to an owned envelope only while it is still a draft
func (r *EnvelopeRepository) UpdateDraft(ctx context.Context, owner models.Owner, id string, updates map[string]interface{}) error {
	values := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["updated_at"] = time.Now()

	result := owned(conn(ctx, r.db).Model(&models.Envelope{}), owner, id).
		Where("envelopes.status = ?", models.StatusDraft).
		Updates(values)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update envelope")
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// TransitionStatus moves an owned envelope from one status to another. The write
// only lands if the stored status still equals from.
func (r *EnvelopeRepository) TransitionStatus(ctx context.Context, owner models.Owner, id string, from, to models.EnvelopeStatus) error {
	result := owned(conn(ctx, r.db).Model(&models.Envelope{}), owner, id).
		Where("envelopes.status = ?", from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update envelope status")
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// SoftDelete marks an owned envelope as deleted. Deleting twice yields ErrNotFound.
func (r *EnvelopeRepository) SoftDelete(ctx context.Context, owner models.Owner, id string) error {
	now := time.Now()
	result := owned(conn(ctx, r.db).Model(&models.Envelope{}), owner, id).
		Updates(map[string]interface{}{
			"deleted_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete envelope")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Touch bumps updated_at so the search sync picks up changes to recipients and fields
func (r *EnvelopeRepository) Touch(ctx context.Context, id string) error {
	err := conn(ctx, r.db).Model(&models.Envelope{}).
		Where("envelopes.id = ?", id).
		Update("updated_at", time.Now()).Error
	if err != nil {
		return errors.Wrap(err, "failed to touch envelope")
	}
	return nil
}

// UpdateMeta applies updates to the document metadata of an envelope
func (r *EnvelopeRepository) UpdateMeta(ctx context.Context, envelopeID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	result := conn(ctx, r.db).Model(&models.DocumentMeta{}).
		Where("envelope_id = ?", envelopeID).
		Updates(updates)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update document meta")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of active envelopes owned by owner and the total number of matches
func (r *EnvelopeRepository) List(ctx context.Context, owner models.Owner, filter ListFilter) ([]models.Envelope, int64, error) {
	scoped := func() *gorm.DB {
		q := conn(ctx, r.db).Model(&models.Envelope{}).
			Where("envelopes.user_id = ? AND envelopes.team_id = ?", owner.UserID, owner.TeamID)
		if filter.Status != "" {
			q = q.Where("envelopes.status = ?", filter.Status)
		}
		if filter.FolderID != "" {
			q = q.Where("envelopes.folder_id = ?", filter.FolderID)
		}
		if filter.Search != "" {
			pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
			q = q.Where(`(LOWER(envelopes.title) LIKE ? ESCAPE '\' OR EXISTS (`+
				`SELECT 1 FROM recipients WHERE recipients.envelope_id = envelopes.id `+
				`AND (LOWER(recipients.email) LIKE ? ESCAPE '\' OR LOWER(recipients.name) LIKE ? ESCAPE '\')))`,
				pattern, pattern, pattern)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count envelopes")
	}

	var envelopes []models.Envelope
	err := scoped().
		Preload("DocumentMeta").
		Preload("Recipients", orderRecipients).
		Order("envelopes.created_at DESC").
		Order("envelopes.id DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&envelopes).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list envelopes")
	}

	if err := r.attachFieldCounts(ctx, envelopes); err != nil {
		return nil, 0, err
	}

	return envelopes, total, nil
}

// SyncCursor is a position in the (updated_at, id) order of envelope changes
type SyncCursor struct {
	UpdatedAt time.Time
	ID        string
}

// Rewind moves the cursor back by d so changes committed late are seen again
func (c SyncCursor) Rewind(d time.Duration) SyncCursor {
	if c.UpdatedAt.IsZero() || d <= 0 {
		return c
	}
	return SyncCursor{UpdatedAt: c.UpdatedAt.Add(-d)}
}

// Before reports whether c sorts before other
func (c SyncCursor) Before(other SyncCursor) bool {
	if c.UpdatedAt.Equal(other.UpdatedAt) {
		return c.ID < other.ID
	}
	return c.UpdatedAt.Before(other.UpdatedAt)
}

// ListChangedAfter returns envelopes whose (updated_at, id) sorts after the cursor,
// oldest change first. Soft deletes bump updated_at, so deleted envelopes are included.
func (r *EnvelopeRepository) ListChangedAfter(ctx context.Context, after SyncCursor, limit int) ([]models.Envelope, error) {
	var envelopes []models.Envelope
	err := conn(ctx, r.db).Unscoped().
		Where("envelopes.updated_at > ? OR (envelopes.updated_at = ? AND envelopes.id > ?)",
			after.UpdatedAt, after.UpdatedAt, after.ID).
		Preload("DocumentMeta").
		Preload("Recipients", orderRecipients).
		Order("envelopes.updated_at ASC").
		Order("envelopes.id ASC").
		Limit(limit).
		Find(&envelopes).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list changed envelopes")
	}
	return envelopes, nil
}

func (r *EnvelopeRepository) attachFieldCounts(ctx context.Context, envelopes []models.Envelope) error {
	if len(envelopes) == 0 {
		return nil
	}

	ids := make([]string, len(envelopes))
	for i := range envelopes {
		ids[i] = envelopes[i].ID
	}

	var rows []struct {
		EnvelopeID string
		Total      int64
	}
	err := conn(ctx, r.db).Model(&models.Field{}).
		Select("envelope_id, COUNT(*) AS total").
		Where("envelope_id IN ?", ids).
		Group("envelope_id").
		Scan(&rows).Error
	if err != nil {
		return errors.Wrap(err, "failed to count envelope fields")
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.EnvelopeID] = row.Total
	}
	for i := range envelopes {
		n := counts[envelopes[i].ID]
		envelopes[i].FieldCount = &n
	}
	return nil
}

func owned(db *gorm.DB, owner models.Owner, id string) *gorm.DB {
	return db.Where("envelopes.id = ? AND envelopes.user_id = ? AND envelopes.team_id = ?",
		id, owner.UserID, owner.TeamID)
}

// orderRecipients sorts by signing position with unpositioned recipients last
func orderRecipients(db *gorm.DB) *gorm.DB {
	return db.Order("recipients.signing_order IS NULL").
		Order("recipients.signing_order ASC").
		Order("recipients.created_at ASC").
		Order("recipients.id ASC")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

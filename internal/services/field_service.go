package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/groupe-jds/doku-seal/internal/metrics"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/groupe-jds/doku-seal/internal/repositories"
	"github.com/groupe-jds/doku-seal/internal/tracing"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AddFieldInput places a new field for a recipient on a document page
type AddFieldInput struct {
	EnvelopeID  string
	RecipientID string
	Type        models.FieldType
	PageNumber  int
	PageX       float64
	PageY       float64
	PageWidth   float64
	PageHeight  float64
	Required    *bool
}

// UpdateFieldInput is a partial field update. Nil fields are left unchanged.
type UpdateFieldInput struct {
	RecipientID *string
	Type        *models.FieldType
	PageNumber  *int
	PageX       *float64
	PageY       *float64
	PageWidth   *float64
	PageHeight  *float64
	Required    *bool
}

// FieldService manages the fields of draft envelopes
type FieldService struct {
	repos   Repositories
	metrics *metrics.Metrics
	tracer  tracing.Tracer
}

// NewFieldService creates a new field service
func NewFieldService(repos Repositories, m *metrics.Metrics, tracer tracing.Tracer) *FieldService {
	return &FieldService{
		repos:   repos,
		metrics: m,
		tracer:  tracer,
	}
}

// Add creates a field on a draft envelope for one of its recipients
func (s *FieldService) Add(ctx context.Context, owner models.Owner, in AddFieldInput) (field *models.Field, err error) {
	defer s.tracer.StartSegment(ctx, "FieldService.Add").End()
	done := s.metrics.Track("field.add")
	defer func() { done(err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	required := true
	if in.Required != nil {
		required = *in.Required
	}

	err = s.repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		env, err := s.repos.Envelopes.LockOwned(ctx, owner, in.EnvelopeID)
		if err != nil {
			return translate(err, msgEnvelopeNotFound)
		}
		if !env.Status.Mutable() {
			return forbidden("Cannot add fields to envelope that has been sent")
		}

		if _, err := s.repos.Recipients.FindInEnvelope(ctx, env.ID, in.RecipientID); err != nil {
			return translate(err, msgRecipientNotFound)
		}

		var itemID *string
		item, err := s.repos.Documents.FirstItem(ctx, env.ID)
		switch {
		case err == nil:
			itemID = &item.ID
		case errors.Is(err, repositories.ErrNotFound):
		default:
			return err
		}

		id := uuid.NewString()
		err = s.repos.Fields.Create(ctx, &models.Field{
			ID:             id,
			EnvelopeID:     env.ID,
			RecipientID:    in.RecipientID,
			EnvelopeItemID: itemID,
			Type:           in.Type,
			PageNumber:     in.PageNumber,
			PageX:          in.PageX,
			PageY:          in.PageY,
			PageWidth:      in.PageWidth,
			PageHeight:     in.PageHeight,
			Required:       required,
		})
		if err != nil {
			return err
		}
		if err := s.repos.Envelopes.Touch(ctx, env.ID); err != nil {
			return err
		}

		field, err = s.repos.Fields.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("envelope_id", in.EnvelopeID).Str("field_id", field.ID).Str("type", string(field.Type)).Msg("Field added")
	return field, nil
}

// Update applies a partial update to a field on a draft envelope.
// A new recipient must belong to the same envelope.
func (s *FieldService) Update(ctx context.Context, owner models.Owner, id string, in UpdateFieldInput) (field *models.Field, err error) {
	defer s.tracer.StartSegment(ctx, "FieldService.Update").End()
	done := s.metrics.Track("field.update")
	defer func() { done(err) }()

	err = s.repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.lockDraft(ctx, owner, id, "Cannot update field after envelope has been sent")
		if err != nil {
			return err
		}

		updates, err := in.changes()
		if err != nil {
			return err
		}

		if in.RecipientID != nil && *in.RecipientID != current.RecipientID {
			if _, err := s.repos.Recipients.FindInEnvelope(ctx, current.EnvelopeID, *in.RecipientID); err != nil {
				return translate(err, msgRecipientNotFound)
			}
		}

		if len(updates) > 0 {
			updates["updated_at"] = time.Now()
			if err := s.repos.Fields.Update(ctx, id, updates); err != nil {
				return translate(err, msgFieldNotFound)
			}
			if err := s.repos.Envelopes.Touch(ctx, current.EnvelopeID); err != nil {
				return err
			}
		}

		field, err = s.repos.Fields.Get(ctx, id)
		return translate(err, msgFieldNotFound)
	})
	if err != nil {
		return nil, err
	}
	return field, nil
}

// Remove deletes a field from a draft envelope
func (s *FieldService) Remove(ctx context.Context, owner models.Owner, id string) (err error) {
	defer s.tracer.StartSegment(ctx, "FieldService.Remove").End()
	done := s.metrics.Track("field.remove")
	defer func() { done(err) }()

	return s.repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.lockDraft(ctx, owner, id, "Cannot delete field after envelope has been sent")
		if err != nil {
			return err
		}
		if err := s.repos.Fields.Delete(ctx, id); err != nil {
			return translate(err, msgFieldNotFound)
		}
		if err := s.repos.Envelopes.Touch(ctx, current.EnvelopeID); err != nil {
			return err
		}

		log.Info().Str("envelope_id", current.EnvelopeID).Str("field_id", id).Msg("Field removed")
		return nil
	})
}

// lockDraft resolves an owned field and locks its envelope, which must still be a draft
func (s *FieldService) lockDraft(ctx context.Context, owner models.Owner, id, sentMessage string) (*models.Field, error) {
	field, err := s.repos.Fields.FindOwned(ctx, owner, id)
	if err != nil {
		return nil, translate(err, msgFieldNotFound)
	}

	env, err := s.repos.Envelopes.LockOwned(ctx, owner, field.EnvelopeID)
	if err != nil {
		return nil, translate(err, msgFieldNotFound)
	}
	if !env.Status.Mutable() {
		return nil, forbidden(sentMessage)
	}
	return field, nil
}

func (in AddFieldInput) validate() error {
	if in.EnvelopeID == "" {
		return invalid("Envelope is required")
	}
	if in.RecipientID == "" {
		return invalid("Recipient is required")
	}
	if !in.Type.Valid() {
		return invalid("Invalid field type")
	}
	return validateGeometry(in.PageNumber, in.PageX, in.PageY, in.PageWidth, in.PageHeight)
}

func (in UpdateFieldInput) changes() (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if in.RecipientID != nil {
		if *in.RecipientID == "" {
			return nil, invalid("Recipient is required")
		}
		updates["recipient_id"] = *in.RecipientID
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, invalid("Invalid field type")
		}
		updates["type"] = *in.Type
	}
	if in.PageNumber != nil {
		if *in.PageNumber < 1 {
			return nil, invalid("Page number must be at least 1")
		}
		updates["page_number"] = *in.PageNumber
	}
	if in.PageX != nil {
		if !unit(*in.PageX) {
			return nil, invalid("Page position must be between 0 and 1")
		}
		updates["page_x"] = *in.PageX
	}
	if in.PageY != nil {
		if !unit(*in.PageY) {
			return nil, invalid("Page position must be between 0 and 1")
		}
		updates["page_y"] = *in.PageY
	}
	if in.PageWidth != nil {
		if *in.PageWidth <= 0 {
			return nil, invalid("Field size must be positive")
		}
		updates["page_width"] = *in.PageWidth
	}
	if in.PageHeight != nil {
		if *in.PageHeight <= 0 {
			return nil, invalid("Field size must be positive")
		}
		updates["page_height"] = *in.PageHeight
	}
	if in.Required != nil {
		updates["required"] = *in.Required
	}

	return updates, nil
}

func validateGeometry(page int, x, y, width, height float64) error {
	if page < 1 {
		return invalid("Page number must be at least 1")
	}
	if !unit(x) || !unit(y) {
		return invalid("Page position must be between 0 and 1")
	}
	if width <= 0 || height <= 0 {
		return invalid("Field size must be positive")
	}
	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}

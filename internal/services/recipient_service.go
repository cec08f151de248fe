package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/groupe-jds/doku-seal/internal/metrics"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/groupe-jds/doku-seal/internal/tracing"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RemovalPolicy decides what happens to a recipient's fields when the recipient is removed
type RemovalPolicy string

const (
	// RemovalReject refuses to remove a recipient that still has fields
	RemovalReject RemovalPolicy = "reject"
	// RemovalCascade removes the recipient's fields together with the recipient
	RemovalCascade RemovalPolicy = "cascade"
)

// ParseRemovalPolicy parses a configured removal policy. Empty means reject.
func ParseRemovalPolicy(s string) (RemovalPolicy, error) {
	switch p := RemovalPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return RemovalReject, nil
	case RemovalReject, RemovalCascade:
		return p, nil
	default:
		return "", errors.Errorf("unknown recipient removal policy %q", s)
	}
}

// UpdateRecipientInput is a partial recipient update. Email and signing position are fixed.
type UpdateRecipientInput struct {
	Name *string
	Role *models.Role
}

// RecipientService manages the recipients of draft envelopes
type RecipientService struct {
	repos   Repositories
	policy  RemovalPolicy
	metrics *metrics.Metrics
	tracer  tracing.Tracer
}

// NewRecipientService creates a new recipient service
func NewRecipientService(repos Repositories, policy RemovalPolicy, m *metrics.Metrics, tracer tracing.Tracer) *RecipientService {
	return &RecipientService{
		repos:   repos,
		policy:  policy,
		metrics: m,
		tracer:  tracer,
	}
}

// Add appends a recipient to a draft envelope. Sequential envelopes give it the next position.
func (s *RecipientService) Add(ctx context.Context, owner models.Owner, envelopeID string, in RecipientInput) (recipient *models.Recipient, err error) {
	defer s.tracer.StartSegment(ctx, "RecipientService.Add").End()
	done := s.metrics.Track("recipient.add")
	defer func() { done(err) }()

	if err := in.normalize(); err != nil {
		return nil, err
	}
	token, err := newRecipientToken()
	if err != nil {
		return nil, err
	}

	err = s.repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		env, err := s.repos.Envelopes.LockOwned(ctx, owner, envelopeID)
		if err != nil {
			return translate(err, msgEnvelopeNotFound)
		}
		if !env.Status.Mutable() {
			return forbidden("Cannot add recipients to envelope that has been sent")
		}

		var position *int
		if env.Meta().SigningOrder == models.SigningOrderSequential {
			count, err := s.repos.Recipients.CountByEnvelope(ctx, envelopeID)
			if err != nil {
				return err
			}
			position = models.SigningOrderSequential.Position(int(count))
		}

		recipient = &models.Recipient{
			ID:           uuid.NewString(),
			EnvelopeID:   envelopeID,
			Email:        in.Email,
			Name:         in.Name,
			Role:         in.Role,
			SigningOrder: position,
			Token:        token,
		}
		if err := s.repos.Recipients.Create(ctx, recipient); err != nil {
			return err
		}
		return s.repos.Envelopes.Touch(ctx, envelopeID)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("envelope_id", envelopeID).Str("recipient_id", recipient.ID).Msg("Recipient added")
	return recipient, nil
}

// Update changes the name or role of a recipient on a draft envelope
func (s *RecipientService) Update(ctx context.Context, owner models.Owner, id string, in UpdateRecipientInput) (recipient *models.Recipient, err error) {
	defer s.tracer.StartSegment(ctx, "RecipientService.Update").End()
	done := s.metrics.Track("recipient.update")
	defer func() { done(err) }()

	err = s.repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.lockDraft(ctx, owner, id, "Cannot update recipient of envelope that has been sent")
		if err != nil {
			return err
		}

		updates, err := in.changes()
		if err != nil {
			return err
		}

		if len(updates) > 0 {
			updates["updated_at"] = time.Now()
			if err := s.repos.Recipients.Update(ctx, id, updates); err != nil {
				return translate(err, msgRecipientNotFound)
			}
			if err := s.repos.Envelopes.Touch(ctx, current.EnvelopeID); err != nil {
				return err
			}
		}

		recipient, err = s.repos.Recipients.FindInEnvelope(ctx, current.EnvelopeID, id)
		return translate(err, msgRecipientNotFound)
	})
	if err != nil {
		return nil, err
	}
	return recipient, nil
}

// Remove deletes a recipient from a draft envelope. Fields assigned to the
// recipient are handled according to the removal policy.
func (s *RecipientService) Remove(ctx context.Context, owner models.Owner, id string) (err error) {
	defer s.tracer.StartSegment(ctx, "RecipientService.Remove").End()
	done := s.metrics.Track("recipient.remove")
	defer func() { done(err) }()

	return s.repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.lockDraft(ctx, owner, id, "Cannot remove recipient from envelope that has been sent")
		if err != nil {
			return err
		}

		assigned, err := s.repos.Fields.CountByRecipient(ctx, id)
		if err != nil {
			return err
		}
		if assigned > 0 {
			switch s.policy {
			case RemovalCascade:
				if _, err := s.repos.Fields.DeleteByRecipient(ctx, id); err != nil {
					return err
				}
			case RemovalReject:
				return forbidden("Recipient has fields assigned")
			default:
				return forbidden("Recipient has fields assigned")
			}
		}

		if err := s.repos.Recipients.Delete(ctx, id); err != nil {
			return translate(err, msgRecipientNotFound)
		}
		if err := s.repos.Envelopes.Touch(ctx, current.EnvelopeID); err != nil {
			return err
		}

		log.Info().
			Str("envelope_id", current.EnvelopeID).
			Str("recipient_id", id).
			Int64("fields_removed", assigned).
			Msg("Recipient removed")
		return nil
	})
}

// lockDraft resolves an owned recipient and locks its envelope, which must still be a draft
func (s *RecipientService) lockDraft(ctx context.Context, owner models.Owner, id, sentMessage string) (*models.Recipient, error) {
	recipient, err := s.repos.Recipients.FindOwned(ctx, owner, id)
	if err != nil {
		return nil, translate(err, msgRecipientNotFound)
	}

	env, err := s.repos.Envelopes.LockOwned(ctx, owner, recipient.EnvelopeID)
	if err != nil {
		return nil, translate(err, msgRecipientNotFound)
	}
	if !env.Status.Mutable() {
		return nil, forbidden(sentMessage)
	}
	return recipient, nil
}

func (in UpdateRecipientInput) changes() (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("Recipient name must not be blank")
		}
		updates["name"] = name
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, invalid("Invalid recipient role")
		}
		updates["role"] = *in.Role
	}

	return updates, nil
}

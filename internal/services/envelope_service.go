package services

import (
	"context"
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/groupe-jds/doku-seal/internal/metrics"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/groupe-jds/doku-seal/internal/repositories"
	"github.com/groupe-jds/doku-seal/internal/tracing"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	maxTitleLength  = 255
	defaultPage     = 1
	defaultLimit    = 20
	maxLimit        = 100
	defaultDocTitle = "Document"

	defaultSyncBatch = 500
)

// RecipientInput describes a recipient to attach to an envelope
type RecipientInput struct {
	Email string
	Name  string
	Role  models.Role
}

// CreateEnvelopeInput describes a new draft envelope
type CreateEnvelopeInput struct {
	Title              string
	ExternalID         *string
	Visibility         models.Visibility
	SigningOrder       models.SigningOrder
	DistributionMethod models.DistributionMethod
	Subject            *string
	Message            *string
	RedirectURL        *string
	FolderID           *string
	Recipients         []RecipientInput
}

// UpdateEnvelopeInput is a partial envelope update. Nil fields are left unchanged.
// An empty FolderID moves the envelope out of its folder.
type UpdateEnvelopeInput struct {
	Title       *string
	Visibility  *models.Visibility
	FolderID    *string
	Subject     *string
	Message     *string
	RedirectURL *string
}

// ListEnvelopesInput filters and pages an envelope listing
type ListEnvelopesInput struct {
	Status   models.EnvelopeStatus
	FolderID string
	Search   string
	Page     int
	Limit    int
}

// EnvelopePage is one page of an envelope listing
type EnvelopePage struct {
	Envelopes  []models.Envelope
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// EnvelopeService owns the envelope lifecycle
type EnvelopeService struct {
	repos    Repositories
	notifier Notifier
	indexer  Indexer
	metrics  *metrics.Metrics
	tracer   tracing.Tracer
}

// NewEnvelopeService creates a new envelope service. notifier and indexer may be nil.
func NewEnvelopeService(repos Repositories, notifier Notifier, indexer Indexer, m *metrics.Metrics, tracer tracing.Tracer) *EnvelopeService {
	return &EnvelopeService{
		repos:    repos,
		notifier: notifier,
		indexer:  indexer,
		metrics:  m,
		tracer:   tracer,
	}
}

// Create stores a draft envelope with its document metadata and recipients in one transaction
func (s *EnvelopeService) Create(ctx context.Context, owner models.Owner, in CreateEnvelopeInput) (env *models.Envelope, err error) {
	defer s.tracer.StartSegment(ctx, "EnvelopeService.Create").End()
	done := s.metrics.Track("envelope.create")
	defer func() { done(err) }()

	if err := in.normalize(); err != nil {
		return nil, err
	}

	envelopeID := uuid.NewString()
	recipients := make([]models.Recipient, 0, len(in.Recipients))
	for i, r := range in.Recipients {
		token, err := newRecipientToken()
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, models.Recipient{
			ID:           uuid.NewString(),
			EnvelopeID:   envelopeID,
			Email:        r.Email,
			Name:         r.Name,
			Role:         r.Role,
			SigningOrder: in.SigningOrder.Position(i),
			Token:        token,
		})
	}

	env = &models.Envelope{
		ID:          envelopeID,
		SecondaryID: uuid.NewString(),
		ExternalID:  in.ExternalID,
		Title:       in.Title,
		Status:      models.StatusDraft,
		Visibility:  in.Visibility,
		UserID:      owner.UserID,
		TeamID:      owner.TeamID,
		FolderID:    in.FolderID,
		DocumentMeta: &models.DocumentMeta{
			ID:                 uuid.NewString(),
			EnvelopeID:         envelopeID,
			Subject:            in.Subject,
			Message:            in.Message,
			RedirectURL:        in.RedirectURL,
			SigningOrder:       in.SigningOrder,
			DistributionMethod: in.DistributionMethod,
		},
		Recipients: recipients,
	}

	err = s.repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.repos.Envelopes.Create(ctx, env)
	})
	if err != nil {
		s.tracer.RecordError(ctx, err)
		return nil, err
	}

	log.Info().
		Str("envelope_id", env.ID).
		Int64("team_id", owner.TeamID).
		Int("recipients", len(recipients)).
		Msg("Envelope created")

	s.index(ctx, env)
	return env, nil
}

// List returns one page of the owner's active envelopes, newest first
func (s *EnvelopeService) List(ctx context.Context, owner models.Owner, in ListEnvelopesInput) (page *EnvelopePage, err error) {
	defer s.tracer.StartSegment(ctx, "EnvelopeService.List").End()
	done := s.metrics.Track("envelope.list")
	defer func() { done(err) }()

	filter, err := in.filter()
	if err != nil {
		return nil, err
	}

	envelopes, total, err := s.repos.Envelopes.List(ctx, owner, filter)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &EnvelopePage{
		Envelopes:  envelopes,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// Get returns an owned, active envelope with recipients, fields and metadata
func (s *EnvelopeService) Get(ctx context.Context, owner models.Owner, id string) (*models.Envelope, error) {
	defer s.tracer.StartSegment(ctx, "EnvelopeService.Get").End()

	env, err := s.repos.Envelopes.FindOwned(ctx, owner, id)
	if err != nil {
		return nil, translate(err, msgEnvelopeNotFound)
	}
	return env, nil
}

// Update applies a partial update to a draft envelope. Ownership and status are
// checked before the patch itself is validated.
func (s *EnvelopeService) Update(ctx context.Context, owner models.Owner, id string, in UpdateEnvelopeInput) (env *models.Envelope, err error) {
	defer s.tracer.StartSegment(ctx, "EnvelopeService.Update").End()
	done := s.metrics.Track("envelope.update")
	defer func() { done(err) }()

	err = s.repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.repos.Envelopes.LockOwned(ctx, owner, id)
		if err != nil {
			return translate(err, msgEnvelopeNotFound)
		}
		if !locked.Status.Mutable() {
			return forbidden("Cannot update envelope that has been sent")
		}

		updates, metaUpdates, err := in.changes()
		if err != nil {
			return err
		}
		if err := s.repos.Envelopes.UpdateDraft(ctx, owner, id, updates); err != nil {
			if errors.Is(err, repositories.ErrStaleState) {
				return forbidden("Cannot update envelope that has been sent")
			}
			return err
		}
		return s.repos.Envelopes.UpdateMeta(ctx, id, metaUpdates)
	})
	if err != nil {
		return nil, err
	}

	env, err = s.repos.Envelopes.FindOwned(ctx, owner, id)
	if err != nil {
		return nil, translate(err, msgEnvelopeNotFound)
	}

	s.index(ctx, env)
	return env, nil
}

// Remove soft deletes an owned envelope. Removing it again reports NotFound.
func (s *EnvelopeService) Remove(ctx context.Context, owner models.Owner, id string) (err error) {
	defer s.tracer.StartSegment(ctx, "EnvelopeService.Remove").End()
	done := s.metrics.Track("envelope.remove")
	defer func() { done(err) }()

	if err := s.repos.Envelopes.SoftDelete(ctx, owner, id); err != nil {
		return translate(err, msgEnvelopeNotFound)
	}

	log.Info().Str("envelope_id", id).Int64("team_id", owner.TeamID).Msg("Envelope deleted")

	if s.indexer != nil {
		if err := s.indexer.DeleteEnvelope(ctx, id); err != nil {
			log.Warn().Err(err).Str("envelope_id", id).Msg("Failed to remove envelope from search index")
		}
	}
	return nil
}

// Send moves a draft envelope to PENDING once it has recipients and fields,
// then hands the recipients to the notifier. Notification problems never fail the send.
func (s *EnvelopeService) Send(ctx context.Context, owner models.Owner, id string) (env *models.Envelope, err error) {
	defer s.tracer.StartSegment(ctx, "EnvelopeService.Send").End()
	done := s.metrics.Track("envelope.send")
	defer func() { done(err) }()

	err = s.repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.repos.Envelopes.LockOwned(ctx, owner, id)
		if err != nil {
			return translate(err, msgEnvelopeNotFound)
		}
		if locked.Status != models.StatusDraft {
			return forbidden("Envelope has already been sent")
		}

		recipients, err := s.repos.Recipients.CountByEnvelope(ctx, id)
		if err != nil {
			return err
		}
		if recipients == 0 {
			return forbidden("Envelope must have at least one recipient")
		}

		fields, err := s.repos.Fields.CountByEnvelope(ctx, id)
		if err != nil {
			return err
		}
		if fields == 0 {
			return forbidden("Envelope must have at least one field")
		}

		err = s.repos.Envelopes.TransitionStatus(ctx, owner, id, models.StatusDraft, models.StatusPending)
		if errors.Is(err, repositories.ErrStaleState) {
			return forbidden("Envelope has already been sent")
		}
		return err
	})
	if err != nil {
		s.tracer.RecordError(ctx, err)
		return nil, err
	}

	env, err = s.repos.Envelopes.FindOwned(ctx, owner, id)
	if err != nil {
		return nil, translate(err, msgEnvelopeNotFound)
	}

	log.Info().Str("envelope_id", id).Int64("team_id", owner.TeamID).Msg("Envelope sent")
	s.metrics.IncrementCounter("envelopes_sent")

	s.notify(ctx, env, RecipientsToNotify(env))
	s.index(ctx, env)
	return env, nil
}

// Resend notifies selected recipients of a pending envelope again.
// Recipients who already signed are skipped.
func (s *EnvelopeService) Resend(ctx context.Context, owner models.Owner, id string, recipientIDs []string) (notified []models.Recipient, err error) {
	defer s.tracer.StartSegment(ctx, "EnvelopeService.Resend").End()
	done := s.metrics.Track("envelope.resend")
	defer func() { done(err) }()

	ids := uniqueIDs(recipientIDs)
	if len(ids) == 0 {
		return nil, invalid("At least one recipient is required")
	}

	env, err := s.repos.Envelopes.FindOwned(ctx, owner, id)
	if err != nil {
		return nil, translate(err, msgEnvelopeNotFound)
	}
	if env.Status != models.StatusPending {
		return nil, forbidden("Only pending envelopes can be resent")
	}
	if !env.Meta().DistributionMethod.Notifies() {
		return nil, forbidden("Envelope is not distributed by email")
	}

	selected, err := s.repos.Recipients.ListByIDs(ctx, id, ids)
	if err != nil {
		return nil, err
	}
	if len(selected) != len(ids) {
		return nil, notFound(msgRecipientNotFound)
	}

	for _, r := range selected {
		if r.SignedAt == nil {
			notified = append(notified, r)
		}
	}
	if len(notified) == 0 {
		return nil, forbidden("Selected recipients have already signed")
	}

	s.notify(ctx, env, notified)
	return notified, nil
}

// UploadDocument attaches document content to a draft envelope
func (s *EnvelopeService) UploadDocument(ctx context.Context, owner models.Owner, id, title string, content []byte) (item *models.EnvelopeItem, err error) {
	defer s.tracer.StartSegment(ctx, "EnvelopeService.UploadDocument").End()
	done := s.metrics.Track("envelope.upload_document")
	defer func() { done(err) }()

	if len(content) == 0 {
		return nil, invalid("Document is empty")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultDocTitle
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, invalid("Document title is too long")
	}

	encoded := base64.StdEncoding.EncodeToString(content)
	err = s.repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.repos.Envelopes.LockOwned(ctx, owner, id)
		if err != nil {
			return translate(err, msgEnvelopeNotFound)
		}
		if !locked.Status.Mutable() {
			return forbidden("Cannot upload document to envelope that has been sent")
		}

		count, err := s.repos.Documents.CountItems(ctx, id)
		if err != nil {
			return err
		}

		data := &models.DocumentData{
			ID:          uuid.NewString(),
			Type:        models.DocumentDataBytes64,
			Data:        encoded,
			InitialData: encoded,
		}
		item = &models.EnvelopeItem{
			ID:         uuid.NewString(),
			EnvelopeID: id,
			Title:      title,
			ItemOrder:  int(count) + 1,
		}
		return s.repos.Documents.CreateItem(ctx, data, item)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("envelope_id", id).Str("item_id", item.ID).Int("bytes", len(content)).Msg("Document uploaded")
	return item, nil
}

// SyncSearchIndex pushes up to batch envelopes changed after the cursor into the
// search index and returns the cursor of the last one synced with the number synced.
func (s *EnvelopeService) SyncSearchIndex(ctx context.Context, after repositories.SyncCursor, batch int) (repositories.SyncCursor, int, error) {
	if s.indexer == nil {
		return after, 0, nil
	}
	if batch < 1 {
		batch = defaultSyncBatch
	}

	envelopes, err := s.repos.Envelopes.ListChangedAfter(ctx, after, batch)
	if err != nil {
		return after, 0, err
	}

	cursor := after
	synced := 0
	for i := range envelopes {
		env := &envelopes[i]
		if env.IsDeleted() {
			err = s.indexer.DeleteEnvelope(ctx, env.ID)
		} else {
			err = s.indexer.IndexEnvelope(ctx, env)
		}
		if err != nil {
			s.metrics.IncrementCounterBy("envelopes_indexed", int64(synced))
			return cursor, synced, errors.Wrapf(err, "failed to sync envelope %s", env.ID)
		}
		cursor = repositories.SyncCursor{UpdatedAt: env.UpdatedAt, ID: env.ID}
		synced++
	}

	s.metrics.IncrementCounterBy("envelopes_indexed", int64(synced))
	return cursor, synced, nil
}

// RecipientsToNotify picks who hears about a freshly sent envelope.
// Sequential envelopes start with the lowest signing position only.
func RecipientsToNotify(env *models.Envelope) []models.Recipient {
	meta := env.Meta()
	if !meta.DistributionMethod.Notifies() {
		return nil
	}

	switch meta.SigningOrder {
	case models.SigningOrderSequential:
		first := -1
		for _, r := range env.Recipients {
			if r.SignedAt == nil && r.SigningOrder != nil && (first == -1 || *r.SigningOrder < first) {
				first = *r.SigningOrder
			}
		}
		if first == -1 {
			return pending(env.Recipients)
		}
		var out []models.Recipient
		for _, r := range env.Recipients {
			if r.SignedAt == nil && r.SigningOrder != nil && *r.SigningOrder == first {
				out = append(out, r)
			}
		}
		return out
	case models.SigningOrderParallel:
		return pending(env.Recipients)
	default:
		return pending(env.Recipients)
	}
}

func pending(recipients []models.Recipient) []models.Recipient {
	var out []models.Recipient
	for _, r := range recipients {
		if r.SignedAt == nil {
			out = append(out, r)
		}
	}
	return out
}

func (s *EnvelopeService) notify(ctx context.Context, env *models.Envelope, recipients []models.Recipient) {
	if s.notifier == nil || len(recipients) == 0 {
		return
	}
	if err := s.notifier.NotifyRecipients(ctx, env, recipients); err != nil {
		s.metrics.IncrementCounter("notifications_failed")
		log.Warn().Err(err).Str("envelope_id", env.ID).Msg("Failed to dispatch recipient notifications")
		return
	}
	s.metrics.IncrementCounterBy("notifications_dispatched", int64(len(recipients)))
}

func (s *EnvelopeService) index(ctx context.Context, env *models.Envelope) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexEnvelope(ctx, env); err != nil {
		log.Warn().Err(err).Str("envelope_id", env.ID).Msg("Failed to index envelope")
	}
}

func (in *CreateEnvelopeInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateTitle(in.Title); err != nil {
		return err
	}

	if in.Visibility == "" {
		in.Visibility = models.VisibilityEveryone
	}
	if !in.Visibility.Valid() {
		return invalid("Invalid visibility")
	}
	if in.SigningOrder == "" {
		in.SigningOrder = models.SigningOrderParallel
	}
	if !in.SigningOrder.Valid() {
		return invalid("Invalid signing order")
	}
	if in.DistributionMethod == "" {
		in.DistributionMethod = models.DistributionEmail
	}
	if !in.DistributionMethod.Valid() {
		return invalid("Invalid distribution method")
	}
	if in.FolderID != nil && *in.FolderID == "" {
		in.FolderID = nil
	}

	if len(in.Recipients) == 0 {
		return invalid("At least one recipient is required")
	}
	for i := range in.Recipients {
		if err := in.Recipients[i].normalize(); err != nil {
			return err
		}
	}
	return nil
}

func (in *RecipientInput) normalize() error {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return invalid("Invalid recipient email")
	}
	if in.Role == "" {
		in.Role = models.RoleSigner
	}
	if !in.Role.Valid() {
		return invalid("Invalid recipient role")
	}
	return nil
}

func (in UpdateEnvelopeInput) changes() (map[string]interface{}, map[string]interface{}, error) {
	updates := map[string]interface{}{}
	meta := map[string]interface{}{}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := validateTitle(title); err != nil {
			return nil, nil, err
		}
		updates["title"] = title
	}
	if in.Visibility != nil {
		if !in.Visibility.Valid() {
			return nil, nil, invalid("Invalid visibility")
		}
		updates["visibility"] = *in.Visibility
	}
	if in.FolderID != nil {
		if *in.FolderID == "" {
			updates["folder_id"] = nil
		} else {
			updates["folder_id"] = *in.FolderID
		}
	}

	if in.Subject != nil {
		meta["subject"] = *in.Subject
	}
	if in.Message != nil {
		meta["message"] = *in.Message
	}
	if in.RedirectURL != nil {
		if *in.RedirectURL == "" {
			meta["redirect_url"] = nil
		} else {
			meta["redirect_url"] = *in.RedirectURL
		}
	}

	return updates, meta, nil
}

func (in ListEnvelopesInput) filter() (repositories.ListFilter, error) {
	filter := repositories.ListFilter{
		Status:   in.Status,
		FolderID: strings.TrimSpace(in.FolderID),
		Search:   strings.TrimSpace(in.Search),
		Page:     in.Page,
		Limit:    in.Limit,
	}

	if filter.Status != "" && !filter.Status.Valid() {
		return filter, invalid("Status filter must be one of DRAFT, PENDING, COMPLETED, REJECTED")
	}
	if filter.Page < 1 {
		filter.Page = defaultPage
	}
	if filter.Limit < 1 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		return filter, invalid("Limit must not exceed 100")
	}
	return filter, nil
}

func validateTitle(title string) error {
	if title == "" {
		return invalid("Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return invalid("Title must be at most 255 characters")
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/groupe-jds/doku-seal/internal/metrics"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// SubjectRecipientNotification marks messages asking the mailer to contact a recipient
const SubjectRecipientNotification = "envelope.recipient_notification"

var (
	// ErrQueueFull is returned when the dispatcher cannot accept more notifications
	ErrQueueFull = errors.New("notification queue is full")
	// ErrDispatcherStopped is returned for notifications offered after Run has finished flushing
	ErrDispatcherStopped = errors.New("notification dispatcher stopped")
)

// RecipientNotification is the message body handed to the mailer
type RecipientNotification struct {
	ID            string    `json:"id"`
	EnvelopeID    string    `json:"envelopeId"`
	EnvelopeTitle string    `json:"envelopeTitle"`
	TeamID        int64     `json:"teamId"`
	RecipientID   string    `json:"recipientId"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	SigningOrder  *int      `json:"signingOrder,omitempty"`
	Token         string    `json:"token"`
	Subject       *string   `json:"subject,omitempty"`
	Message       *string   `json:"message,omitempty"`
	RedirectURL   *string   `json:"redirectUrl,omitempty"`
	QueuedAt      time.Time `json:"queuedAt"`
}

// DispatcherConfig sizes the dispatcher
type DispatcherConfig struct {
	Workers     int
	Buffer      int
	SendTimeout time.Duration
}

// Dispatcher queues recipient notifications in memory and delivers them to
// Service Bus from a pool of workers. Enqueueing never blocks.
type Dispatcher struct {
	client      ServiceBusClient
	queue       chan RecipientNotification
	workers     int
	sendTimeout time.Duration
	metrics     *metrics.Metrics

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(client ServiceBusClient, cfg DispatcherConfig, m *metrics.Metrics) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Buffer < 1 {
		cfg.Buffer = 100
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	return &Dispatcher{
		client:      client,
		queue:       make(chan RecipientNotification, cfg.Buffer),
		workers:     cfg.Workers,
		sendTimeout: cfg.SendTimeout,
		metrics:     m,
	}
}

// NotifyRecipients queues one notification per recipient
func (d *Dispatcher) NotifyRecipients(ctx context.Context, envelope *models.Envelope, recipients []models.Recipient) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.metrics.IncrementCounterBy("notifications_dropped", int64(len(recipients)))
		return errors.Wrapf(ErrDispatcherStopped, "dropped %d notifications", len(recipients))
	}

	meta := envelope.Meta()
	now := time.Now().UTC()

	for i, r := range recipients {
		n := RecipientNotification{
			ID:            uuid.NewString(),
			EnvelopeID:    envelope.ID,
			EnvelopeTitle: envelope.Title,
			TeamID:        envelope.TeamID,
			RecipientID:   r.ID,
			Email:         r.Email,
			Name:          r.Name,
			Role:          string(r.Role),
			SigningOrder:  r.SigningOrder,
			Token:         r.Token,
			Subject:       meta.Subject,
			Message:       meta.Message,
			RedirectURL:   meta.RedirectURL,
			QueuedAt:      now,
		}

		select {
		case d.queue <- n:
		default:
			d.metrics.IncrementCounterBy("notifications_dropped", int64(len(recipients)-i))
			return errors.Wrapf(ErrQueueFull, "dropped %d of %d notifications", len(recipients)-i, len(recipients))
		}
	}

	d.metrics.SetGauge("notification_queue_depth", int64(len(d.queue)))
	return nil
}

// Run delivers queued notifications until ctx is cancelled, then flushes what is left.
// Notifications offered after that are rejected with ErrDispatcherStopped.
func (d *Dispatcher) Run(ctx context.Context) error {
	log.Info().Int("workers", d.workers).Msg("Starting notification dispatcher")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case n := <-d.queue:
					d.deliver(n)
				}
			}
		})
	}
	err := g.Wait()

	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	d.flush()
	if err != nil {
		return err
	}
	log.Info().Msg("Notification dispatcher stopped")
	return nil
}

func (d *Dispatcher) flush() {
	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(n RecipientNotification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	err := d.client.SendMessage(ctx, Message{
		ID:      n.ID,
		Subject: SubjectRecipientNotification,
		Body:    n,
	})
	d.metrics.RecordResult("notification.deliver", err)
	if err != nil {
		log.Warn().Err(err).
			Str("envelope_id", n.EnvelopeID).
			Str("recipient_id", n.RecipientID).
			Msg("Failed to deliver recipient notification")
		return
	}

	log.Debug().Str("envelope_id", n.EnvelopeID).Str("recipient_id", n.RecipientID).Msg("Recipient notification delivered")
}

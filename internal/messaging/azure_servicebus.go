package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/groupe-jds/doku-seal/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Message is one outgoing Service Bus message
type Message struct {
	ID      string
	Subject string
	Body    interface{}
}

// ServiceBusClient is an interface for Azure Service Bus operations
type ServiceBusClient interface {
	SendMessage(ctx context.Context, msg Message) error
	Close() error
}

// serviceBusClient implements the ServiceBusClient interface
type serviceBusClient struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
	source    string
}

// logOnlyClient stands in for Service Bus when no connection string is configured
type logOnlyClient struct {
	source string
}

// NewServiceBusClient creates a new Azure Service Bus client. Without a connection
// string messages are only logged, which is what local development wants.
func NewServiceBusClient(cfg config.AzureConfig, source string) (ServiceBusClient, error) {
	if cfg.ConnectionString == "" {
		log.Warn().Msg("Azure Service Bus connection string not provided, notifications will only be logged")
		return &logOnlyClient{source: source}, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &serviceBusClient{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
		source:    source,
	}, nil
}

// SendMessage sends a message to the Service Bus queue
func (s *serviceBusClient) SendMessage(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg.Body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message body")
	}

	contentType := "application/json"
	out := &azservicebus.Message{
		Body:        data,
		ContentType: &contentType,
		ApplicationProperties: map[string]interface{}{
			"source": s.source,
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}
	if msg.ID != "" {
		out.MessageID = &msg.ID
	}
	if msg.Subject != "" {
		out.Subject = &msg.Subject
	}

	if err := s.sender.SendMessage(ctx, out, nil); err != nil {
		return errors.Wrapf(err, "failed to send message to queue %s", s.queueName)
	}
	return nil
}

// Close closes the Service Bus client
func (s *serviceBusClient) Close() error {
	if s.sender != nil {
		if err := s.sender.Close(context.Background()); err != nil {
			return err
		}
	}
	if s.client != nil {
		return s.client.Close(context.Background())
	}
	return nil
}

func (m *logOnlyClient) SendMessage(ctx context.Context, msg Message) error {
	log.Info().
		Str("source", m.source).
		Str("message_id", msg.ID).
		Str("subject", msg.Subject).
		Msg("Service Bus disabled, message not sent")
	return nil
}

func (m *logOnlyClient) Close() error {
	return nil
}

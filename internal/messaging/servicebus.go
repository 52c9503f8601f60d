package messaging

import (
	"context"
	"encoding/json"
	"time"

	"example.com/backstage/services/tenders/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ServiceBusClient sends messages to an Azure Service Bus queue
type ServiceBusClient interface {
	SendMessage(ctx context.Context, body interface{}, sessionID string) error
	Close() error
}

type serviceBusClient struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
	source    string
}

// logClient only logs messages. It is used when no connection string is configured.
type logClient struct {
	source string
}

// NewServiceBusClient creates a Service Bus client, or a logging stand-in
// when no connection string is configured
func NewServiceBusClient(cfg config.ServiceBusConfig, source string) (ServiceBusClient, error) {
	if cfg.ConnectionString == "" {
		return &logClient{source: source}, nil
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

// SendMessage sends body as JSON. Messages sharing a session id are delivered in order.
func (s *serviceBusClient) SendMessage(ctx context.Context, body interface{}, sessionID string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message body")
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	msg := &azservicebus.Message{
		Body:        data,
		ContentType: stringPtr("application/json"),
		ApplicationProperties: map[string]interface{}{
			"source": s.source,
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
		SessionID: &sessionID,
	}

	return s.sender.SendMessage(ctx, msg, nil)
}

// Close closes the sender and the client
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

func (m *logClient) SendMessage(ctx context.Context, body interface{}, sessionID string) error {
	log.Debug().
		Str("source", m.source).
		Str("session_id", sessionID).
		Interface("body", body).
		Msg("Service Bus disabled, message not sent")
	return nil
}

func (m *logClient) Close() error {
	return nil
}

func stringPtr(s string) *string {
	return &s
}

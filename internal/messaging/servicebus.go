package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/maxsviluppo/ristosync/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ChangeNotice is the message every device publishes after mirroring a
// local mutation. The payload is deliberately thin: receivers always
// respond with a full re-pull, never incremental patching.
type ChangeNotice struct {
	Kind   string    `json:"kind"` // orders, menu, settings, marketing
	Device string    `json:"device,omitempty"`
	Time   time.Time `json:"time"`
}

// ChangeFeed is the per-tenant realtime channel over Azure Service Bus.
// A zero-config feed is disabled: the periodic pull timer alone keeps the
// device in sync, just more slowly.
type ChangeFeed struct {
	client      *azservicebus.Client
	queuePrefix string
	enabled     bool
}

// NewChangeFeed creates a change feed client. An empty connection string
// yields a disabled feed, not an error.
func NewChangeFeed(cfg config.ServiceBusConfig) (*ChangeFeed, error) {
	if cfg.ConnectionString == "" {
		log.Warn().Msg("Service Bus connection string not provided, realtime channel disabled")
		return &ChangeFeed{enabled: false}, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	return &ChangeFeed{
		client:      client,
		queuePrefix: cfg.QueuePrefix,
		enabled:     true,
	}, nil
}

// Enabled reports whether the realtime channel is configured.
func (f *ChangeFeed) Enabled() bool {
	return f.enabled
}

func (f *ChangeFeed) queueName(tenantID string) string {
	return f.queuePrefix + "-" + tenantID
}

// Notify publishes a change notice on the tenant's queue. Failures are the
// caller's to log and swallow; the local write already committed.
func (f *ChangeFeed) Notify(ctx context.Context, tenantID string, notice ChangeNotice) error {
	if !f.enabled {
		return nil
	}

	body, err := json.Marshal(notice)
	if err != nil {
		return errors.Wrap(err, "failed to marshal change notice")
	}

	sender, err := f.client.NewSender(f.queueName(tenantID), nil)
	if err != nil {
		return errors.Wrap(err, "failed to create Service Bus sender")
	}
	defer sender.Close(ctx)

	msg := &azservicebus.Message{Body: body}
	return sender.SendMessage(ctx, msg, nil)
}

// Listen receives change notices for the tenant until the context is
// cancelled, invoking handler for each one. Undecodable messages are
// completed and dropped; a poison message must not wedge the feed.
func (f *ChangeFeed) Listen(ctx context.Context, tenantID string, handler func(notice ChangeNotice)) error {
	if !f.enabled {
		<-ctx.Done()
		return nil
	}

	receiver, err := f.client.NewReceiverForQueue(f.queueName(tenantID), nil)
	if err != nil {
		return errors.Wrap(err, "failed to create Service Bus receiver")
	}
	defer receiver.Close(context.Background())

	for {
		messages, err := receiver.ReceiveMessages(ctx, 1, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("Failed to receive change notice, retrying")
			continue
		}

		for _, message := range messages {
			var notice ChangeNotice
			if err := json.Unmarshal(message.Body, &notice); err != nil {
				log.Warn().Err(err).Msg("Dropping undecodable change notice")
			} else {
				handler(notice)
			}
			if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
				log.Error().Err(err).Msg("Failed to complete change notice")
			}
		}
	}
}

// Close releases the underlying client.
func (f *ChangeFeed) Close() error {
	if !f.enabled || f.client == nil {
		return nil
	}
	return f.client.Close(context.Background())
}

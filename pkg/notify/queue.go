package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const notificationsTopic = "workflow.notifications"

// ErrTransient marks a delivery failure worth retrying. Handlers wrap
// network-level errors with it; everything else is dropped after logging.
var ErrTransient = errors.New("transient notification failure")

// EmailSender delivers a rendered email message.
type EmailSender interface {
	Send(ctx context.Context, documentID string, msg *EmailMessage) error
}

// WebhookSender delivers a rendered webhook call.
type WebhookSender interface {
	Send(ctx context.Context, documentID string, msg *WebhookMessage) error
}

// Queue decouples notification delivery from the metadata transaction.
// Enqueue is fire-and-forget for the caller; Run consumes until the
// context ends, retrying transient failures via redelivery.
type Queue struct {
	pubSub  *gochannel.GoChannel
	email   EmailSender
	webhook WebhookSender
	logger  *slog.Logger
}

// NewQueue creates an in-process notification queue.
func NewQueue(email EmailSender, webhook WebhookSender, logger *slog.Logger) *Queue {
	return &Queue{
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
			Persistent:          true,
		}, watermill.NewSlogLogger(logger)),
		email:   email,
		webhook: webhook,
		logger:  logger.With("module", "notify_queue"),
	}
}

// Enqueue publishes one notification for asynchronous delivery.
func (q *Queue) Enqueue(ctx context.Context, notification Notification) error {
	payload, err := notification.Marshal()
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := q.pubSub.Publish(notificationsTopic, msg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

// Run consumes the queue until ctx is cancelled. Transient failures are
// nacked for redelivery; permanent ones are logged and dropped so a bad
// notification never wedges the queue.
func (q *Queue) Run(ctx context.Context) error {
	messages, err := q.pubSub.Subscribe(ctx, notificationsTopic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to notifications: %w", err)
	}

	for msg := range messages {
		q.handle(ctx, msg)
	}

	return nil
}

func (q *Queue) handle(ctx context.Context, msg *message.Message) {
	notification, err := Unmarshal(msg.Payload)
	if err != nil {
		q.logger.ErrorContext(ctx, "Dropping undecodable notification", "error", err)
		msg.Ack()

		return
	}

	err = q.deliver(ctx, notification)
	if err == nil {
		msg.Ack()

		return
	}

	if errors.Is(err, ErrTransient) {
		q.logger.ErrorContext(ctx, "Notification delivery failed, will retry",
			"document_id", notification.DocumentID,
			"workflow_id", notification.WorkflowID,
			"kind", notification.Kind,
			"error", err)
		msg.Nack()

		return
	}

	q.logger.ErrorContext(ctx, "Notification delivery failed permanently",
		"document_id", notification.DocumentID,
		"workflow_id", notification.WorkflowID,
		"kind", notification.Kind,
		"error", err)
	msg.Ack()
}

func (q *Queue) deliver(ctx context.Context, notification *Notification) error {
	switch notification.Kind {
	case KindEmail:
		if notification.Email == nil {
			return errors.New("email notification without payload")
		}

		return q.email.Send(ctx, notification.DocumentID, notification.Email)
	case KindWebhook:
		if notification.Webhook == nil {
			return errors.New("webhook notification without payload")
		}

		return q.webhook.Send(ctx, notification.DocumentID, notification.Webhook)
	default:
		return fmt.Errorf("unknown notification kind %q", notification.Kind)
	}
}

// Close shuts the queue down. Queued messages not yet delivered are lost;
// callers drain by cancelling Run's context first.
func (q *Queue) Close() error {
	return q.pubSub.Close()
}

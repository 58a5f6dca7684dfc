// Package notify delivers workflow side effects (email and webhooks)
// decoupled from the metadata transaction through an in-process queue.
package notify

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates notification payloads.
type Kind string

const (
	KindEmail   Kind = "email"
	KindWebhook Kind = "webhook"
)

// EmailMessage is a fully rendered email, ready to send.
type EmailMessage struct {
	To              []string `json:"to"`
	Subject         string   `json:"subject"`
	Body            string   `json:"body"`
	AttachDocument  bool     `json:"attach_document"`
}

// WebhookMessage is a fully rendered webhook call, ready to send.
type WebhookMessage struct {
	URL            string            `json:"url"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           string            `json:"body,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
	UseParams      bool              `json:"use_params"`
	AsJSON         bool              `json:"as_json"`
	AttachDocument bool              `json:"attach_document"`
}

// Notification is one queued side effect. Templates are rendered before
// enqueueing, so a malformed template never reaches the transport.
type Notification struct {
	DocumentID string          `json:"document_id"`
	WorkflowID string          `json:"workflow_id"`
	Kind       Kind            `json:"kind"`
	Email      *EmailMessage   `json:"email,omitempty"`
	Webhook    *WebhookMessage `json:"webhook,omitempty"`
}

// Marshal encodes the notification for the queue transport.
func (n *Notification) Marshal() ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}

	return data, nil
}

// Unmarshal decodes a queued notification.
func Unmarshal(data []byte) (*Notification, error) {
	notification := new(Notification)
	if err := json.Unmarshal(data, notification); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
	}

	return notification, nil
}

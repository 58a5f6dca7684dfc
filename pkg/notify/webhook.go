package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultWebhookTimeoutSeconds = 30

// FileFetcher provides a document's file bytes for attachments. It is an
// external collaborator; a nil fetcher skips attachments.
type FileFetcher interface {
	Fetch(ctx context.Context, documentID string) (data []byte, filename string, err error)
}

// Webhook posts rendered payloads with bounded retries. Server errors and
// network failures are surfaced as transient so the queue redelivers;
// client errors are permanent.
type Webhook struct {
	client   *http.Client
	fetcher  FileFetcher
	attempts int
	delay    time.Duration
	logger   *slog.Logger
}

// NewWebhook creates a webhook sender. fetcher may be nil.
func NewWebhook(fetcher FileFetcher, logger *slog.Logger) *Webhook {
	return &Webhook{
		client:   &http.Client{Timeout: defaultWebhookTimeoutSeconds * time.Second},
		fetcher:  fetcher,
		attempts: 3,
		delay:    time.Second,
		logger:   logger.With("module", "webhook_sender"),
	}
}

// Send performs the webhook call.
func (w *Webhook) Send(ctx context.Context, documentID string, msg *WebhookMessage) error {
	var lastErr error

	for attempt := 1; attempt <= w.attempts; attempt++ {
		if attempt > 1 {
			w.logger.InfoContext(ctx, "Webhook retry",
				"url", msg.URL, "attempt", attempt, "of", w.attempts)

			select {
			case <-time.After(w.delay):
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", ErrTransient, ctx.Err())
			}
		}

		req, err := w.buildRequest(ctx, documentID, msg)
		if err != nil {
			return err
		}

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("webhook request failed: %w", err)

			continue
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("webhook server error (status %d)", resp.StatusCode)
		default:
			// 4xx will not improve with retries.
			return fmt.Errorf("webhook rejected (status %d)", resp.StatusCode)
		}
	}

	return fmt.Errorf("%w: %w", ErrTransient, lastErr)
}

func (w *Webhook) buildRequest(ctx context.Context, documentID string, msg *WebhookMessage) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)

	switch {
	case msg.AttachDocument && w.fetcher != nil:
		data, filename, err := w.fetcher.Fetch(ctx, documentID)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to fetch document file: %w", ErrTransient, err)
		}

		multipartBody, multipartType, err := buildMultipart(msg, data, filename)
		if err != nil {
			return nil, err
		}

		body, contentType = multipartBody, multipartType
	case msg.UseParams:
		values := url.Values{}
		for key, value := range msg.Params {
			values.Set(key, value)
		}

		body = strings.NewReader(values.Encode())
		contentType = "application/x-www-form-urlencoded"
	case msg.AsJSON:
		body = strings.NewReader(msg.Body)
		contentType = "application/json"
	default:
		body = strings.NewReader(msg.Body)
		contentType = "text/plain"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, msg.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	for key, value := range msg.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

func buildMultipart(msg *WebhookMessage, data []byte, filename string) (io.Reader, string, error) {
	buf := new(bytes.Buffer)
	writer := multipart.NewWriter(buf)

	for key, value := range msg.Params {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write webhook field: %w", err)
		}
	}

	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create attachment part: %w", err)
	}

	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write attachment: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	return buf, writer.FormDataContentType(), nil
}

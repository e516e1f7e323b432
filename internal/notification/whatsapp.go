package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tideraider/surf-alert-server/pkg/config"
)

// WhatsAppNotifier sends messages through an HTTP WhatsApp gateway.
type WhatsAppNotifier struct {
	config *config.WhatsAppConfig
	client *http.Client
}

// NewWhatsAppNotifier creates a new WhatsApp notifier
func NewWhatsAppNotifier(cfg *config.WhatsAppConfig) *WhatsAppNotifier {
	return &WhatsAppNotifier{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type whatsAppPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

// SendWhatsApp posts one message to the gateway. When the gateway is not
// configured the message is logged instead and the send counts as
// successful, matching the email notifier's behavior.
func (w *WhatsAppNotifier) SendWhatsApp(ctx context.Context, to, body string) error {
	if w.config.GatewayURL == "" || w.config.Token == "" {
		fmt.Printf("WhatsApp gateway not configured, skipping message:\nTo: %s\n%s\n", to, body)
		return nil
	}

	payload, err := json.Marshal(whatsAppPayload{
		From: w.config.From,
		To:   to,
		Body: body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.GatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.config.Token)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach whatsapp gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, snippet)
	}

	fmt.Printf("WhatsApp message sent to %s\n", to)
	return nil
}

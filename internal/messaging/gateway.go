// Package messaging forwards report payloads to the external WhatsApp
// gateway. The backend does not template or queue messages; it relays the
// prepared body and surfaces gateway failures to the caller.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one outbound WhatsApp report.
type Message struct {
	// Recipient is the destination number in international format.
	Recipient string `json:"recipient"`

	// Body is the prepared report text.
	Body string `json:"body"`

	// MessageID lets the provider deduplicate retried sends. Assigned by
	// the gateway when empty.
	MessageID string `json:"message_id,omitempty"`
}

// Gateway sends messages through the external provider.
type Gateway interface {
	SendReport(ctx context.Context, msg Message) error
}

// HTTPGateway implements Gateway over the provider's REST API with a
// static auth key.
type HTTPGateway struct {
	baseURL string
	authKey string
	client  *http.Client
}

// NewHTTPGateway creates the gateway client.
func NewHTTPGateway(baseURL, authKey string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		authKey: authKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SendReport relays one report to the provider.
func (g *HTTPGateway) SendReport(ctx context.Context, msg Message) error {
	if msg.Recipient == "" || msg.Body == "" {
		return fmt.Errorf("recipient and body are required")
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/whatsapp/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authkey", g.authKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("messaging gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("messaging gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

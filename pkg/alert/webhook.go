package alert

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
)

// Headers set on every generic webhook delivery.
const (
	SignatureHeader = "X-Signature-256"
	EventHeader     = "X-Clubradar-Event"
)

// EventLeaderChange names the only event delivered today.
const EventLeaderChange = "leader_change"

// Envelope is the generic webhook body.
type Envelope struct {
	Event string        `json:"event"`
	RunID int64         `json:"run_id,string"`
	Data  *Notification `json:"data"`
}

// Webhook posts an Envelope to any HTTP endpoint, optionally HMAC signed.
type Webhook struct {
	client *http.Client
	url    string
	secret string
}

// NewWebhook returns a webhook notifier. An empty secret disables signing.
func NewWebhook(url, secret string) *Webhook {
	return &Webhook{client: newHTTPClient(), url: url, secret: secret}
}

func (w *Webhook) Name() string { return "webhook" }

// Sign returns the signature header value for body: "sha256=" plus the hex HMAC.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body under secret.
func Verify(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}

func (w *Webhook) Send(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(Envelope{Event: EventLeaderChange, RunID: n.RunID, Data: n})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	header := http.Header{}
	header.Set(EventHeader, EventLeaderChange)
	if w.secret != "" {
		header.Set(SignatureHeader, Sign(w.secret, body))
	}
	if err := post(ctx, w.client, w.url, body, header); err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	return nil
}

// Package mailer sends outbound mail via the Mailtrap API.
//
// Sending is a best-effort notification: callers dispatch it off the
// request path and only log a failure, never surface it.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Service is the outbound-mail contract the handlers depend on.
type Service interface {
	SendContactMessage(ctx context.Context, msg ContactMessage) error
}

// ContactMessage is a visitor message relayed to a recipient, with a copy
// kept for the configured sender address.
type ContactMessage struct {
	To    string
	Host  string
	Title string
	Text  string
}

type MailtrapService struct {
	apiKey string
	url    string
	from   string
	client *http.Client
}

// NewMailtrapService creates a mail sender from environment configuration
// (MAILTRAP_API_KEY, MAILTRAP_API_URL, MAIL_FROM).
func NewMailtrapService() *MailtrapService {
	return &MailtrapService{
		apiKey: os.Getenv("MAILTRAP_API_KEY"),
		url:    os.Getenv("MAILTRAP_API_URL"),
		from:   os.Getenv("MAIL_FROM"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// EmailRecipient represents an email recipient
type EmailRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// EmailRequest represents the request payload for sending an email
type EmailRequest struct {
	From     EmailRecipient   `json:"from"`
	To       []EmailRecipient `json:"to"`
	Bcc      []EmailRecipient `json:"bcc,omitempty"`
	Subject  string           `json:"subject"`
	Text     string           `json:"text,omitempty"`
	Category string           `json:"category,omitempty"`
}

// SendContactMessage relays a visitor message to msg.To, bcc'ing the
// configured sender address.
func (m *MailtrapService) SendContactMessage(ctx context.Context, msg ContactMessage) error {
	emailReq := EmailRequest{
		From: EmailRecipient{Email: m.from},
		To: []EmailRecipient{
			{Email: msg.To},
		},
		Bcc: []EmailRecipient{
			{Email: m.from},
		},
		Subject:  fmt.Sprintf("Message (%s) : %s", msg.Host, msg.Title),
		Text:     msg.Text,
		Category: "contact_message",
	}

	return m.sendEmail(ctx, emailReq)
}

// sendEmail sends an email via the Mailtrap API
func (m *MailtrapService) sendEmail(ctx context.Context, emailReq EmailRequest) error {
	payload, err := json.Marshal(emailReq)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("mailtrap API returned status: %d", resp.StatusCode)
	}

	return nil
}

package notifications

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	config "github.com/anjiri1684/training_academy/configs"
	"github.com/anjiri1684/training_academy/metrics"
	"github.com/sirupsen/logrus"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

type Attachment struct {
	Name    string
	Content []byte
}

type Message struct {
	ToName      string
	ToEmail     string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type BrevoService struct {
	APIKey      string
	SenderEmail string
	SenderName  string

	endpoint string
	client   *http.Client
}

type brevoAttachment struct {
	Content string `json:"content"`
	Name    string `json:"name"`
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
	Attachment  []brevoAttachment   `json:"attachment,omitempty"`
}

// NewMailer returns a Brevo client, or a mailer that only logs when the
// service is not configured.
func NewMailer(cfg config.EmailConfig, log logrus.FieldLogger) Mailer {
	if cfg.BrevoAPIKey == "" || cfg.SenderEmail == "" || cfg.SenderName == "" {
		log.Warn("⚠️ Email service not configured. Missing API Key, Sender Email, or Sender Name.")
		return LogMailer{Log: log}
	}

	log.WithField("sender", cfg.SenderEmail).Info("✅ Email service initialized successfully.")
	return NewBrevoService(cfg, brevoEndpoint)
}

func NewBrevoService(cfg config.EmailConfig, endpoint string) *BrevoService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BrevoService{
		APIKey:      cfg.BrevoAPIKey,
		SenderEmail: cfg.SenderEmail,
		SenderName:  cfg.SenderName,
		endpoint:    endpoint,
		client:      &http.Client{Timeout: timeout},
	}
}

func (s *BrevoService) Send(ctx context.Context, msg Message) error {
	if msg.ToEmail == "" || !strings.Contains(msg.ToEmail, "@") {
		return fmt.Errorf("invalid recipient email: %s", msg.ToEmail)
	}

	recipientName := msg.ToName
	if recipientName == "" {
		recipientName = msg.ToEmail[:strings.Index(msg.ToEmail, "@")]
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": s.SenderName, "email": s.SenderEmail},
		To:          []map[string]string{{"email": msg.ToEmail, "name": recipientName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	}
	for _, a := range msg.Attachments {
		payload.Attachment = append(payload.Attachment, brevoAttachment{
			Content: base64.StdEncoding.EncodeToString(a.Content),
			Name:    a.Name,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("failed to send email via Brevo: status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

type LogMailer struct {
	Log logrus.FieldLogger
}

func (m LogMailer) Send(ctx context.Context, msg Message) error {
	m.Log.WithFields(logrus.Fields{"to": msg.ToEmail, "subject": msg.Subject}).
		Info("Email client not initialized, skipping email send.")
	return nil
}

// Deliver sends msg and only logs a failure. Transactional email never
// rolls back or blocks the booking flow.
func Deliver(ctx context.Context, m Mailer, msg Message, log logrus.FieldLogger) {
	if err := m.Send(ctx, msg); err != nil {
		metrics.EmailFailures.Inc()
		log.WithError(err).WithField("to", msg.ToEmail).Error("🔥 Failed to send email")
		return
	}
	log.WithField("to", msg.ToEmail).Debug("✅ Email sent successfully")
}

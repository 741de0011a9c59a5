// Package mailer delivers verification codes by e-mail through the Resend HTTP API or
// plain SMTP. Without credentials it only logs the message.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"time"

	"roomresq/backend/internal/config"
)

const resendEndpoint = "https://api.resend.com/emails"

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New picks SMTP when enabled, Resend when an API key is set, otherwise the log sender.
func New(cfg config.MailConfig) Sender {
	switch {
	case cfg.SMTPEnabled:
		return &SMTPSender{cfg: cfg}
	case cfg.ResendAPIKey != "":
		return NewResendSender(cfg.ResendAPIKey, cfg.FromEmail)
	default:
		log.Println("WARNING: No mail transport configured, verification codes will only be logged")
		return LogSender{}
	}
}

// VerificationMessage renders the verification code mail.
func VerificationMessage(to, code string) Message {
	return Message{
		To:      to,
		Subject: "Your RoomResQ verification code",
		HTML: fmt.Sprintf(
			`<p>Your verification code is:</p>`+
				`<p style="font-size:24px;letter-spacing:4px"><b>%s</b></p>`+
				`<p>This code expires in %d minutes.</p>`,
			code, int(config.VerificationCodeTTL/time.Minute),
		),
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type ResendSender struct {
	APIKey   string
	From     string
	Endpoint string
	HTTP     *http.Client
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		APIKey:   apiKey,
		From:     from,
		Endpoint: resendEndpoint,
		HTTP:     &http.Client{Timeout: config.ClientRequestTimeout},
	}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(resendRequest{
		From:    s.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend API error: status %d", resp.StatusCode)
	}
	return nil
}

type SMTPSender struct {
	cfg config.MailConfig
}

// Send ignores ctx; net/smtp has no context support.
func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort

	raw := "From: " + s.cfg.FromEmail + "\r\n" +
		"To: " + msg.To + "\r\n" +
		"Subject: " + msg.Subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		msg.HTML

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{msg.To}, []byte(raw)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender is the development fallback.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	log.Printf("INFO: Mail to %s: %s\n%s", msg.To, msg.Subject, msg.HTML)
	return nil
}

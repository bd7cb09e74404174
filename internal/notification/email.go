// internal/notification/email.go

package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"
)

// EmailService sends outbound email.
type EmailService interface {
	SendEmail(ctx context.Context, msg *EmailMessage) error
}

// SMTPEmailService implements email delivery over SMTP
type SMTPEmailService struct {
	from     string
	fromName string
	dialer   *gomail.Dialer
}

// SMTPConfig holds SMTP connection settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// NewSMTPEmailService creates a new SMTP email service
func NewSMTPEmailService(cfg SMTPConfig) (EmailService, error) {
	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" || cfg.From == "" {
		return nil, fmt.Errorf("incomplete SMTP configuration")
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{InsecureSkipVerify: false}

	return &SMTPEmailService{
		from:     cfg.From,
		fromName: cfg.FromName,
		dialer:   dialer,
	}, nil
}

func (s *SMTPEmailService) SendEmail(ctx context.Context, msg *EmailMessage) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.from, s.fromName))
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	if msg.HTML != "" {
		m.SetBody("text/html", msg.HTML)
		if msg.Body != "" {
			m.AddAlternative("text/plain", msg.Body)
		}
	} else {
		m.SetBody("text/plain", msg.Body)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		log.Printf("Failed to send email to %s: %v", msg.To, err)
		return err
	}

	log.Printf("Successfully sent email to %s", msg.To)
	return nil
}

// SendGridEmailService implements email delivery using SendGrid
type SendGridEmailService struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

// NewSendGridEmailService creates a new SendGrid email service
func NewSendGridEmailService(apiKey, from, fromName string) (EmailService, error) {
	if apiKey == "" || from == "" {
		return nil, fmt.Errorf("incomplete SendGrid configuration")
	}

	return &SendGridEmailService{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
	}, nil
}

func (s *SendGridEmailService) SendEmail(ctx context.Context, msg *EmailMessage) error {
	from := sgmail.NewEmail(s.fromName, s.from)
	to := sgmail.NewEmail("", msg.To)
	message := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.HTML)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		log.Printf("Failed to send email via SendGrid to %s: %v", msg.To, err)
		return err
	}
	if response.StatusCode >= http.StatusBadRequest {
		log.Printf("SendGrid rejected email to %s: status %d", msg.To, response.StatusCode)
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	return nil
}

// MockEmailService is a mock implementation for testing and development
type MockEmailService struct {
	SentEmails []*EmailMessage
}

func NewMockEmailService() *MockEmailService {
	return &MockEmailService{
		SentEmails: make([]*EmailMessage, 0),
	}
}

func (m *MockEmailService) SendEmail(ctx context.Context, msg *EmailMessage) error {
	m.SentEmails = append(m.SentEmails, msg)
	log.Printf("Mock: Sending email to %s: %s", msg.To, msg.Subject)
	return nil
}

package mailer

import (
	"context"
	"elearning_backend/internal/config"
	"elearning_backend/pkg/logger"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New 未配置 SendGrid API Key 时退化为只写日志
func New(cfg *config.MailConfig) Mailer {
	if cfg.SendGridAPIKey == "" {
		logger.Log.Warn("SendGrid API key not configured, emails will only be logged")
		return &LogMailer{}
	}
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid http %d: %s", resp.StatusCode, resp.Body)
	}

	logger.Log.Info("Email sent",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

type LogMailer struct{}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	logger.Log.Info("Email (not sent)",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return nil
}

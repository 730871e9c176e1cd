package mailer

import (
	"context"
	"elearning_backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	m := New(&config.MailConfig{})
	assert.IsType(t, &LogMailer{}, m)
	assert.NoError(t, m.Send(context.Background(), Message{ToEmail: "a@example.com", Subject: "hi"}))

	m = New(&config.MailConfig{SendGridAPIKey: "SG.test", FromEmail: "no-reply@example.com"})
	assert.IsType(t, &SendGridMailer{}, m)
}

package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// ResendSender delivers mail through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	logger *zap.SugaredLogger
}

func NewResendSender(apiKey, fromEmail, fromName string, logger *zap.SugaredLogger) (*ResendSender, error) {
	if apiKey == "" {
		return nil, errors.New("resend API key is required")
	}
	if fromEmail == "" {
		return nil, errors.New("from email is required")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	from := fromEmail
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, fromEmail)
	}
	return &ResendSender{client: resend.NewClient(apiKey), from: from, logger: logger}, nil
}

func (s *ResendSender) Send(ctx context.Context, m Message) error {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{m.To},
		Subject: m.Subject,
		Html:    m.HTML,
		Text:    m.Text,
	})
	if err != nil {
		return fmt.Errorf("resend %q: %w", m.Subject, err)
	}
	s.logger.Debugw("email accepted by resend", "to", m.To, "subject", m.Subject, "id", sent.Id)
	return nil
}

// LogSender only logs messages. Used when no mail provider is configured.
type LogSender struct {
	logger *zap.SugaredLogger
}

func NewLogSender(logger *zap.SugaredLogger) *LogSender {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, m Message) error {
	s.logger.Infow("email (not delivered)", "to", m.To, "subject", m.Subject, "body", m.Text)
	return nil
}

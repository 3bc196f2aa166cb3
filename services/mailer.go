package services

import (
	"context"
	"errors"
	"fmt"

	"remindly/model"
	"remindly/utils"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var ErrMailDisabled = errors.New("email delivery is not configured")

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, email model.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.Text)
	if email.HTML != "" {
		msg.AddAlternative("text/html", email.HTML)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", email.To, err)
	}
	utils.Debug("email sent", zap.String("to", email.To), zap.String("subject", email.Subject))
	return nil
}

// DisabledMailer is used when no SMTP host is configured. Every send fails.
type DisabledMailer struct{}

func (DisabledMailer) Send(_ context.Context, email model.Email) error {
	utils.Warn("email dropped, SMTP not configured", zap.String("to", email.To))
	return ErrMailDisabled
}

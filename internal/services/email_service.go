package services

import (
	"context"
	"fmt"

	"github.com/poofware/inventory-service/internal/config"
	"github.com/poofware/inventory-service/internal/metrics"
	"github.com/poofware/inventory-service/internal/utils"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Email is a rendered message. ToName may be empty.
type Email struct {
	ToName    string
	ToAddress string
	Subject   string
	PlainText string
	HTML      string
	Template  string
}

// Mailer delivers rendered emails.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

type sendGridMailer struct {
	client  *sendgrid.Client
	cfg     *config.Config
	metrics *metrics.Metrics
}

func NewSendGridMailer(cfg *config.Config, m *metrics.Metrics) Mailer {
	return &sendGridMailer{
		client:  sendgrid.NewSendClient(cfg.SendGridAPIKey),
		cfg:     cfg,
		metrics: m,
	}
}

func (s *sendGridMailer) Send(ctx context.Context, e Email) error {
	from := mail.NewEmail(s.cfg.OrganizationName, s.cfg.LDFlag_SendgridFromEmail)
	to := mail.NewEmail(e.ToName, e.ToAddress)
	message := mail.NewSingleEmail(from, e.Subject, to, e.PlainText, e.HTML)

	if s.cfg.LDFlag_SendgridSandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		message.MailSettings = ms
	}

	resp, err := s.client.SendWithContext(ctx, message)
	if err == nil && resp != nil && resp.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	s.metrics.RecordEmail(e.Template, err)
	if err != nil {
		utils.Logger.WithError(err).WithField("template", e.Template).Error("Failed to send email")
		return fmt.Errorf("%w: %v", utils.ErrExternalServiceFailure, err)
	}
	return nil
}

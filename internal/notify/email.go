package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

// EmailSender defines the interface for sending emails.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	// Tags are attached as provider metadata so staff can filter alerts.
	Tags    map[string]string
}

// alertTags labels an email with the notification it carries.
func alertTags(msg Message) map[string]string {
	tags := map[string]string{}
	if msg.Kind != "" {
		tags["notification_kind"] = string(msg.Kind)
	}
	if msg.Severity != "" {
		tags["severity"] = string(msg.Severity)
	}
	if msg.RecordID != "" {
		tags["record_id"] = msg.RecordID
	}
	return tags
}

// EmailChannel fans a notification out to a fixed recipient list.
type EmailChannel struct {
	sender     EmailSender
	recipients []string
	logger     *logging.Logger
}

var _ Channel = (*EmailChannel)(nil)

// NewEmailChannel returns nil when there is nothing to send with or to.
func NewEmailChannel(sender EmailSender, recipients []string, logger *logging.Logger) *EmailChannel {
	if sender == nil || len(recipients) == 0 {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailChannel{sender: sender, recipients: recipients, logger: logger}
}

// Send emails every recipient; it fails only if no recipient was reached.
func (c *EmailChannel) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, to := range c.recipients {
		err := c.sender.Send(ctx, EmailMessage{
			To:      to,
			Subject: msg.Subject,
			Body:    msg.Text,
			Tags:    alertTags(msg),
		})
		if err != nil {
			c.logger.Error("notify: failed to send email", "error", err, "to", to)
			errs = append(errs, err)
		}
	}
	if len(errs) == len(c.recipients) {
		return fmt.Errorf("notify: %d email(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

type sendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender sends emails via SendGrid API.
type SendGridSender struct {
	client    sendGridClient
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender creates a new SendGrid email sender.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "Lead Intake"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send sends an email via SendGrid.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, htmlBody(msg.Body))
	for key, value := range msg.Tags {
		message.SetCustomArg(key, value)
	}
	if kind := msg.Tags["notification_kind"]; kind != "" {
		message.AddCategories("lead-" + kind)
	}

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("email sent via sendgrid", "to", msg.To, "subject", msg.Subject, "status", response.StatusCode)
	return nil
}

func htmlBody(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = htmlEscaper.Replace(line)
	}
	return `<div style="font-family: sans-serif; max-width: 600px;">` + strings.Join(lines, "<br>") + `</div>`
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;")

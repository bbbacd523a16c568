package bootstrap

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/lawfirm-intake/internal/config"
	"github.com/wolfman30/lawfirm-intake/internal/notify"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

// BuildNotificationChannel selects the staff notification channel named by
// NOTIFY_CHANNEL. A misconfigured channel is an error, never a silent fallback.
func BuildNotificationChannel(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (notify.Channel, error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch kind := strings.ToLower(strings.TrimSpace(cfg.NotifyChannel)); kind {
	case "", "log":
		return notify.NewLogChannel(logger), nil

	case "webhook":
		ch := notify.NewWebhookChannel(cfg.NotifyWebhookURL, nil, logger)
		if ch == nil {
			return nil, fmt.Errorf("bootstrap: NOTIFY_WEBHOOK_URL is required for the webhook channel")
		}
		return ch, nil

	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil, fmt.Errorf("bootstrap: SENDGRID_API_KEY is required for the sendgrid channel")
		}
		return emailChannel(sender, cfg.NotifyEmailTo, logger)

	case "ses":
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil, fmt.Errorf("bootstrap: SES_FROM_EMAIL is required for the ses channel")
		}
		return emailChannel(sender, cfg.NotifyEmailTo, logger)

	default:
		return nil, fmt.Errorf("bootstrap: unknown notification channel %q", kind)
	}
}

func emailChannel(sender notify.EmailSender, recipients []string, logger *logging.Logger) (notify.Channel, error) {
	ch := notify.NewEmailChannel(sender, recipients, logger)
	if ch == nil {
		return nil, fmt.Errorf("bootstrap: NOTIFY_EMAIL_TO is required for email channels")
	}
	return ch, nil
}

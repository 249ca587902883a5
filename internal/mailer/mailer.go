// internal/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"

	"outreach-pipeline/internal/common/config"
	"outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

// Interfaces for mocking the AWS clients in tests.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Mailer sends transactional email via SES and SMS via SNS. When a
// channel is disabled in config the send becomes a logged dry run so
// local environments never reach AWS.
type Mailer struct {
	cfg    config.EmailConfig
	ses    SESService
	sns    SNSService
	logger logger.Logger
}

func New(cfg config.EmailConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		ses:    sesClient,
		sns:    snsClient,
		logger: log.WithFields(map[string]interface{}{"component": "mailer"}),
	}
}

// SendHTML sends one HTML email and returns the provider message id.
// Provider failures surface as upstream errors with the raw message.
func (m *Mailer) SendHTML(ctx context.Context, to, subject, htmlBody string) (string, error) {
	if !m.cfg.SES.Enabled {
		id := "dry-run-" + uuid.New().String()
		m.logger.Info("email delivery disabled, skipping send", map[string]interface{}{
			"to":      to,
			"subject": subject,
		})
		return id, nil
	}

	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
			},
		},
		Source: aws.String(m.cfg.SES.FromEmail),
	}
	if m.cfg.SES.ReplyTo != "" {
		input.ReplyToAddresses = []string{m.cfg.SES.ReplyTo}
	}

	out, err := m.ses.SendEmail(ctx, input)
	if err != nil {
		return "", errors.NewUpstreamProviderError("ses", 0, err.Error())
	}
	return aws.ToString(out.MessageId), nil
}

// SendSMS publishes one SMS to the given phone number.
func (m *Mailer) SendSMS(ctx context.Context, phone, message string) error {
	if !m.cfg.SNS.Enabled {
		m.logger.Info("sms delivery disabled, skipping send", map[string]interface{}{
			"phone": phone,
		})
		return nil
	}
	_, err := m.sns.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

// InternalAddress is the agency inbox for internal notifications.
func (m *Mailer) InternalAddress() string { return m.cfg.InternalAddress }

// AlertPhone is the on-call number for severity-1 pages.
func (m *Mailer) AlertPhone() string { return m.cfg.SNS.AlertPhone }

package mailer

import (
	"context"
	"errors"
	"testing"

	"outreach-pipeline/internal/common/config"
	stderrors "outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	sendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	calls         []*ses.SendEmailInput
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls = append(m.calls, params)
	if m.sendEmailFunc != nil {
		return m.sendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-123")}, nil
}

type mockSNS struct {
	publishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	calls       []*sns.PublishInput
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls = append(m.calls, params)
	if m.publishFunc != nil {
		return m.publishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{}, nil
}

func enabledConfig() config.EmailConfig {
	cfg := config.EmailConfig{}
	cfg.SES.Enabled = true
	cfg.SES.FromEmail = "hello@agency.test"
	cfg.SES.ReplyTo = "reply@agency.test"
	cfg.SNS.Enabled = true
	return cfg
}

func TestSendHTML_ReturnsProviderMessageID(t *testing.T) {
	sesMock := &mockSES{}
	m := New(enabledConfig(), sesMock, &mockSNS{}, logger.NewNoOpLogger())

	id, err := m.SendHTML(context.Background(), "lead@example.com", "Subject", "<p>Hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)

	require.Len(t, sesMock.calls, 1)
	call := sesMock.calls[0]
	assert.Equal(t, []string{"lead@example.com"}, call.Destination.ToAddresses)
	assert.Equal(t, "hello@agency.test", aws.ToString(call.Source))
	assert.Equal(t, []string{"reply@agency.test"}, call.ReplyToAddresses)
}

func TestSendHTML_ProviderFailureIsUpstreamError(t *testing.T) {
	sesMock := &mockSES{
		sendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("MessageRejected: address not verified")
		},
	}
	m := New(enabledConfig(), sesMock, &mockSNS{}, logger.NewNoOpLogger())

	_, err := m.SendHTML(context.Background(), "lead@example.com", "Subject", "<p>Hi</p>")
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeUpstreamProvider, stdErr.Code)
	assert.Contains(t, stdErr.Details, "MessageRejected")
}

func TestSendHTML_DisabledChannelIsDryRun(t *testing.T) {
	cfg := enabledConfig()
	cfg.SES.Enabled = false
	sesMock := &mockSES{}
	m := New(cfg, sesMock, &mockSNS{}, logger.NewNoOpLogger())

	id, err := m.SendHTML(context.Background(), "lead@example.com", "Subject", "<p>Hi</p>")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Empty(t, sesMock.calls, "disabled channel must not reach the provider")
}

func TestSendSMS(t *testing.T) {
	snsMock := &mockSNS{}
	m := New(enabledConfig(), &mockSES{}, snsMock, logger.NewNoOpLogger())

	require.NoError(t, m.SendSMS(context.Background(), "+15550001111", "sev-1 open"))
	require.Len(t, snsMock.calls, 1)
	assert.Equal(t, "+15550001111", aws.ToString(snsMock.calls[0].PhoneNumber))
}

package notify

import (
	"context"
	"errors"
	"testing"

	pkgerrors "outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	site     *models.MonitoredSite
	incident *models.Incident
	recorded []*models.Notification
}

func (m *mockStore) GetSite(ctx context.Context, id string) (*models.MonitoredSite, error) {
	return m.site, nil
}

func (m *mockStore) GetIncident(ctx context.Context, id string) (*models.Incident, error) {
	return m.incident, nil
}

func (m *mockStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	m.recorded = append(m.recorded, n)
	return nil
}

type mockMailer struct {
	emailErr   error
	emails     []string // addresses
	smsNumbers []string
	alertPhone string
}

func (m *mockMailer) SendHTML(ctx context.Context, to, subject, htmlBody string) (string, error) {
	m.emails = append(m.emails, to)
	return "msg-1", m.emailErr
}

func (m *mockMailer) SendSMS(ctx context.Context, phone, message string) error {
	m.smsNumbers = append(m.smsNumbers, phone)
	return nil
}

func (m *mockMailer) InternalAddress() string { return "team@agency.test" }
func (m *mockMailer) AlertPhone() string      { return m.alertPhone }

func siteWithTier(tier string) *mockStore {
	return &mockStore{
		site: &models.MonitoredSite{
			ID:               "site-1",
			Domain:           "client.example",
			SubscriptionTier: tier,
			ContactEmails:    []string{"owner@client.example"},
		},
		incident: &models.Incident{ID: "inc-1", SiteID: "site-1", Severity: models.SevOne, Summary: "site down"},
	}
}

func input(severity string, isNew, isResolved bool) *Input {
	return &Input{
		IncidentID: "inc-1",
		SiteID:     "site-1",
		Severity:   severity,
		IsNew:      isNew,
		IsResolved: isResolved,
	}
}

func TestExecute_SevOneOnTierNoneIsInternalOnly(t *testing.T) {
	st := siteWithTier(models.TierNone)
	m := &mockMailer{}
	h := NewHandler(st, m, logger.NewNoOpLogger())

	out, err := h.Execute(context.Background(), input(models.SevOne, true, false))
	require.NoError(t, err)

	require.Len(t, st.recorded, 1, "exactly one notification recorded")
	assert.Equal(t, models.RecipientInternal, st.recorded[0].Recipient)
	assert.Equal(t, []string{"team@agency.test"}, m.emails)
	assert.Equal(t, 1, out.NotificationsSent)
}

func TestExecute_CareResolutionNotifiesBoth(t *testing.T) {
	st := siteWithTier(models.TierCare)
	m := &mockMailer{}
	h := NewHandler(st, m, logger.NewNoOpLogger())

	out, err := h.Execute(context.Background(), input(models.SevOne, false, true))
	require.NoError(t, err)

	require.Len(t, out.Notifications, 2)
	assert.Equal(t, 2, out.NotificationsSent)
	assert.ElementsMatch(t, []string{"team@agency.test", "owner@client.example"}, m.emails)
}

func TestExecute_NewSevOnePagesInternalSMS(t *testing.T) {
	st := siteWithTier(models.TierCare)
	m := &mockMailer{alertPhone: "+15550001111"}
	h := NewHandler(st, m, logger.NewNoOpLogger())

	out, err := h.Execute(context.Background(), input(models.SevOne, true, false))
	require.NoError(t, err)

	assert.Equal(t, []string{"+15550001111"}, m.smsNumbers)
	var smsResults []NotificationResult
	for _, n := range out.Notifications {
		if n.Channel == models.ChannelSMS {
			smsResults = append(smsResults, n)
		}
	}
	require.Len(t, smsResults, 1)
	assert.Equal(t, models.RecipientInternal, smsResults[0].Recipient)
}

func TestExecute_FailedSendIsStillRecorded(t *testing.T) {
	st := siteWithTier(models.TierNone)
	m := &mockMailer{emailErr: errors.New("provider down")}
	h := NewHandler(st, m, logger.NewNoOpLogger())

	out, err := h.Execute(context.Background(), input(models.SevTwo, true, false))
	require.NoError(t, err, "dispatch succeeds even when the provider fails")

	require.Len(t, st.recorded, 1)
	assert.False(t, st.recorded[0].Success)
	assert.Contains(t, st.recorded[0].Error, string(pkgerrors.ErrCodeNotificationSendFailed))
	assert.Contains(t, st.recorded[0].Error, "channel: "+models.ChannelEmail)
	assert.Contains(t, st.recorded[0].Error, "provider down")
	assert.Equal(t, 0, out.NotificationsSent)
	require.Len(t, out.Notifications, 1)
	assert.False(t, out.Notifications[0].Success)
}

func TestExecute_EveryClientContactGetsTheEmail(t *testing.T) {
	st := siteWithTier(models.TierCare)
	st.site.ContactEmails = []string{"a@client.example", "b@client.example"}
	m := &mockMailer{}
	h := NewHandler(st, m, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), input(models.SevTwo, true, false))
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"team@agency.test", "a@client.example", "b@client.example"}, m.emails)
}

package send

import (
	"context"
	"testing"
	"time"

	stderrors "outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	draft      *models.EmailDraft
	lead       *models.Lead
	suppressed bool
	sentDrafts map[string]string // draft id → message id
}

func (m *mockStore) GetDraft(ctx context.Context, id string) (*models.EmailDraft, error) {
	return m.draft, nil
}

func (m *mockStore) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	return m.lead, nil
}

func (m *mockStore) IsSuppressed(ctx context.Context, email string) (bool, error) {
	return m.suppressed, nil
}

func (m *mockStore) MarkDraftSent(ctx context.Context, id, messageID string, sentAt time.Time) error {
	if m.sentDrafts == nil {
		m.sentDrafts = map[string]string{}
	}
	m.sentDrafts[id] = messageID
	return nil
}

type mockSender struct {
	messageID string
	err       error
	calls     int
}

func (m *mockSender) SendHTML(ctx context.Context, to, subject, htmlBody string) (string, error) {
	m.calls++
	return m.messageID, m.err
}

func baseStore() *mockStore {
	return &mockStore{
		draft: &models.EmailDraft{
			ID:       "draft-1",
			LeadID:   "lead-1",
			Subject:  "Subject",
			BodyHTML: "<p>Hi</p>",
			Status:   models.DraftStatusDraft,
		},
		lead: &models.Lead{ID: "lead-1", Email: "dana@example.com"},
	}
}

func TestExecute_SendsAndRecordsMessageID(t *testing.T) {
	st := baseStore()
	sender := &mockSender{messageID: "ses-msg-1"}
	h := NewHandler(st, sender, logger.NewNoOpLogger())

	out, err := h.Execute(context.Background(), &Input{EmailDraftID: "draft-1"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "ses-msg-1", out.MessageID)
	assert.Equal(t, "dana@example.com", out.SentTo)
	assert.Equal(t, "ses-msg-1", st.sentDrafts["draft-1"])
}

func TestExecute_SuppressionRecheckSkips(t *testing.T) {
	st := baseStore()
	st.suppressed = true
	sender := &mockSender{}
	h := NewHandler(st, sender, logger.NewNoOpLogger())

	out, err := h.Execute(context.Background(), &Input{EmailDraftID: "draft-1"})
	require.NoError(t, err, "suppression skip is non-fatal")
	assert.False(t, out.Success)
	assert.True(t, out.Skipped)
	assert.Equal(t, "Email is suppressed", out.Error)
	assert.Zero(t, sender.calls, "no provider call for a suppressed address")
	assert.Empty(t, st.sentDrafts)
}

func TestExecute_ProviderFailureSurfacesAndDoesNotRetry(t *testing.T) {
	st := baseStore()
	sender := &mockSender{err: stderrors.NewUpstreamProviderError("ses", 0, "MessageRejected")}
	h := NewHandler(st, sender, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{EmailDraftID: "draft-1"})
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeUpstreamProvider, stdErr.Code)
	assert.Equal(t, 1, sender.calls, "exactly one attempt, retry is the caller's job")
	assert.Empty(t, st.sentDrafts, "failed send leaves the draft untouched")
}

func TestExecute_AlreadySentDraftRejected(t *testing.T) {
	st := baseStore()
	st.draft.Status = models.DraftStatusSent
	h := NewHandler(st, &mockSender{}, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{EmailDraftID: "draft-1"})
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeValidationFailed, stdErr.Code)
}

package queue

import (
	"context"
	"testing"
	"time"

	stderrors "outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/models"
	"outreach-pipeline/internal/stages/audit"
	"outreach-pipeline/internal/stages/draft"
	"outreach-pipeline/internal/stages/send"
	"outreach-pipeline/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	item       *models.QueueItem
	claimErr   error
	lead       *models.Lead
	audit      *models.SiteAudit
	auditErr   error
	completed  map[string]bool // item id → suppressed flag
	failed     map[string]string
}

func (m *mockStore) ClaimNextScheduled(ctx context.Context, now time.Time) (*models.QueueItem, error) {
	return m.item, m.claimErr
}

func (m *mockStore) CompleteItem(ctx context.Context, id string, suppressed bool) error {
	if m.completed == nil {
		m.completed = map[string]bool{}
	}
	m.completed[id] = suppressed
	return nil
}

func (m *mockStore) FailItem(ctx context.Context, id, errMsg string) error {
	if m.failed == nil {
		m.failed = map[string]string{}
	}
	m.failed[id] = errMsg
	return nil
}

func (m *mockStore) Enqueue(ctx context.Context, leadID string, sendAt time.Time) (*models.QueueItem, error) {
	return &models.QueueItem{ID: "item-new", LeadID: leadID, Status: models.QueueStatusScheduled, ScheduledSendAt: sendAt}, nil
}

func (m *mockStore) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	if m.lead == nil {
		return nil, store.ErrNotFound
	}
	return m.lead, nil
}

func (m *mockStore) GetLatestAudit(ctx context.Context, leadID string) (*models.SiteAudit, error) {
	return m.audit, m.auditErr
}

type mockGate struct {
	ok           bool
	reason       string
	capExhausted bool
	reserves     int
	releases     int
}

func (m *mockGate) CanProcess(ctx context.Context, now time.Time) (bool, string, error) {
	return m.ok, m.reason, nil
}

func (m *mockGate) ReserveSend(ctx context.Context, now time.Time) (bool, error) {
	m.reserves++
	return !m.capExhausted, nil
}

func (m *mockGate) ReleaseSend(ctx context.Context, now time.Time) error {
	m.releases++
	return nil
}

type mockAudit struct {
	out   *audit.Output
	err   error
	calls int
}

func (m *mockAudit) Execute(ctx context.Context, input *audit.Input) (*audit.Output, error) {
	m.calls++
	return m.out, m.err
}

type mockDraft struct {
	out *draft.Output
	err error
}

func (m *mockDraft) Execute(ctx context.Context, input *draft.Input) (*draft.Output, error) {
	return m.out, m.err
}

type mockSend struct {
	out *send.Output
	err error
}

func (m *mockSend) Execute(ctx context.Context, input *send.Input) (*send.Output, error) {
	return m.out, m.err
}

func dueItem() *models.QueueItem {
	return &models.QueueItem{ID: "item-1", LeadID: "lead-1", Status: models.QueueStatusProcessing}
}

func readyStore() *mockStore {
	return &mockStore{
		item:  dueItem(),
		lead:  &models.Lead{ID: "lead-1", Email: "dana@example.com", WebsiteURL: "https://example.com"},
		audit: &models.SiteAudit{ID: "audit-1", LeadID: "lead-1"},
	}
}

func happyStages() (*mockAudit, *mockDraft, *mockSend) {
	return &mockAudit{out: &audit.Output{Success: true}},
		&mockDraft{out: &draft.Output{Success: true, EmailDraftID: "draft-1"}},
		&mockSend{out: &send.Output{Success: true, MessageID: "msg-1"}}
}

func newTestHandler(st *mockStore, g *mockGate, a *mockAudit, d *mockDraft, s *mockSend) *Handler {
	return NewHandler(st, g, a, d, s, logger.NewNoOpLogger())
}

func TestProcess_ClosedGateIsSuccessfulNoOp(t *testing.T) {
	st := readyStore()
	a, d, s := happyStages()
	h := newTestHandler(st, &mockGate{ok: false, reason: "outside business hours"}, a, d, s)

	out, err := h.Process(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.False(t, out.Processed)
	assert.Equal(t, "outside business hours", out.Reason)
	assert.Empty(t, st.completed)
}

func TestProcess_EmptyQueueIsSuccessfulNoOp(t *testing.T) {
	st := readyStore()
	st.item = nil
	st.claimErr = store.ErrNotFound
	a, d, s := happyStages()
	h := newTestHandler(st, &mockGate{ok: true}, a, d, s)

	out, err := h.Process(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.False(t, out.Processed)
}

func TestProcess_FullRunCompletesItemAndCountsSend(t *testing.T) {
	st := readyStore()
	a, d, s := happyStages()
	g := &mockGate{ok: true}
	h := newTestHandler(st, g, a, d, s)

	out, err := h.Process(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Processed)
	assert.Equal(t, "item-1", out.QueueItemID)

	suppressed, completed := st.completed["item-1"]
	assert.True(t, completed)
	assert.False(t, suppressed)
	assert.Equal(t, 1, g.reserves, "successful send consumes one budget slot")
	assert.Zero(t, g.releases, "a consumed slot stays consumed")
	assert.Zero(t, a.calls, "audit skipped when a latest audit already exists")
}

func TestProcess_AuditsFirstWhenNoLatestAudit(t *testing.T) {
	st := readyStore()
	st.audit = nil
	st.auditErr = store.ErrNotFound
	a, d, s := happyStages()
	h := newTestHandler(st, &mockGate{ok: true}, a, d, s)

	_, err := h.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls)
}

func TestProcess_SuppressedLeadCompletesWithFlag(t *testing.T) {
	st := readyStore()
	a, _, s := happyStages()
	d := &mockDraft{out: &draft.Output{Success: false, Error: "Email is suppressed"}}
	g := &mockGate{ok: true}
	h := newTestHandler(st, g, a, d, s)

	out, err := h.Process(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Processed)
	assert.True(t, out.Suppressed)

	suppressed, completed := st.completed["item-1"]
	assert.True(t, completed)
	assert.True(t, suppressed)
	assert.Equal(t, g.reserves, g.releases, "suppressed run must not consume the budget")
}

func TestProcess_FailureMarksItemFailedAndReturnsError(t *testing.T) {
	st := readyStore()
	a, _, s := happyStages()
	d := &mockDraft{err: stderrors.NewGenerationFailedError(assert.AnError)}
	h := newTestHandler(st, &mockGate{ok: true}, a, d, s)

	_, err := h.Process(context.Background())
	require.Error(t, err, "caller sees the failure")
	require.Contains(t, st.failed, "item-1", "queue state is durably recorded")
	assert.Contains(t, st.failed["item-1"], "generation failed")
	assert.Empty(t, st.completed)
}

func TestEnqueue(t *testing.T) {
	st := readyStore()
	a, d, s := happyStages()
	h := newTestHandler(st, &mockGate{ok: true}, a, d, s)

	out, err := h.Enqueue(context.Background(), &EnqueueInput{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.QueueItemID)
	assert.False(t, out.ScheduledSendAt.IsZero(), "unset schedule defaults to now")
}

func TestProcess_CapRaceLoserNoOps(t *testing.T) {
	st := readyStore()
	a, d, s := happyStages()
	// CanProcess read the counter before the last slot went, but the
	// atomic reservation loses the race.
	g := &mockGate{ok: true, capExhausted: true}
	h := newTestHandler(st, g, a, d, s)

	out, err := h.Process(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.False(t, out.Processed)
	assert.Equal(t, "daily send cap reached", out.Reason)
	assert.Equal(t, 1, g.releases, "the failed reservation must not inflate the counter")
	assert.Empty(t, st.completed, "nothing is claimed over the cap")
}

func TestProcess_EmptyQueueReturnsReservedSlot(t *testing.T) {
	st := readyStore()
	st.item = nil
	st.claimErr = store.ErrNotFound
	a, d, s := happyStages()
	g := &mockGate{ok: true}
	h := newTestHandler(st, g, a, d, s)

	_, err := h.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, g.releases, "an idle tick must not burn budget")
}

package orchestrator

import (
	"context"
	"net/http"
	"testing"
	"time"

	"outreach-pipeline/internal/common/config"
	stderrors "outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/models"
	"outreach-pipeline/internal/stages/audit"
	"outreach-pipeline/internal/stages/draft"
	"outreach-pipeline/internal/stages/insights"
	"outreach-pipeline/internal/stages/send"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	lead       *models.Lead
	suppressed bool
}

func (m *mockStore) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	return m.lead, nil
}

func (m *mockStore) IsSuppressed(ctx context.Context, email string) (bool, error) {
	return m.suppressed, nil
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

type mockInsights struct {
	result *insights.Result
}

func (m *mockInsights) Execute(ctx context.Context, leadID string) *insights.Result {
	return m.result
}

type mockDraft struct {
	out   *draft.Output
	err   error
	calls int
}

func (m *mockDraft) ExecuteWithInsights(ctx context.Context, leadID string, res *insights.Result) (*draft.Output, error) {
	m.calls++
	return m.out, m.err
}

type mockSend struct {
	out   *send.Output
	err   error
	calls int
}

func (m *mockSend) Execute(ctx context.Context, input *send.Input) (*send.Output, error) {
	m.calls++
	return m.out, m.err
}

func happyStages() (*mockAudit, *mockInsights, *mockDraft, *mockSend) {
	return &mockAudit{out: &audit.Output{Success: true, AuditID: "audit-1"}},
		&mockInsights{result: &insights.Result{Insights: []string{"obs"}}},
		&mockDraft{out: &draft.Output{Success: true, EmailDraftID: "draft-1", Template: "generated"}},
		&mockSend{out: &send.Output{Success: true, MessageID: "msg-1"}}
}

func newTestHandler(st *mockStore, a AuditStage, i InsightStage, d DraftStage, s SendStage) *Handler {
	return NewHandler(st, a, i, d, s,
		config.PipelineConfig{OrchestratorBudget: 180000}, logger.NewNoOpLogger())
}

func TestExecute_FullSuccessIs200(t *testing.T) {
	st := &mockStore{lead: &models.Lead{ID: "lead-1", Email: "dana@example.com", WebsiteURL: "https://example.com"}}
	a, i, d, s := happyStages()
	h := newTestHandler(st, a, i, d, s)

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, http.StatusOK, out.HTTPStatus())
	assert.True(t, out.Steps.Audit.Success)
	assert.True(t, out.Steps.Insights.Success)
	assert.True(t, out.Steps.Email.Success)
	assert.True(t, out.Steps.Send.Success)
}

func TestExecute_SuppressedLeadSkipsEverything(t *testing.T) {
	st := &mockStore{
		lead:       &models.Lead{ID: "lead-1", Email: "dana@example.com"},
		suppressed: true,
	}
	a, i, d, s := happyStages()
	h := newTestHandler(st, a, i, d, s)

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "Email is suppressed", out.Error)
	assert.Equal(t, http.StatusOK, out.HTTPStatus(), "suppression is not an HTTP failure")

	for name, step := range map[string]StepResult{
		"audit": out.Steps.Audit, "insights": out.Steps.Insights,
		"email": out.Steps.Email, "send": out.Steps.Send,
	} {
		assert.True(t, step.Skipped, "step %s must be skipped", name)
	}
	assert.Zero(t, a.calls)
	assert.Zero(t, d.calls)
	assert.Zero(t, s.calls)
}

func TestExecute_AuditFailureIs500(t *testing.T) {
	st := &mockStore{lead: &models.Lead{ID: "lead-1", Email: "dana@example.com", WebsiteURL: "https://example.com"}}
	_, i, d, s := happyStages()
	a := &mockAudit{err: stderrors.NewUpstreamProviderError("pagespeed", 503, "down")}
	h := newTestHandler(st, a, i, d, s)

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, http.StatusInternalServerError, out.HTTPStatus())
	assert.NotEmpty(t, out.Steps.Audit.Error)
	assert.Zero(t, d.calls, "draft must not run after a failed audit")
	assert.Zero(t, s.calls)
}

func TestExecute_InsightFailureDoesNotAbort(t *testing.T) {
	st := &mockStore{lead: &models.Lead{ID: "lead-1", Email: "dana@example.com", WebsiteURL: "https://example.com"}}
	a, _, d, s := happyStages()
	i := &mockInsights{result: &insights.Result{Skipped: true, Reason: "provider down"}}
	h := newTestHandler(st, a, i, d, s)

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, http.StatusOK, out.HTTPStatus())
	assert.True(t, out.Steps.Insights.Skipped)
	assert.Equal(t, 1, d.calls)
	assert.Equal(t, 1, s.calls)
}

func TestExecute_DraftFailureIs500(t *testing.T) {
	st := &mockStore{lead: &models.Lead{ID: "lead-1", Email: "dana@example.com", WebsiteURL: "https://example.com"}}
	a, i, _, s := happyStages()
	d := &mockDraft{err: stderrors.NewGenerationFailedError(assert.AnError)}
	h := newTestHandler(st, a, i, d, s)

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, http.StatusInternalServerError, out.HTTPStatus())
	assert.Zero(t, s.calls)
}

func TestExecute_SendFailureIsPartialSuccess(t *testing.T) {
	st := &mockStore{lead: &models.Lead{ID: "lead-1", Email: "dana@example.com", WebsiteURL: "https://example.com"}}
	a, i, d, _ := happyStages()
	s := &mockSend{err: stderrors.NewUpstreamProviderError("ses", 0, "MessageRejected")}
	h := newTestHandler(st, a, i, d, s)

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.True(t, out.Success, "draft survives for manual resend")
	assert.Equal(t, http.StatusMultiStatus, out.HTTPStatus())
	assert.True(t, out.Steps.Email.Success)
	assert.NotEmpty(t, out.Steps.Send.Error)
}

// End-to-end shape: a lead whose site scores high across the board
// completes fully with the high-score template.
func TestExecute_HighScoreScenario(t *testing.T) {
	st := &mockStore{lead: &models.Lead{ID: "lead-1", Email: "dana@example.com", WebsiteURL: "https://example.com"}}
	score := func(v float64) *float64 { return &v }
	a := &mockAudit{out: &audit.Output{
		Success: true,
		AuditID: "audit-1",
		Scores: models.CategoryScores{
			Performance:   score(95),
			Accessibility: score(90),
			SEO:           score(88),
			BestPractices: score(82),
		},
	}}
	i := &mockInsights{result: &insights.Result{Skipped: true, Reason: "not needed"}}
	d := &mockDraft{out: &draft.Output{Success: true, EmailDraftID: "draft-1", Template: "high_score"}}
	s := &mockSend{out: &send.Output{Success: true, MessageID: "msg-1"}}
	h := newTestHandler(st, a, i, d, s)

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, http.StatusOK, out.HTTPStatus())

	draftData, ok := out.Steps.Email.Data.(*draft.Output)
	require.True(t, ok)
	assert.Equal(t, "high_score", draftData.Template)
}

func TestExecute_LateSuppressionKeepsCompletedSteps(t *testing.T) {
	st := &mockStore{lead: &models.Lead{ID: "lead-1", Email: "dana@example.com", WebsiteURL: "https://example.com"}}
	a, i, _, s := happyStages()
	// The address lands on the suppression list after the up-front check
	// but before drafting; the drafter reports the skip.
	d := &mockDraft{out: &draft.Output{Success: false, Error: "Email is suppressed"}}
	h := newTestHandler(st, a, i, d, s)

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, http.StatusOK, out.HTTPStatus())
	assert.Equal(t, "Email is suppressed", out.Error)

	// The audit ran and persisted; its result must not be reported as skipped.
	assert.True(t, out.Steps.Audit.Success)
	assert.False(t, out.Steps.Audit.Skipped)
	assert.True(t, out.Steps.Insights.Success)
	assert.True(t, out.Steps.Email.Skipped)
	assert.True(t, out.Steps.Send.Skipped)
	assert.Equal(t, 0, s.calls, "nothing must be sent to a suppressed address")
}

type deadlineAudit struct {
	inner   *mockAudit
	capture func(context.Context)
}

func (m *deadlineAudit) Execute(ctx context.Context, input *audit.Input) (*audit.Output, error) {
	m.capture(ctx)
	return m.inner.Execute(ctx, input)
}

type deadlineSend struct {
	inner   *mockSend
	capture func(context.Context)
}

func (m *deadlineSend) Execute(ctx context.Context, input *send.Input) (*send.Output, error) {
	m.capture(ctx)
	return m.inner.Execute(ctx, input)
}

func TestExecute_EachStepGetsItsOwnDeadline(t *testing.T) {
	st := &mockStore{lead: &models.Lead{ID: "lead-1", Email: "dana@example.com", WebsiteURL: "https://example.com"}}
	a, i, d, s := happyStages()

	var remaining []time.Duration
	capture := func(ctx context.Context) {
		dl, ok := ctx.Deadline()
		require.True(t, ok, "every step must run under a deadline")
		remaining = append(remaining, time.Until(dl))
	}

	h := NewHandler(st,
		&deadlineAudit{inner: a, capture: capture}, i, d,
		&deadlineSend{inner: s, capture: capture},
		config.PipelineConfig{OrchestratorBudget: 180000, StageTimeout: 50},
		logger.NewNoOpLogger())

	out, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})
	require.NoError(t, err)
	require.True(t, out.Success)

	require.Len(t, remaining, 2)
	for _, left := range remaining {
		// The run budget alone would leave minutes on the clock; the
		// per-step timeout caps each call far tighter than that.
		assert.LessOrEqual(t, left, 50*time.Millisecond)
		assert.Greater(t, left, time.Duration(0))
	}
}

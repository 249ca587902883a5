package insights

import (
	"context"
	"errors"
	"testing"

	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/models"
	"outreach-pipeline/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	lead     *models.Lead
	leadErr  error
	audit    *models.SiteAudit
	auditErr error
}

func (m *mockStore) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	return m.lead, m.leadErr
}

func (m *mockStore) GetLatestAudit(ctx context.Context, leadID string) (*models.SiteAudit, error) {
	return m.audit, m.auditErr
}

type mockCompleter struct {
	text string
	err  error
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return m.text, m.err
}

func score(v float64) *float64 { return &v }

func storeWithAudit() *mockStore {
	return &mockStore{
		lead: &models.Lead{ID: "lead-1", Business: "Corner Bakery"},
		audit: &models.SiteAudit{
			LeadID: "lead-1",
			URL:    "https://cornerbakery.example",
			Scores: models.CategoryScores{Performance: score(45), SEO: score(70)},
		},
	}
}

func TestExecute_ReturnsParsedInsights(t *testing.T) {
	h := NewHandler(storeWithAudit(), &mockCompleter{
		text: `["Your site takes a while to load on phones.", "Search engines have trouble finding you."]`,
	}, logger.NewNoOpLogger())

	res := h.Execute(context.Background(), "lead-1")
	assert.False(t, res.Skipped)
	assert.Len(t, res.Insights, 2)
}

func TestExecute_AcceptsWrappedObject(t *testing.T) {
	h := NewHandler(storeWithAudit(), &mockCompleter{
		text: `{"insights": ["One observation.", "  ", "Another."]}`,
	}, logger.NewNoOpLogger())

	res := h.Execute(context.Background(), "lead-1")
	assert.False(t, res.Skipped)
	assert.Equal(t, []string{"One observation.", "Another."}, res.Insights)
}

func TestExecute_NeverReturnsError(t *testing.T) {
	tests := []struct {
		name       string
		store      *mockStore
		completer  *mockCompleter
		wantReason string
	}{
		{
			name:       "lead missing",
			store:      &mockStore{leadErr: store.ErrNotFound},
			completer:  &mockCompleter{},
			wantReason: "lead not found",
		},
		{
			name:       "no audit",
			store:      &mockStore{lead: &models.Lead{ID: "lead-1"}, auditErr: store.ErrNotFound},
			completer:  &mockCompleter{},
			wantReason: "no audit available",
		},
		{
			name:      "completion fails",
			store:     storeWithAudit(),
			completer: &mockCompleter{err: errors.New("provider down")},
		},
		{
			name:      "malformed output",
			store:     storeWithAudit(),
			completer: &mockCompleter{text: "here are some thoughts, unquoted"},
		},
		{
			name:      "empty list",
			store:     storeWithAudit(),
			completer: &mockCompleter{text: "[]"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.store, tt.completer, logger.NewNoOpLogger())
			res := h.Execute(context.Background(), "lead-1")
			require.NotNil(t, res)
			assert.True(t, res.Skipped)
			assert.Empty(t, res.Insights)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, res.Reason)
			} else {
				assert.NotEmpty(t, res.Reason)
			}
		})
	}
}

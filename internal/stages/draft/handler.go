// internal/stages/draft/handler.go
package draft

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"outreach-pipeline/internal/common/config"
	"outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/common/metrics"
	"outreach-pipeline/internal/mailer"
	"outreach-pipeline/internal/models"
	"outreach-pipeline/internal/stages/insights"
	"outreach-pipeline/internal/store"

	"github.com/google/uuid"
)

const StageName = "draft"

const suppressedMessage = "Email is suppressed"

type Store interface {
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	GetLatestAudit(ctx context.Context, leadID string) (*models.SiteAudit, error)
	IsSuppressed(ctx context.Context, email string) (bool, error)
	InsertDraft(ctx context.Context, draft *models.EmailDraft) error
	UpdateLeadStatus(ctx context.Context, id, status string) error
}

// Insighter runs the best-effort insight step when no precomputed
// result is supplied.
type Insighter interface {
	Execute(ctx context.Context, leadID string) *insights.Result
}

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Handler struct {
	store     Store
	insighter Insighter
	genai     Completer
	cfg       config.PipelineConfig
	signature string
	logger    logger.Logger
}

func NewHandler(st Store, insighter Insighter, genai Completer, cfg config.PipelineConfig, signatureName string, log logger.Logger) *Handler {
	return &Handler{
		store:     st,
		insighter: insighter,
		genai:     genai,
		cfg:       cfg,
		signature: signatureName,
		logger:    log.WithFields(map[string]interface{}{"stage": StageName}),
	}
}

// Execute drafts an outreach email, running the insight step itself.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.run(ctx, input.LeadID, nil)
}

// ExecuteWithInsights drafts using a caller-supplied insight result,
// letting the orchestrator avoid a second generation run.
func (h *Handler) ExecuteWithInsights(ctx context.Context, leadID string, res *insights.Result) (*Output, error) {
	if res == nil {
		res = &insights.Result{Skipped: true, Reason: "not run"}
	}
	return h.run(ctx, leadID, res)
}

func (h *Handler) run(ctx context.Context, leadID string, res *insights.Result) (*Output, error) {
	started := time.Now()
	out, err := h.execute(ctx, leadID, res)
	metrics.StageRunDuration.WithLabelValues(StageName).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.StageRunsFailed.WithLabelValues(StageName, string(errors.Normalize(err).Code)).Inc()
		return nil, err
	}
	metrics.StageRunsCompleted.WithLabelValues(StageName).Inc()
	return out, nil
}

func (h *Handler) execute(ctx context.Context, leadID string, res *insights.Result) (*Output, error) {
	lead, err := h.store.GetLead(ctx, leadID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewResourceNotFoundError("Lead", leadID)
		}
		return nil, errors.NewDatabaseQueryFailedError(err)
	}

	suppressed, err := h.store.IsSuppressed(ctx, lead.Email)
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	if suppressed {
		metrics.SuppressionHits.Inc()
		h.logger.Info("draft skipped, address suppressed", map[string]interface{}{"leadId": lead.ID})
		return &Output{Success: false, Error: suppressedMessage}, nil
	}

	audit, err := h.store.GetLatestAudit(ctx, lead.ID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewAuditMissingError(lead.ID)
		}
		return nil, errors.NewDatabaseQueryFailedError(err)
	}

	if res == nil {
		res = h.insighter.Execute(ctx, lead.ID)
	}
	insightsAvailable := !res.Skipped && len(res.Insights) > 0

	kind := SelectTemplate(audit.Scores, insightsAvailable)

	signature := buildSignature(h.signature)
	footer := buildFooter(h.cfg.UnsubscribeBaseURL, lead.Email,
		mailer.UnsubscribeToken(h.cfg.UnsubscribeSecret, lead.Email))

	var body string
	switch kind {
	case TemplateHighScore:
		body = buildHighScoreBody(lead, audit, signature, footer)
	case TemplateSimplified:
		body = buildSimplifiedBody(lead, audit, signature, footer)
	case TemplateGenerated:
		body, err = h.generateBody(ctx, lead, audit, res.Insights, signature, footer)
		if err != nil {
			return nil, err
		}
	}

	draft := &models.EmailDraft{
		ID:        uuid.New().String(),
		LeadID:    lead.ID,
		Subject:   subjectLine,
		BodyHTML:  body,
		Template:  string(kind),
		Status:    models.DraftStatusDraft,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.InsertDraft(ctx, draft); err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}
	if err := h.store.UpdateLeadStatus(ctx, lead.ID, models.LeadStatusEmailed); err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}

	h.logger.Info("draft created", map[string]interface{}{
		"leadId":   lead.ID,
		"draftId":  draft.ID,
		"template": draft.Template,
	})

	return &Output{
		Success:      true,
		EmailDraftID: draft.ID,
		Subject:      draft.Subject,
		Body:         draft.BodyHTML,
		Template:     draft.Template,
	}, nil
}

// generateBody asks the model for the adaptive middle of the email and
// wraps it with the fixed signature and unsubscribe footer.
func (h *Handler) generateBody(ctx context.Context, lead *models.Lead, audit *models.SiteAudit, insightsList []string, signature, footer string) (string, error) {
	raw, err := h.genai.Complete(ctx, buildGenerationPrompt(lead, audit, insightsList))
	if err != nil {
		return "", errors.NewGenerationFailedError(err)
	}

	var parsed struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return "", errors.NewGenerationFailedError(fmt.Errorf("malformed model output: %w", err))
	}
	body := strings.TrimSpace(parsed.Body)
	if body == "" {
		return "", errors.NewGenerationFailedError(fmt.Errorf("model output missing body"))
	}
	if err := validateHTML(body); err != nil {
		return "", errors.NewGenerationFailedError(err)
	}
	return body + signature + footer, nil
}

func buildGenerationPrompt(lead *models.Lead, audit *models.SiteAudit, insightsList []string) string {
	lowest, _, _ := audit.Scores.Lowest()
	display := lowest
	if cat, ok := categoryExplanations[lowest]; ok {
		display = cat.display
	}

	var b strings.Builder
	b.WriteString("Write the body of a short, friendly outreach email to a small-business owner ")
	b.WriteString("about their website. Respond with a JSON object {\"body\": \"...\"} and nothing else.\n")
	b.WriteString("Rules: no technical jargon or tool names; HTML limited to <p>, <b>, <a>, <br>, <i>; ")
	b.WriteString("open with a greeting; do not include a signature or unsubscribe line.\n")
	fmt.Fprintf(&b, "The biggest area to improve is %s; center one explanatory paragraph on it.\n", display)
	fmt.Fprintf(&b, "Recipient: %s (%s)\nWebsite: %s\n", lead.Name, lead.Business, audit.URL)
	if len(insightsList) > 0 {
		b.WriteString("Observations from our review:\n")
		for _, ins := range insightsList {
			fmt.Fprintf(&b, "- %s\n", ins)
		}
	}
	return b.String()
}

// internal/stages/orchestrator/handler.go
package orchestrator

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"outreach-pipeline/internal/common/config"
	"outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/common/metrics"
	"outreach-pipeline/internal/models"
	"outreach-pipeline/internal/stages/audit"
	"outreach-pipeline/internal/stages/draft"
	"outreach-pipeline/internal/stages/insights"
	"outreach-pipeline/internal/stages/send"
	"outreach-pipeline/internal/store"
)

const StageName = "orchestrator"

const suppressedMessage = "Email is suppressed"

type Store interface {
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	IsSuppressed(ctx context.Context, email string) (bool, error)
}

// Stage interfaces let tests substitute each step independently.
type AuditStage interface {
	Execute(ctx context.Context, input *audit.Input) (*audit.Output, error)
}

type InsightStage interface {
	Execute(ctx context.Context, leadID string) *insights.Result
}

type DraftStage interface {
	ExecuteWithInsights(ctx context.Context, leadID string, res *insights.Result) (*draft.Output, error)
}

type SendStage interface {
	Execute(ctx context.Context, input *send.Input) (*send.Output, error)
}

type Handler struct {
	store        Store
	audit        AuditStage
	insights     InsightStage
	draft        DraftStage
	send         SendStage
	budget       time.Duration
	stageTimeout time.Duration
	logger       logger.Logger
}

func NewHandler(st Store, a AuditStage, i InsightStage, d DraftStage, s SendStage, cfg config.PipelineConfig, log logger.Logger) *Handler {
	return &Handler{
		store:        st,
		audit:        a,
		insights:     i,
		draft:        d,
		send:         s,
		budget:       time.Duration(cfg.OrchestratorBudget) * time.Millisecond,
		stageTimeout: time.Duration(cfg.StageTimeout) * time.Millisecond,
		logger:       log.WithFields(map[string]interface{}{"stage": StageName}),
	}
}

// Execute drives one lead through Audit → Insights → Draft → Send in
// process. Audit and Draft are critical; Insights and Send may fail
// without failing the run. The whole run shares one deadline, and each
// step additionally runs under its own stage timeout so one slow
// upstream cannot eat the entire budget.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	started := time.Now()
	out, err := h.execute(ctx, input)
	metrics.StageRunDuration.WithLabelValues(StageName).Observe(time.Since(started).Seconds())
	switch {
	case err != nil:
		metrics.StageRunsFailed.WithLabelValues(StageName, string(errors.Normalize(err).Code)).Inc()
	case out.Success:
		metrics.StageRunsCompleted.WithLabelValues(StageName).Inc()
	default:
		metrics.StageRunsFailed.WithLabelValues(StageName, "pipeline_failed").Inc()
	}
	return out, err
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	lead, err := h.store.GetLead(ctx, input.LeadID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewResourceNotFoundError("Lead", input.LeadID)
		}
		return nil, errors.NewDatabaseQueryFailedError(err)
	}

	suppressed, err := h.store.IsSuppressed(ctx, lead.Email)
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	if suppressed {
		metrics.SuppressionHits.Inc()
		return suppressedOutput(lead.ID), nil
	}

	if h.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.budget)
		defer cancel()
	}

	out := &Output{LeadID: lead.ID}

	auditCtx, cancel := h.stageCtx(ctx)
	auditOut, err := h.audit.Execute(auditCtx, &audit.Input{URL: lead.WebsiteURL, LeadID: lead.ID})
	cancel()
	if err != nil {
		out.Steps.Audit = failedStep(err)
		out.Steps.Insights = skippedStep()
		out.Steps.Email = skippedStep()
		out.Steps.Send = skippedStep()
		out.Message = "audit failed"
		out.status = http.StatusInternalServerError
		return out, nil
	}
	out.Steps.Audit = StepResult{Success: true, Data: auditOut}

	insightCtx, cancel := h.stageCtx(ctx)
	insightRes := h.insights.Execute(insightCtx, lead.ID)
	cancel()
	if insightRes.Skipped {
		out.Steps.Insights = StepResult{Skipped: true, Error: insightRes.Reason}
	} else {
		out.Steps.Insights = StepResult{Success: true, Data: insightRes}
	}

	draftCtx, cancel := h.stageCtx(ctx)
	draftOut, err := h.draft.ExecuteWithInsights(draftCtx, lead.ID, insightRes)
	cancel()
	if err != nil {
		out.Steps.Email = failedStep(err)
		out.Steps.Send = skippedStep()
		out.Message = "draft generation failed"
		out.status = http.StatusInternalServerError
		return out, nil
	}
	if !draftOut.Success {
		// Address became suppressed between the up-front check and now.
		// Audit and insights already ran, so their results stand; only
		// the remaining steps skip.
		out.Steps.Email = StepResult{Skipped: true, Error: suppressedMessage}
		out.Steps.Send = skippedStep()
		out.Message = suppressedMessage
		out.Error = suppressedMessage
		out.status = http.StatusOK
		return out, nil
	}
	out.Steps.Email = StepResult{Success: true, Data: draftOut}

	sendCtx, cancel := h.stageCtx(ctx)
	sendOut, err := h.send.Execute(sendCtx, &send.Input{EmailDraftID: draftOut.EmailDraftID})
	cancel()
	switch {
	case err != nil:
		// Tolerated: the draft remains usable for a manual resend.
		out.Steps.Send = failedStep(err)
		out.Success = true
		out.Message = "email drafted but send failed"
		out.status = http.StatusMultiStatus
	case !sendOut.Success:
		out.Steps.Send = StepResult{Skipped: true, Error: sendOut.Error}
		out.Success = true
		out.Message = "email drafted, send skipped"
		out.status = http.StatusMultiStatus
	default:
		out.Steps.Send = StepResult{Success: true, Data: sendOut}
		out.Success = true
		out.Message = "lead processed"
		out.status = http.StatusOK
	}

	h.logger.Info("lead processed", map[string]interface{}{
		"leadId":  lead.ID,
		"success": out.Success,
		"status":  out.status,
	})
	return out, nil
}

// stageCtx derives the per-step deadline nested inside the run budget.
func (h *Handler) stageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.stageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, h.stageTimeout)
}

func suppressedOutput(leadID string) *Output {
	out := &Output{
		LeadID:  leadID,
		Message: suppressedMessage,
		Error:   suppressedMessage,
		status:  http.StatusOK,
	}
	out.Steps.Audit = skippedStep()
	out.Steps.Insights = skippedStep()
	out.Steps.Email = skippedStep()
	out.Steps.Send = skippedStep()
	return out
}

func failedStep(err error) StepResult {
	return StepResult{Error: errors.Normalize(err).Message + ": " + errors.Normalize(err).Details}
}

func skippedStep() StepResult {
	return StepResult{Skipped: true}
}

// internal/stages/audit/handler.go
package audit

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/url"
	"time"

	"outreach-pipeline/internal/clients/pagespeed"
	"outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/common/metrics"
	"outreach-pipeline/internal/models"
	"outreach-pipeline/internal/store"

	"github.com/google/uuid"
)

const StageName = "audit"

// Store is the slice of the persistence layer this stage touches.
type Store interface {
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	InsertAudit(ctx context.Context, audit *models.SiteAudit) error
	UpdateLeadStatus(ctx context.Context, id, status string) error
}

// Gate limits how often one URL can be audited.
type Gate interface {
	AllowAudit(ctx context.Context, rawURL string) (bool, error)
}

// Runner executes one page-speed analysis.
type Runner interface {
	Run(ctx context.Context, target string) (*pagespeed.Result, error)
}

// Indexer archives completed audits. Nil disables archiving; failures
// are logged and never fail the stage.
type Indexer interface {
	Index(ctx context.Context, index, id string, doc []byte) error
}

type Handler struct {
	store      Store
	gate       Gate
	runner     Runner
	indexer    Indexer
	auditIndex string
	logger     logger.Logger
}

func NewHandler(st Store, gate Gate, runner Runner, indexer Indexer, auditIndex string, log logger.Logger) *Handler {
	return &Handler{
		store:      st,
		gate:       gate,
		runner:     runner,
		indexer:    indexer,
		auditIndex: auditIndex,
		logger:     log.WithFields(map[string]interface{}{"stage": StageName}),
	}
}

// Execute runs one audit: gate, provider call, transactional persist,
// lead status flip, then best-effort archival.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	started := time.Now()
	out, err := h.execute(ctx, input)
	metrics.StageRunDuration.WithLabelValues(StageName).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.StageRunsFailed.WithLabelValues(StageName, string(errors.Normalize(err).Code)).Inc()
		return nil, err
	}
	metrics.StageRunsCompleted.WithLabelValues(StageName).Inc()
	return out, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	parsed, err := url.Parse(input.URL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, errors.NewValidationFailedError("url must be a well-formed absolute URL")
	}

	lead, err := h.store.GetLead(ctx, input.LeadID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewResourceNotFoundError("Lead", input.LeadID)
		}
		return nil, errors.NewDatabaseQueryFailedError(err)
	}

	allowed, err := h.gate.AllowAudit(ctx, input.URL)
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	if !allowed {
		return nil, errors.NewRateLimitExceededError("too many audits for this URL in the current window")
	}

	result, err := h.runner.Run(ctx, input.URL)
	if err != nil {
		return nil, err
	}

	audit := &models.SiteAudit{
		ID:         uuid.New().String(),
		LeadID:     lead.ID,
		URL:        input.URL,
		Scores:     result.Scores,
		Vitals:     result.Vitals,
		RawPayload: result.RawPayload,
		IsLatest:   true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.store.InsertAudit(ctx, audit); err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}
	if err := h.store.UpdateLeadStatus(ctx, lead.ID, models.LeadStatusAudited); err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}

	h.archive(ctx, audit)

	h.logger.Info("audit completed", map[string]interface{}{
		"leadId":  lead.ID,
		"auditId": audit.ID,
		"url":     input.URL,
	})

	return &Output{
		Success: true,
		AuditID: audit.ID,
		Scores:  audit.Scores,
		Vitals:  audit.Vitals,
	}, nil
}

func (h *Handler) archive(ctx context.Context, audit *models.SiteAudit) {
	if h.indexer == nil {
		return
	}
	doc, err := json.Marshal(map[string]interface{}{
		"lead_id":     audit.LeadID,
		"url":         audit.URL,
		"scores":      audit.Scores,
		"vitals":      audit.Vitals,
		"raw_payload": json.RawMessage(audit.RawPayload),
		"created_at":  audit.CreatedAt,
	})
	if err == nil {
		err = h.indexer.Index(ctx, h.auditIndex, audit.ID, doc)
	}
	if err != nil {
		h.logger.Warn("audit archive indexing failed", map[string]interface{}{
			"auditId": audit.ID,
			"error":   err.Error(),
		})
	}
}

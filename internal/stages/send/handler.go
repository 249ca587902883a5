// internal/stages/send/handler.go
package send

import (
	"context"
	stderrors "errors"
	"time"

	"outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/common/metrics"
	"outreach-pipeline/internal/models"
	"outreach-pipeline/internal/store"
)

const StageName = "send"

const suppressedMessage = "Email is suppressed"

type Store interface {
	GetDraft(ctx context.Context, id string) (*models.EmailDraft, error)
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	IsSuppressed(ctx context.Context, email string) (bool, error)
	MarkDraftSent(ctx context.Context, id, messageID string, sentAt time.Time) error
}

// Sender delivers one HTML email and returns the provider message id.
type Sender interface {
	SendHTML(ctx context.Context, to, subject, htmlBody string) (string, error)
}

type Handler struct {
	store  Store
	mailer Sender
	logger logger.Logger
}

func NewHandler(st Store, m Sender, log logger.Logger) *Handler {
	return &Handler{
		store:  st,
		mailer: m,
		logger: log.WithFields(map[string]interface{}{"stage": StageName}),
	}
}

// Execute sends one draft. Suppression is re-checked here because an
// address can opt out between draft time and send time; a suppressed
// result is a skip, not a failure. Provider failures surface as-is and
// are not retried in-process.
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
	draft, err := h.store.GetDraft(ctx, input.EmailDraftID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewResourceNotFoundError("EmailDraft", input.EmailDraftID)
		}
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	if draft.Status != models.DraftStatusDraft {
		return nil, errors.NewValidationFailedError("draft has already been sent")
	}

	lead, err := h.store.GetLead(ctx, draft.LeadID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewResourceNotFoundError("Lead", draft.LeadID)
		}
		return nil, errors.NewDatabaseQueryFailedError(err)
	}

	suppressed, err := h.store.IsSuppressed(ctx, lead.Email)
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	if suppressed {
		metrics.SuppressionHits.Inc()
		h.logger.Info("send skipped, address suppressed", map[string]interface{}{
			"draftId": draft.ID,
			"leadId":  lead.ID,
		})
		return &Output{Success: false, Skipped: true, Error: suppressedMessage}, nil
	}

	messageID, err := h.mailer.SendHTML(ctx, lead.Email, draft.Subject, draft.BodyHTML)
	if err != nil {
		return nil, err
	}

	sentAt := time.Now().UTC()
	if err := h.store.MarkDraftSent(ctx, draft.ID, messageID, sentAt); err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}

	metrics.EmailsSent.WithLabelValues("outreach").Inc()
	h.logger.Info("draft sent", map[string]interface{}{
		"draftId":   draft.ID,
		"leadId":    lead.ID,
		"messageId": messageID,
	})

	return &Output{
		Success:   true,
		MessageID: messageID,
		SentTo:    lead.Email,
		SentAt:    sentAt,
	}, nil
}

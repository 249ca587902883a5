// internal/stages/queue/handler.go
package queue

import (
	"context"
	stderrors "errors"
	"time"

	"outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/common/metrics"
	"outreach-pipeline/internal/models"
	"outreach-pipeline/internal/stages/audit"
	"outreach-pipeline/internal/stages/draft"
	"outreach-pipeline/internal/stages/send"
	"outreach-pipeline/internal/store"
)

const StageName = "queue"

type Store interface {
	ClaimNextScheduled(ctx context.Context, now time.Time) (*models.QueueItem, error)
	CompleteItem(ctx context.Context, id string, suppressed bool) error
	FailItem(ctx context.Context, id, errMsg string) error
	Enqueue(ctx context.Context, leadID string, sendAt time.Time) (*models.QueueItem, error)
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	GetLatestAudit(ctx context.Context, leadID string) (*models.SiteAudit, error)
}

// Gate combines business hours and the daily send budget.
type Gate interface {
	CanProcess(ctx context.Context, now time.Time) (ok bool, reason string, err error)
	ReserveSend(ctx context.Context, now time.Time) (bool, error)
	ReleaseSend(ctx context.Context, now time.Time) error
}

type AuditStage interface {
	Execute(ctx context.Context, input *audit.Input) (*audit.Output, error)
}

type DraftStage interface {
	Execute(ctx context.Context, input *draft.Input) (*draft.Output, error)
}

type SendStage interface {
	Execute(ctx context.Context, input *send.Input) (*send.Output, error)
}

type Handler struct {
	store  Store
	gate   Gate
	audit  AuditStage
	draft  DraftStage
	send   SendStage
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(st Store, gate Gate, a AuditStage, d DraftStage, s SendStage, log logger.Logger) *Handler {
	return &Handler{
		store:  st,
		gate:   gate,
		audit:  a,
		draft:  d,
		send:   s,
		logger: log.WithFields(map[string]interface{}{"stage": StageName}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue schedules a lead for an outreach run.
func (h *Handler) Enqueue(ctx context.Context, input *EnqueueInput) (*EnqueueOutput, error) {
	if _, err := h.store.GetLead(ctx, input.LeadID); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewResourceNotFoundError("Lead", input.LeadID)
		}
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	sendAt := input.ScheduledSendAt
	if sendAt.IsZero() {
		sendAt = h.now()
	}
	item, err := h.store.Enqueue(ctx, input.LeadID, sendAt)
	if err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}
	return &EnqueueOutput{Success: true, QueueItemID: item.ID, ScheduledSendAt: item.ScheduledSendAt}, nil
}

// Process runs one queue tick: gate check, atomic claim, then one full
// outreach run for the claimed lead. A closed gate or empty queue is a
// successful no-op. A failed run marks the item failed and returns the
// error, so the scheduler sees a 500 while the queue state stays
// durable either way.
func (h *Handler) Process(ctx context.Context) (*Output, error) {
	started := time.Now()
	out, err := h.process(ctx)
	metrics.StageRunDuration.WithLabelValues(StageName).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.StageRunsFailed.WithLabelValues(StageName, string(errors.Normalize(err).Code)).Inc()
		return nil, err
	}
	metrics.StageRunsCompleted.WithLabelValues(StageName).Inc()
	return out, nil
}

func (h *Handler) process(ctx context.Context) (*Output, error) {
	now := h.now()

	ok, reason, err := h.gate.CanProcess(ctx, now)
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	if !ok {
		h.logger.Info("queue tick skipped", map[string]interface{}{"reason": reason})
		return &Output{Success: true, Processed: false, Reason: reason}, nil
	}

	// Consume a budget slot up front. CanProcess only reads the counter,
	// so two ticks racing for the last slot would both pass it; the
	// reserve is the atomic check. The slot is released again on any
	// outcome that sends nothing.
	reserved, err := h.gate.ReserveSend(ctx, now)
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	if !reserved {
		h.releaseSlot(ctx, now)
		h.logger.Info("queue tick skipped", map[string]interface{}{"reason": "daily send cap reached"})
		return &Output{Success: true, Processed: false, Reason: "daily send cap reached"}, nil
	}

	item, err := h.store.ClaimNextScheduled(ctx, now)
	if err != nil {
		h.releaseSlot(ctx, now)
		if stderrors.Is(err, store.ErrNotFound) {
			return &Output{Success: true, Processed: false, Reason: "no due items"}, nil
		}
		return nil, errors.NewDatabaseQueryFailedError(err)
	}

	out, err := h.runItem(ctx, item, now)
	if err != nil {
		h.releaseSlot(ctx, now)
		msg := errors.Normalize(err).Message + ": " + errors.Normalize(err).Details
		if failErr := h.store.FailItem(ctx, item.ID, msg); failErr != nil {
			h.logger.Error("failed to record queue item failure", map[string]interface{}{
				"queueItemId": item.ID,
				"error":       failErr.Error(),
			})
		}
		return nil, err
	}
	return out, nil
}

func (h *Handler) runItem(ctx context.Context, item *models.QueueItem, now time.Time) (*Output, error) {
	lead, err := h.store.GetLead(ctx, item.LeadID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewResourceNotFoundError("Lead", item.LeadID)
		}
		return nil, errors.NewDatabaseQueryFailedError(err)
	}

	if _, err := h.store.GetLatestAudit(ctx, lead.ID); err != nil {
		if !stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewDatabaseQueryFailedError(err)
		}
		if _, err := h.audit.Execute(ctx, &audit.Input{URL: lead.WebsiteURL, LeadID: lead.ID}); err != nil {
			return nil, err
		}
	}

	draftOut, err := h.draft.Execute(ctx, &draft.Input{LeadID: lead.ID})
	if err != nil {
		return nil, err
	}
	if !draftOut.Success {
		h.releaseSlot(ctx, now)
		return h.completeSuppressed(ctx, item, lead)
	}

	sendOut, err := h.send.Execute(ctx, &send.Input{EmailDraftID: draftOut.EmailDraftID})
	if err != nil {
		return nil, err
	}
	if sendOut.Skipped {
		h.releaseSlot(ctx, now)
		return h.completeSuppressed(ctx, item, lead)
	}

	if err := h.store.CompleteItem(ctx, item.ID, false); err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}

	h.logger.Info("queue item completed", map[string]interface{}{
		"queueItemId": item.ID,
		"leadId":      lead.ID,
		"messageId":   sendOut.MessageID,
	})
	return &Output{
		Success:     true,
		Processed:   true,
		QueueItemID: item.ID,
		LeadID:      lead.ID,
	}, nil
}

// releaseSlot returns a reserved budget slot; a failure only logs, the
// worst case being one send of headroom lost for the day.
func (h *Handler) releaseSlot(ctx context.Context, now time.Time) {
	if err := h.gate.ReleaseSend(ctx, now); err != nil {
		h.logger.Error("failed to release send budget slot", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) completeSuppressed(ctx context.Context, item *models.QueueItem, lead *models.Lead) (*Output, error) {
	if err := h.store.CompleteItem(ctx, item.ID, true); err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	h.logger.Info("queue item completed, address suppressed", map[string]interface{}{
		"queueItemId": item.ID,
		"leadId":      lead.ID,
	})
	return &Output{
		Success:     true,
		Processed:   true,
		Suppressed:  true,
		QueueItemID: item.ID,
		LeadID:      lead.ID,
	}, nil
}

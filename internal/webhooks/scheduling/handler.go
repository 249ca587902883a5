// internal/webhooks/scheduling/handler.go
package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"outreach-pipeline/internal/common/config"
	"outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/common/metrics"
	"outreach-pipeline/internal/models"
)

const eventInviteeCreated = "invitee.created"

type Store interface {
	UpsertBookedLead(ctx context.Context, name, email, eventURI string, bookedAt time.Time) (lead *models.Lead, created bool, err error)
}

type Mailer interface {
	SendHTML(ctx context.Context, to, subject, htmlBody string) (string, error)
}

type Handler struct {
	store  Store
	mailer Mailer
	cfg    config.PipelineConfig
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(st Store, m Mailer, cfg config.PipelineConfig, log logger.Logger) *Handler {
	return &Handler{
		store:  st,
		mailer: m,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "scheduling-webhook"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type payload struct {
	Event   string `json:"event"`
	Payload struct {
		EventType   string    `json:"event_type"`
		Name        string    `json:"name"`
		Email       string    `json:"email"`
		EventURI    string    `json:"event_uri"`
		ScheduledAt time.Time `json:"scheduled_at"`
	} `json:"payload"`
}

// Output is the webhook response body.
type Output struct {
	Success   bool   `json:"success"`
	Ignored   bool   `json:"ignored,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	LeadID    string `json:"lead_id,omitempty"`
	EmailSent bool   `json:"email_sent,omitempty"`
}

// Execute verifies and processes one delivery. Replays of the same
// event URI are absorbed: the lead is not duplicated and no second
// prep email goes out.
func (h *Handler) Execute(ctx context.Context, signatureHeader string, body []byte) (*Output, error) {
	if err := VerifySignature(h.cfg.SchedulingSecret, signatureHeader, body, h.now()); err != nil {
		return nil, errors.NewWebhookSignatureError(err.Error())
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("malformed payload: %v", err))
	}

	if p.Event != eventInviteeCreated || p.Payload.EventType != h.cfg.DiscoveryEventType {
		h.logger.Debug("delivery ignored", map[string]interface{}{
			"event":     p.Event,
			"eventType": p.Payload.EventType,
		})
		return &Output{Success: true, Ignored: true}, nil
	}
	if p.Payload.Email == "" || p.Payload.EventURI == "" {
		return nil, errors.NewValidationFailedError("payload missing email or event_uri")
	}

	bookedAt := p.Payload.ScheduledAt
	if bookedAt.IsZero() {
		bookedAt = h.now()
	}

	lead, created, err := h.store.UpsertBookedLead(ctx, p.Payload.Name, p.Payload.Email, p.Payload.EventURI, bookedAt)
	if err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}
	if !created {
		h.logger.Info("duplicate delivery absorbed", map[string]interface{}{
			"leadId":   lead.ID,
			"eventUri": p.Payload.EventURI,
		})
		return &Output{Success: true, Duplicate: true, LeadID: lead.ID}, nil
	}

	out := &Output{Success: true, LeadID: lead.ID}
	subject, emailBody := prepEmail(lead)
	if _, err := h.mailer.SendHTML(ctx, lead.Email, subject, emailBody); err != nil {
		// Booking is recorded; a failed prep email is not worth a retry
		// storm from the scheduler's redelivery logic.
		h.logger.Warn("prep email failed", map[string]interface{}{
			"leadId": lead.ID,
			"error":  err.Error(),
		})
	} else {
		out.EmailSent = true
		metrics.EmailsSent.WithLabelValues("prep").Inc()
	}

	h.logger.Info("booking recorded", map[string]interface{}{
		"leadId":   lead.ID,
		"eventUri": p.Payload.EventURI,
	})
	return out, nil
}

func prepEmail(lead *models.Lead) (string, string) {
	name := lead.Name
	if name == "" {
		name = "there"
	}
	return "Your discovery call is booked",
		fmt.Sprintf("<p>Hi %s,</p><p>Thanks for booking a call with us. "+
			"Before we talk, it helps to have your current website link and "+
			"a sentence or two about what you want the site to do for your business.</p>"+
			"<p>Talk soon!</p>", name)
}

// internal/monitor/notify/handler.go
package notify

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/common/metrics"
	"outreach-pipeline/internal/models"
	"outreach-pipeline/internal/store"

	"github.com/google/uuid"
)

type Store interface {
	GetSite(ctx context.Context, id string) (*models.MonitoredSite, error)
	GetIncident(ctx context.Context, id string) (*models.Incident, error)
	InsertNotification(ctx context.Context, n *models.Notification) error
}

// Mailer is the slice of the mail layer the dispatcher needs.
type Mailer interface {
	SendHTML(ctx context.Context, to, subject, htmlBody string) (string, error)
	SendSMS(ctx context.Context, phone, message string) error
	InternalAddress() string
	AlertPhone() string
}

type Handler struct {
	store  Store
	mailer Mailer
	logger logger.Logger
}

func NewHandler(st Store, m Mailer, log logger.Logger) *Handler {
	return &Handler{
		store:  st,
		mailer: m,
		logger: log.WithFields(map[string]interface{}{"component": "incident-notify"}),
	}
}

// Execute dispatches notifications for one incident event per the tier
// policy. Every attempt is recorded as a Notification row, success or
// not, so the audit log stays complete even when a provider is down.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	site, err := h.store.GetSite(ctx, input.SiteID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewResourceNotFoundError("MonitoredSite", input.SiteID)
		}
		return nil, errors.NewDatabaseQueryFailedError(err)
	}
	incident, err := h.store.GetIncident(ctx, input.IncidentID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewResourceNotFoundError("Incident", input.IncidentID)
		}
		return nil, errors.NewDatabaseQueryFailedError(err)
	}

	decision := Decide(site.SubscriptionTier, input.Severity, input.IsNew, input.IsResolved)

	out := &Output{Success: true}

	if decision.NotifyInternal {
		subject, body := internalEmail(site, incident, input)
		h.attemptEmail(ctx, out, input, models.RecipientInternal, h.mailer.InternalAddress(), subject, body)
	}
	if decision.NotifyClient {
		subject, body := clientEmail(site, incident, input)
		for _, addr := range site.ContactEmails {
			h.attemptEmail(ctx, out, input, models.RecipientClient, addr, subject, body)
		}
	}
	if decision.PageInternalSMS && h.mailer.AlertPhone() != "" {
		h.attemptSMS(ctx, out, input, smsText(site, input))
	}

	return out, nil
}

func (h *Handler) attemptEmail(ctx context.Context, out *Output, input *Input, recipient, addr, subject, body string) {
	_, err := h.mailer.SendHTML(ctx, addr, subject, body)
	if err != nil {
		err = errors.NewNotificationSendFailedError(models.ChannelEmail, err)
	}
	h.record(ctx, out, input, recipient, models.ChannelEmail, addr, err)
	if err == nil {
		metrics.EmailsSent.WithLabelValues("incident").Inc()
	}
}

func (h *Handler) attemptSMS(ctx context.Context, out *Output, input *Input, text string) {
	err := h.mailer.SendSMS(ctx, h.mailer.AlertPhone(), text)
	if err != nil {
		err = errors.NewNotificationSendFailedError(models.ChannelSMS, err)
	}
	h.record(ctx, out, input, models.RecipientInternal, models.ChannelSMS, h.mailer.AlertPhone(), err)
}

func (h *Handler) record(ctx context.Context, out *Output, input *Input, recipient, channel, addr string, sendErr error) {
	n := &models.Notification{
		ID:         uuid.New().String(),
		IncidentID: input.IncidentID,
		SiteID:     input.SiteID,
		Recipient:  recipient,
		Channel:    channel,
		Address:    addr,
		Success:    sendErr == nil,
		SentAt:     time.Now().UTC(),
	}
	outcome := "sent"
	if sendErr != nil {
		n.Error = sendErr.Error()
		var stdErr *errors.StandardError
		if stderrors.As(sendErr, &stdErr) {
			n.Error = fmt.Sprintf("%s: %s", stdErr.Code, stdErr.Details)
		}
		outcome = "failed"
		h.logger.Error("notification delivery failed", map[string]interface{}{
			"incidentId": input.IncidentID,
			"recipient":  recipient,
			"channel":    channel,
			"error":      n.Error,
		})
	}
	metrics.NotificationsDispatched.WithLabelValues(recipient, channel, outcome).Inc()

	if err := h.store.InsertNotification(ctx, n); err != nil {
		h.logger.Error("failed to record notification attempt", map[string]interface{}{
			"incidentId": input.IncidentID,
			"error":      err.Error(),
		})
	}

	out.Notifications = append(out.Notifications, NotificationResult{
		Recipient: recipient,
		Channel:   channel,
		Success:   n.Success,
	})
	if n.Success {
		out.NotificationsSent++
	}
}

func internalEmail(site *models.MonitoredSite, incident *models.Incident, input *Input) (string, string) {
	if input.IsResolved {
		return fmt.Sprintf("[resolved] %s %s", input.Severity, site.Domain),
			fmt.Sprintf("<p>Incident on <b>%s</b> (%s) has been resolved.</p><p>%s</p>",
				site.Domain, input.Severity, incident.Summary)
	}
	return fmt.Sprintf("[%s] incident on %s", input.Severity, site.Domain),
		fmt.Sprintf("<p>New <b>%s</b> incident on <b>%s</b> (%s environment).</p><p>%s</p>",
			input.Severity, site.Domain, site.Environment, incident.Summary)
}

func clientEmail(site *models.MonitoredSite, incident *models.Incident, input *Input) (string, string) {
	if input.IsResolved {
		return fmt.Sprintf("All clear on %s", site.Domain),
			fmt.Sprintf("<p>The issue we detected on <b>%s</b> has been resolved. "+
				"No action is needed on your side.</p>", site.Domain)
	}
	return fmt.Sprintf("We're looking into an issue on %s", site.Domain),
		fmt.Sprintf("<p>Our monitoring detected an issue on <b>%s</b>. "+
			"We are investigating and will follow up as soon as it is resolved.</p>", site.Domain)
}

func smsText(site *models.MonitoredSite, input *Input) string {
	return fmt.Sprintf("%s incident on %s, check the incident channel", input.Severity, site.Domain)
}

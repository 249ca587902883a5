// internal/monitor/report/handler.go
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"outreach-pipeline/internal/common/config"
	"outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/common/metrics"
	"outreach-pipeline/internal/models"

	"github.com/google/uuid"
)

type Store interface {
	ListReportableSites(ctx context.Context) ([]*models.MonitoredSite, error)
	HealthEventStats(ctx context.Context, siteID string, from, to time.Time) (total, passing int, err error)
	IncidentCounts(ctx context.Context, siteID string, from, to time.Time) (map[string]int, error)
	UpsertMonthlyReport(ctx context.Context, r *models.MonthlyReport) error
}

type Mailer interface {
	SendHTML(ctx context.Context, to, subject, htmlBody string) (string, error)
	InternalAddress() string
}

type Handler struct {
	store  Store
	mailer Mailer
	cfg    config.MonitorConfig
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(st Store, m Mailer, cfg config.MonitorConfig, log logger.Logger) *Handler {
	return &Handler{
		store:  st,
		mailer: m,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "monthly-report"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Execute generates and emails reports for every active subscribed
// site. Month defaults to the prior calendar month; one site failing
// does not stop the rest.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	month := input.Month
	if month == "" {
		month = h.now().AddDate(0, -1, 0).Format("2006-01")
	}
	from, to, err := monthWindow(month)
	if err != nil {
		return nil, errors.NewValidationFailedError(err.Error())
	}

	sites, err := h.store.ListReportableSites(ctx)
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError(err)
	}

	out := &Output{Success: true, Month: month}
	for _, site := range sites {
		summary, err := h.reportSite(ctx, site, month, from, to)
		if err != nil {
			h.logger.Error("site report failed", map[string]interface{}{
				"siteId": site.ID,
				"month":  month,
				"error":  err.Error(),
			})
			out.Failed++
			continue
		}
		out.Reports = append(out.Reports, *summary)
	}
	return out, nil
}

func (h *Handler) reportSite(ctx context.Context, site *models.MonitoredSite, month string, from, to time.Time) (*SiteReport, error) {
	total, passing, err := h.store.HealthEventStats(ctx, site.ID, from, to)
	if err != nil {
		return nil, err
	}
	counts, err := h.store.IncidentCounts(ctx, site.ID, from, to)
	if err != nil {
		return nil, err
	}

	uptime := 100.0
	if total > 0 {
		uptime = float64(passing) / float64(total) * 100
	}

	rep := &models.MonthlyReport{
		ID:            uuid.New().String(),
		SiteID:        site.ID,
		Month:         month,
		UptimePct:     uptime,
		TotalEvents:   total,
		SevOneCount:   counts[models.SevOne],
		SevTwoCount:   counts[models.SevTwo],
		SevThreeCount: counts[models.SevThree],
		Status:        h.deriveStatus(uptime, counts),
		GeneratedAt:   time.Now().UTC(),
	}
	rep.Summary = buildSummary(site, rep)

	recipient := h.mailer.InternalAddress()
	if len(site.ContactEmails) > 0 {
		recipient = site.ContactEmails[0]
	}
	rep.EmailedTo = recipient

	if err := h.store.UpsertMonthlyReport(ctx, rep); err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Monthly site report for %s (%s)", site.Domain, month)
	if _, err := h.mailer.SendHTML(ctx, recipient, subject, renderHTML(site, rep)); err != nil {
		// The report row is already saved; surface the send as a
		// per-site failure without losing the data.
		return nil, err
	}
	metrics.EmailsSent.WithLabelValues("report").Inc()

	return &SiteReport{
		SiteID:    site.ID,
		Domain:    site.Domain,
		Status:    rep.Status,
		UptimePct: rep.UptimePct,
		EmailedTo: recipient,
	}, nil
}

// deriveStatus maps uptime and incident counts to the tri-state
// report status.
func (h *Handler) deriveStatus(uptime float64, counts map[string]int) string {
	switch {
	case counts[models.SevOne] > 0 || uptime < h.cfg.UptimeActionPct:
		return models.ReportActionNeeded
	case counts[models.SevTwo] > 0 || uptime < h.cfg.UptimeAttentionPct:
		return models.ReportAttention
	default:
		return models.ReportAllClear
	}
}

// monthWindow returns [start of month, start of next month) in UTC.
func monthWindow(month string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("month must be formatted YYYY-MM: %v", err)
	}
	return start, start.AddDate(0, 1, 0), nil
}

func buildSummary(site *models.MonitoredSite, rep *models.MonthlyReport) []string {
	bullets := []string{
		fmt.Sprintf("Uptime: %.2f%% across %d checks", rep.UptimePct, rep.TotalEvents),
	}
	incidents := rep.SevOneCount + rep.SevTwoCount + rep.SevThreeCount
	if incidents == 0 {
		bullets = append(bullets, "No incidents this month")
	} else {
		bullets = append(bullets, fmt.Sprintf(
			"Incidents: %d critical, %d major, %d minor",
			rep.SevOneCount, rep.SevTwoCount, rep.SevThreeCount))
	}
	switch rep.Status {
	case models.ReportActionNeeded:
		bullets = append(bullets, fmt.Sprintf("Action needed: %s had a rough month, let's talk", site.Domain))
	case models.ReportAttention:
		bullets = append(bullets, "A few things are worth keeping an eye on")
	default:
		bullets = append(bullets, "Everything looks healthy")
	}
	return bullets
}

func renderHTML(site *models.MonitoredSite, rep *models.MonthlyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Here is the monthly report for <b>%s</b> (%s).</p>", site.Domain, rep.Month)
	b.WriteString("<p>")
	for i, bullet := range rep.Summary {
		if i > 0 {
			b.WriteString("<br>")
		}
		b.WriteString(bullet)
	}
	b.WriteString("</p>")
	return b.String()
}

// internal/store/monitor.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"outreach-pipeline/internal/models"

	"github.com/lib/pq"
)

// GetSite loads a monitored site by id.
func (s *Store) GetSite(ctx context.Context, id string) (*models.MonitoredSite, error) {
	var site models.MonitoredSite
	var trialEndsAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, domain, environment, subscription_tier,
		       contact_emails, active, trial_ends_at, created_at
		FROM monitored_sites WHERE id = $1`, id).Scan(
		&site.ID, &site.Name, &site.Domain, &site.Environment,
		&site.SubscriptionTier, pq.Array(&site.ContactEmails),
		&site.Active, &trialEndsAt, &site.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get site: %w", err)
	}
	if trialEndsAt.Valid {
		site.TrialEndsAt = &trialEndsAt.Time
	}
	return &site, nil
}

// ListReportableSites returns active sites on a paying tier, the
// population the monthly report covers.
func (s *Store) ListReportableSites(ctx context.Context) ([]*models.MonitoredSite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, domain, environment, subscription_tier,
		       contact_emails, active, trial_ends_at, created_at
		FROM monitored_sites
		WHERE active AND subscription_tier IN ($1, $2)
		ORDER BY name`,
		models.TierEssentials, models.TierCare)
	if err != nil {
		return nil, fmt.Errorf("list reportable sites: %w", err)
	}
	defer rows.Close()

	var sites []*models.MonitoredSite
	for rows.Next() {
		var site models.MonitoredSite
		var trialEndsAt sql.NullTime
		if err := rows.Scan(
			&site.ID, &site.Name, &site.Domain, &site.Environment,
			&site.SubscriptionTier, pq.Array(&site.ContactEmails),
			&site.Active, &trialEndsAt, &site.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		if trialEndsAt.Valid {
			site.TrialEndsAt = &trialEndsAt.Time
		}
		sites = append(sites, &site)
	}
	return sites, rows.Err()
}

// GetIncident loads an incident by id.
func (s *Store) GetIncident(ctx context.Context, id string) (*models.Incident, error) {
	var inc models.Incident
	var resolvedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, site_id, severity, status, summary, opened_at, resolved_at
		FROM incidents WHERE id = $1`, id).Scan(
		&inc.ID, &inc.SiteID, &inc.Severity, &inc.Status, &inc.Summary,
		&inc.OpenedAt, &resolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	if resolvedAt.Valid {
		inc.ResolvedAt = &resolvedAt.Time
	}
	return &inc, nil
}

// InsertNotification appends one delivery attempt to the audit log.
func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, incident_id, site_id, recipient, channel, address, success, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.IncidentID, n.SiteID, n.Recipient, n.Channel, n.Address,
		n.Success, n.Error, n.SentAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// HealthEventStats returns the total and passing health event counts for
// a site in [from, to).
func (s *Store) HealthEventStats(ctx context.Context, siteID string, from, to time.Time) (total, passing int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $4)
		FROM health_events
		WHERE site_id = $1 AND checked_at >= $2 AND checked_at < $3`,
		siteID, from, to, models.HealthPass).Scan(&total, &passing)
	if err != nil {
		return 0, 0, fmt.Errorf("health event stats: %w", err)
	}
	return total, passing, nil
}

// IncidentCounts returns per-severity incident counts for a site opened
// in [from, to).
func (s *Store) IncidentCounts(ctx context.Context, siteID string, from, to time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT severity, COUNT(*)
		FROM incidents
		WHERE site_id = $1 AND opened_at >= $2 AND opened_at < $3
		GROUP BY severity`, siteID, from, to)
	if err != nil {
		return nil, fmt.Errorf("incident counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var severity string
		var n int
		if err := rows.Scan(&severity, &n); err != nil {
			return nil, fmt.Errorf("scan incident count: %w", err)
		}
		counts[severity] = n
	}
	return counts, rows.Err()
}

// UpsertMonthlyReport writes a report keyed by (site, month).
func (s *Store) UpsertMonthlyReport(ctx context.Context, r *models.MonthlyReport) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monthly_reports (
			id, site_id, month, uptime_pct, total_events,
			sev1_count, sev2_count, sev3_count, status, summary, emailed_to, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (site_id, month) DO UPDATE SET
			uptime_pct = EXCLUDED.uptime_pct,
			total_events = EXCLUDED.total_events,
			sev1_count = EXCLUDED.sev1_count,
			sev2_count = EXCLUDED.sev2_count,
			sev3_count = EXCLUDED.sev3_count,
			status = EXCLUDED.status,
			summary = EXCLUDED.summary,
			emailed_to = EXCLUDED.emailed_to,
			generated_at = EXCLUDED.generated_at`,
		r.ID, r.SiteID, r.Month, r.UptimePct, r.TotalEvents,
		r.SevOneCount, r.SevTwoCount, r.SevThreeCount,
		r.Status, pq.Array(r.Summary), r.EmailedTo, r.GeneratedAt)
	if err != nil {
		return fmt.Errorf("upsert monthly report: %w", err)
	}
	return nil
}

// internal/store/audits.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"outreach-pipeline/internal/models"
)

// InsertAudit persists a new audit and makes it the lead's latest, in a
// single transaction: any prior latest flag is cleared atomically so the
// "exactly one latest audit per lead" invariant cannot be observed broken.
func (s *Store) InsertAudit(ctx context.Context, audit *models.SiteAudit) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE site_audits SET is_latest = FALSE WHERE lead_id = $1 AND is_latest`,
			audit.LeadID); err != nil {
			return fmt.Errorf("clear latest audit: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO site_audits (
				id, lead_id, url,
				score_performance, score_accessibility, score_seo, score_best_practices,
				cwv_lcp, cwv_cls, cwv_inp,
				raw_payload, is_latest, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE, $12)`,
			audit.ID, audit.LeadID, audit.URL,
			audit.Scores.Performance, audit.Scores.Accessibility,
			audit.Scores.SEO, audit.Scores.BestPractices,
			audit.Vitals.LCP, audit.Vitals.CLS, audit.Vitals.INP,
			audit.RawPayload, audit.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert audit: %w", err)
		}
		return nil
	})
}

// GetLatestAudit returns the lead's latest audit, or ErrNotFound.
func (s *Store) GetLatestAudit(ctx context.Context, leadID string) (*models.SiteAudit, error) {
	var audit models.SiteAudit
	err := s.db.QueryRowContext(ctx, `
		SELECT id, lead_id, url,
		       score_performance, score_accessibility, score_seo, score_best_practices,
		       cwv_lcp, cwv_cls, cwv_inp, raw_payload, is_latest, created_at
		FROM site_audits
		WHERE lead_id = $1 AND is_latest`, leadID).Scan(
		&audit.ID, &audit.LeadID, &audit.URL,
		&audit.Scores.Performance, &audit.Scores.Accessibility,
		&audit.Scores.SEO, &audit.Scores.BestPractices,
		&audit.Vitals.LCP, &audit.Vitals.CLS, &audit.Vitals.INP,
		&audit.RawPayload, &audit.IsLatest, &audit.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest audit: %w", err)
	}
	return &audit, nil
}

// internal/store/emails.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"outreach-pipeline/internal/models"

	"github.com/google/uuid"
)

// InsertDraft persists a freshly generated outreach draft.
func (s *Store) InsertDraft(ctx context.Context, draft *models.EmailDraft) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_drafts (id, lead_id, subject, body_html, template, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		draft.ID, draft.LeadID, draft.Subject, draft.BodyHTML,
		draft.Template, draft.Status, draft.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

// GetDraft loads a draft by id.
func (s *Store) GetDraft(ctx context.Context, id string) (*models.EmailDraft, error) {
	var draft models.EmailDraft
	var messageID sql.NullString
	var sentAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, lead_id, subject, body_html, template, status, message_id, created_at, sent_at
		FROM email_drafts WHERE id = $1`, id).Scan(
		&draft.ID, &draft.LeadID, &draft.Subject, &draft.BodyHTML,
		&draft.Template, &draft.Status, &messageID, &draft.CreatedAt, &sentAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}

	draft.MessageID = messageID.String
	if sentAt.Valid {
		draft.SentAt = &sentAt.Time
	}
	return &draft, nil
}

// MarkDraftSent flips a draft to sent and records the provider message id.
func (s *Store) MarkDraftSent(ctx context.Context, id, messageID string, sentAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE email_drafts
		SET status = $2, message_id = $3, sent_at = $4
		WHERE id = $1 AND status = $5`,
		id, models.DraftStatusSent, messageID, sentAt, models.DraftStatusDraft)
	if err != nil {
		return fmt.Errorf("mark draft sent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsSuppressed reports whether an address is on the suppression list.
// Lookup is case-insensitive; addresses are stored lowercased.
func (s *Store) IsSuppressed(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM email_suppressions WHERE email = $1)`,
		strings.ToLower(strings.TrimSpace(email))).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("suppression check: %w", err)
	}
	return exists, nil
}

// InsertSuppression adds an address to the suppression list. Duplicate
// inserts are silently absorbed; inserted reports whether a row was new.
func (s *Store) InsertSuppression(ctx context.Context, email, reason string) (inserted bool, err error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO email_suppressions (id, email, reason, suppressed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (email) DO NOTHING`,
		uuid.New().String(), strings.ToLower(strings.TrimSpace(email)), reason)
	if err != nil {
		return false, fmt.Errorf("insert suppression: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

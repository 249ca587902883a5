// internal/store/leads.go
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

// GetLead loads a lead by id.
func (s *Store) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	var eventURI sql.NullString
	var bookedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, business, website_url, message, status,
		       booked_consult, event_uri, created_at, updated_at, booked_at
		FROM leads WHERE id = $1`, id).Scan(
		&lead.ID, &lead.Name, &lead.Email, &lead.Business, &lead.WebsiteURL,
		&lead.Message, &lead.Status, &lead.BookedConsult, &eventURI,
		&lead.CreatedAt, &lead.UpdatedAt, &bookedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}

	lead.EventURI = eventURI.String
	if bookedAt.Valid {
		lead.BookedAt = &bookedAt.Time
	}
	return &lead, nil
}

// GetLeadByEventURI looks a lead up by its scheduling event reference.
func (s *Store) GetLeadByEventURI(ctx context.Context, eventURI string) (*models.Lead, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM leads WHERE event_uri = $1`, eventURI).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead by event uri: %w", err)
	}
	return s.GetLead(ctx, id)
}

// UpsertBookedLead creates or updates the lead for a confirmed booking.
// Matching is by email; the event URI makes webhook replays idempotent.
// created reports whether a new lead row was inserted.
func (s *Store) UpsertBookedLead(ctx context.Context, name, email, eventURI string, bookedAt time.Time) (lead *models.Lead, created bool, err error) {
	email = strings.ToLower(strings.TrimSpace(email))

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var id string
		scanErr := tx.QueryRowContext(ctx,
			`SELECT id FROM leads WHERE email = $1`, email).Scan(&id)
		switch scanErr {
		case nil:
			_, execErr := tx.ExecContext(ctx, `
				UPDATE leads
				SET booked_consult = TRUE, event_uri = $2, booked_at = $3, updated_at = NOW()
				WHERE id = $1`, id, eventURI, bookedAt)
			if execErr != nil {
				return fmt.Errorf("update booked lead: %w", execErr)
			}
		case sql.ErrNoRows:
			id = uuid.New().String()
			_, execErr := tx.ExecContext(ctx, `
				INSERT INTO leads (id, name, email, status, booked_consult, event_uri, booked_at, created_at, updated_at)
				VALUES ($1, $2, $3, $4, TRUE, $5, $6, NOW(), NOW())`,
				id, name, email, models.LeadStatusNew, eventURI, bookedAt)
			if execErr != nil {
				return fmt.Errorf("insert booked lead: %w", execErr)
			}
			created = true
		default:
			return fmt.Errorf("lookup lead by email: %w", scanErr)
		}

		loaded, loadErr := loadLeadTx(ctx, tx, id)
		if loadErr != nil {
			return loadErr
		}
		lead = loaded
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return lead, created, nil
}

func loadLeadTx(ctx context.Context, tx *sql.Tx, id string) (*models.Lead, error) {
	var lead models.Lead
	var eventURI sql.NullString
	var bookedAt sql.NullTime

	err := tx.QueryRowContext(ctx, `
		SELECT id, name, email, business, website_url, message, status,
		       booked_consult, event_uri, created_at, updated_at, booked_at
		FROM leads WHERE id = $1`, id).Scan(
		&lead.ID, &lead.Name, &lead.Email, &lead.Business, &lead.WebsiteURL,
		&lead.Message, &lead.Status, &lead.BookedConsult, &eventURI,
		&lead.CreatedAt, &lead.UpdatedAt, &bookedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("load lead: %w", err)
	}
	lead.EventURI = eventURI.String
	if bookedAt.Valid {
		lead.BookedAt = &bookedAt.Time
	}
	return &lead, nil
}

// UpdateLeadStatus advances a lead through the pipeline states.
func (s *Store) UpdateLeadStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

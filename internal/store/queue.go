// internal/store/queue.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"outreach-pipeline/internal/models"

	"github.com/google/uuid"
)

// Enqueue schedules a lead for an outreach run.
func (s *Store) Enqueue(ctx context.Context, leadID string, sendAt time.Time) (*models.QueueItem, error) {
	item := &models.QueueItem{
		ID:              uuid.New().String(),
		LeadID:          leadID,
		Status:          models.QueueStatusScheduled,
		ScheduledSendAt: sendAt,
		CreatedAt:       time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lead_processing_queue (id, lead_id, status, scheduled_send_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.LeadID, item.Status, item.ScheduledSendAt, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	return item, nil
}

// ClaimNextScheduled atomically claims the oldest due scheduled item by
// flipping it to processing. Selection and update happen in one
// statement, so concurrent processors cannot double-claim: the loser of
// the race sees ErrNotFound and no-ops.
func (s *Store) ClaimNextScheduled(ctx context.Context, now time.Time) (*models.QueueItem, error) {
	var item models.QueueItem
	err := s.db.QueryRowContext(ctx, `
		UPDATE lead_processing_queue
		SET status = $1
		WHERE id = (
			SELECT id FROM lead_processing_queue
			WHERE status = $2 AND scheduled_send_at <= $3
			ORDER BY scheduled_send_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, lead_id, status, scheduled_send_at, created_at`,
		models.QueueStatusProcessing, models.QueueStatusScheduled, now).Scan(
		&item.ID, &item.LeadID, &item.Status, &item.ScheduledSendAt, &item.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("claim queue item: %w", err)
	}
	return &item, nil
}

// CompleteItem marks a processing item completed. suppressed records
// that the run was skipped because the address is opted out.
func (s *Store) CompleteItem(ctx context.Context, id string, suppressed bool) error {
	return s.finishItem(ctx, id, models.QueueStatusCompleted, suppressed, "")
}

// FailItem marks a processing item failed with the captured error.
func (s *Store) FailItem(ctx context.Context, id, errMsg string) error {
	return s.finishItem(ctx, id, models.QueueStatusFailed, false, errMsg)
}

// finishItem only transitions items that are currently processing, which
// keeps the state machine monotonic even under operator interference.
func (s *Store) finishItem(ctx context.Context, id, status string, suppressed bool, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE lead_processing_queue
		SET status = $2, suppressed = $3, error_message = $4, processed_at = NOW()
		WHERE id = $1 AND status = $5`,
		id, status, suppressed, errMsg, models.QueueStatusProcessing)
	if err != nil {
		return fmt.Errorf("finish queue item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

package models

import "time"

// Queue item statuses. Transitions are monotonic:
// scheduled → processing → completed | failed.
const (
	QueueStatusScheduled  = "scheduled"
	QueueStatusProcessing = "processing"
	QueueStatusCompleted  = "completed"
	QueueStatusFailed     = "failed"
)

// QueueItem is one lead waiting for its outreach run.
type QueueItem struct {
	ID              string     `json:"id"`
	LeadID          string     `json:"leadId"`
	Status          string     `json:"status"`
	ScheduledSendAt time.Time  `json:"scheduledSendAt"`
	Suppressed      bool       `json:"suppressed"` // completed without sending
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
}

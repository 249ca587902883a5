// internal/stages/queue/models.go
package queue

import "time"

// EnqueueInput schedules one lead for outreach.
type EnqueueInput struct {
	LeadID          string    `json:"lead_id" validate:"required,uuid4"`
	ScheduledSendAt time.Time `json:"scheduled_send_at,omitzero"`
}

type EnqueueOutput struct {
	Success         bool      `json:"success"`
	QueueItemID     string    `json:"queue_item_id"`
	ScheduledSendAt time.Time `json:"scheduled_send_at"`
}

// Output is one processing tick's result. Processed=false with a
// Reason is a successful no-op (closed gate or empty queue).
type Output struct {
	Success     bool   `json:"success"`
	Processed   bool   `json:"processed"`
	Suppressed  bool   `json:"suppressed,omitempty"`
	QueueItemID string `json:"queue_item_id,omitempty"`
	LeadID      string `json:"lead_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

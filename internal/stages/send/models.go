// internal/stages/send/models.go
package send

import "time"

// Input is the send request body.
type Input struct {
	EmailDraftID string `json:"email_draft_id" validate:"required,uuid4"`
}

// Output mirrors the send response body. Skipped marks a suppression
// skip, which is not a failure.
type Output struct {
	Success   bool      `json:"success"`
	MessageID string    `json:"message_id,omitempty"`
	SentTo    string    `json:"sent_to,omitempty"`
	SentAt    time.Time `json:"sent_at,omitzero"`
	Skipped   bool      `json:"skipped,omitempty"`
	Error     string    `json:"error,omitempty"`
}

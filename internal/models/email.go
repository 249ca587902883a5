package models

import "time"

// Draft statuses.
const (
	DraftStatusDraft = "draft"
	DraftStatusSent  = "sent"
)

// EmailDraft is a generated, not-yet-sent outreach email for a lead.
type EmailDraft struct {
	ID        string     `json:"id"`
	LeadID    string     `json:"leadId"`
	Subject   string     `json:"subject"`
	BodyHTML  string     `json:"bodyHtml"`
	Template  string     `json:"template"` // high_score, simplified, generated
	Status    string     `json:"status"`
	MessageID string     `json:"messageId,omitempty"` // provider id once sent
	CreatedAt time.Time  `json:"createdAt"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
}

// Suppression reasons.
const (
	SuppressionReasonUnsubscribe = "unsubscribe"
	SuppressionReasonManual      = "manual"
	SuppressionReasonHardBounce  = "hard_bounce"
)

// EmailSuppression is a permanent opt-out record. The address is stored
// lowercased and unique; presence short-circuits every send path.
type EmailSuppression struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Reason       string    `json:"reason"`
	SuppressedAt time.Time `json:"suppressedAt"`
}

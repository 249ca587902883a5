package models

import "time"

// Lead statuses as the pipeline advances a prospect.
const (
	LeadStatusNew     = "new"
	LeadStatusAudited = "audited"
	LeadStatusEmailed = "emailed"
)

// Lead represents a prospect who submitted the contact form or booked a
// discovery call. Leads are never hard-deleted by the pipeline.
type Lead struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Business      string     `json:"business,omitempty"`
	WebsiteURL    string     `json:"websiteUrl,omitempty"`
	Message       string     `json:"message,omitempty"`
	Status        string     `json:"status"`
	BookedConsult bool       `json:"bookedConsult"`
	EventURI      string     `json:"eventUri,omitempty"` // scheduling event reference
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	BookedAt      *time.Time `json:"bookedAt,omitempty"`
}

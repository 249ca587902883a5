package models

import "time"

// Incident severities and statuses.
const (
	SevOne   = "sev-1"
	SevTwo   = "sev-2"
	SevThree = "sev-3"

	IncidentOpen       = "open"
	IncidentMonitoring = "monitoring"
	IncidentResolved   = "resolved"
)

// Incident is a tracked health-check failure for a site.
type Incident struct {
	ID         string     `json:"id"`
	SiteID     string     `json:"siteId"`
	Severity   string     `json:"severity"`
	Status     string     `json:"status"`
	Summary    string     `json:"summary,omitempty"`
	OpenedAt   time.Time  `json:"openedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// Notification recipient classes and channels.
const (
	RecipientInternal = "internal"
	RecipientClient   = "client"

	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Notification records one delivery attempt for an incident. It is an
// audit log entry, written whether or not the send succeeded.
type Notification struct {
	ID         string    `json:"id"`
	IncidentID string    `json:"incidentId"`
	SiteID     string    `json:"siteId"`
	Recipient  string    `json:"recipient"` // internal | client
	Channel    string    `json:"channel"`   // email | sms
	Address    string    `json:"address"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	SentAt     time.Time `json:"sentAt"`
}

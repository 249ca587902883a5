// internal/monitor/notify/models.go
package notify

// Input is the incident notification request body.
type Input struct {
	IncidentID string `json:"incident_id" validate:"required,uuid4"`
	SiteID     string `json:"site_id" validate:"required,uuid4"`
	Severity   string `json:"severity" validate:"required,oneof=sev-1 sev-2 sev-3"`
	IsNew      bool   `json:"is_new"`
	IsResolved bool   `json:"is_resolved"`
}

// NotificationResult is one attempt's outcome in the response body.
type NotificationResult struct {
	Recipient string `json:"recipient"`
	Channel   string `json:"channel"`
	Success   bool   `json:"success"`
}

type Output struct {
	Success           bool                 `json:"success"`
	NotificationsSent int                  `json:"notifications_sent"`
	Notifications     []NotificationResult `json:"notifications"`
}

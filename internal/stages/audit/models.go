// internal/stages/audit/models.go
package audit

import "outreach-pipeline/internal/models"

// Input is the audit request body.
type Input struct {
	URL    string `json:"url" validate:"required"`
	LeadID string `json:"lead_id" validate:"required,uuid4"`
}

// Output mirrors the audit response body.
type Output struct {
	Success bool                  `json:"success"`
	AuditID string                `json:"audit_id"`
	Scores  models.CategoryScores `json:"scores"`
	Vitals  models.CoreWebVitals  `json:"core_web_vitals"`
}

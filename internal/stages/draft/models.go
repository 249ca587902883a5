// internal/stages/draft/models.go
package draft

// Input is the draft request body.
type Input struct {
	LeadID string `json:"lead_id" validate:"required,uuid4"`
}

// Output mirrors the draft response body. A suppressed lead produces
// Success=false with Error set and no draft; that is not a failure.
type Output struct {
	Success      bool   `json:"success"`
	EmailDraftID string `json:"email_draft_id,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Body         string `json:"body,omitempty"`
	Template     string `json:"template,omitempty"`
	Error        string `json:"error,omitempty"`
}

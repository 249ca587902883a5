// internal/stages/orchestrator/models.go
package orchestrator

import "net/http"

// Input is the process-lead request body.
type Input struct {
	LeadID string `json:"lead_id" validate:"required,uuid4"`
}

// StepResult is one step's structured outcome.
type StepResult struct {
	Success bool        `json:"success"`
	Skipped bool        `json:"skipped,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Output is the aggregated per-step result. Success is true iff audit
// and draft both succeeded; a failed send degrades to 207.
type Output struct {
	Success bool   `json:"success"`
	LeadID  string `json:"lead_id"`
	Steps   struct {
		Audit    StepResult `json:"audit"`
		Insights StepResult `json:"insights"`
		Email    StepResult `json:"email"`
		Send     StepResult `json:"send"`
	} `json:"steps"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	status int
}

// HTTPStatus is the response code for this outcome: 200 full success
// (or suppressed short-circuit), 207 partial, 500 critical failure.
func (o *Output) HTTPStatus() int {
	if o.status == 0 {
		return http.StatusOK
	}
	return o.status
}

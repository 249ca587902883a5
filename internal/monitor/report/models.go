// internal/monitor/report/models.go
package report

// Input optionally pins the report month; empty means the prior
// calendar month.
type Input struct {
	Month string `json:"month,omitempty"` // YYYY-MM
}

// SiteReport is one site's line in the response body.
type SiteReport struct {
	SiteID    string  `json:"site_id"`
	Domain    string  `json:"domain"`
	Status    string  `json:"status"`
	UptimePct float64 `json:"uptime_pct"`
	EmailedTo string  `json:"emailed_to"`
}

type Output struct {
	Success bool         `json:"success"`
	Month   string       `json:"month"`
	Reports []SiteReport `json:"reports"`
	Failed  int          `json:"failed,omitempty"`
}

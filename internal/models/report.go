package models

import "time"

// Monthly report tri-state status.
const (
	ReportAllClear     = "all_clear"
	ReportAttention    = "attention"
	ReportActionNeeded = "action_needed"
)

// MonthlyReport summarizes one site's health over a calendar month.
// Upserted keyed by (SiteID, Month).
type MonthlyReport struct {
	ID            string    `json:"id"`
	SiteID        string    `json:"siteId"`
	Month         string    `json:"month"` // YYYY-MM
	UptimePct     float64   `json:"uptimePct"`
	TotalEvents   int       `json:"totalEvents"`
	SevOneCount   int       `json:"sev1Count"`
	SevTwoCount   int       `json:"sev2Count"`
	SevThreeCount int       `json:"sev3Count"`
	Status        string    `json:"status"`
	Summary       []string  `json:"summary"`
	EmailedTo     string    `json:"emailedTo,omitempty"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

package models

import "time"

// Subscription tiers controlling incident notification scope.
const (
	TierNone       = "none"
	TierEssentials = "essentials"
	TierCare       = "care"
)

// MonitoredSite is a client site covered by the uptime product.
type MonitoredSite struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Domain           string     `json:"domain"`
	Environment      string     `json:"environment"`
	SubscriptionTier string     `json:"subscriptionTier"`
	ContactEmails    []string   `json:"contactEmails"`
	Active           bool       `json:"active"`
	TrialEndsAt      *time.Time `json:"trialEndsAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Health event outcomes.
const (
	HealthPass = "pass"
	HealthWarn = "warn"
	HealthFail = "fail"
)

// HealthCheck is a configured recurring check against a site.
type HealthCheck struct {
	ID        string `json:"id"`
	SiteID    string `json:"siteId"`
	CheckType string `json:"checkType"` // uptime, cms, forms
	TargetURL string `json:"targetUrl"`
}

// HealthEvent is one timestamped check result. Events are append-only.
type HealthEvent struct {
	ID        string    `json:"id"`
	CheckID   string    `json:"checkId"`
	SiteID    string    `json:"siteId"`
	Status    string    `json:"status"`
	LatencyMS int       `json:"latencyMs"`
	CheckedAt time.Time `json:"checkedAt"`
}

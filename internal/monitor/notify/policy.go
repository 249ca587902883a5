// internal/monitor/notify/policy.go
package notify

import "outreach-pipeline/internal/models"

// Decision says who hears about an incident event and how.
type Decision struct {
	NotifyInternal  bool
	NotifyClient    bool
	PageInternalSMS bool
}

// Decide is the pure tier-gating function.
//
// New incidents: internal always; client by tier. Care hears about
// sev-1 and sev-2, essentials only sev-1, none never. A new sev-1
// additionally pages internal over SMS. Resolutions: internal always,
// client only on the care tier. An event that is neither new nor a
// resolution notifies nobody.
func Decide(tier, severity string, isNew, isResolved bool) Decision {
	switch {
	case isNew:
		return Decision{
			NotifyInternal:  true,
			NotifyClient:    clientHearsNew(tier, severity),
			PageInternalSMS: severity == models.SevOne,
		}
	case isResolved:
		return Decision{
			NotifyInternal: true,
			NotifyClient:   tier == models.TierCare,
		}
	default:
		return Decision{}
	}
}

func clientHearsNew(tier, severity string) bool {
	switch tier {
	case models.TierCare:
		return severity == models.SevOne || severity == models.SevTwo
	case models.TierEssentials:
		return severity == models.SevOne
	default:
		return false
	}
}

package models

import "time"

// CategoryScores holds the four 0-100 category scores from a page-speed
// run. A nil pointer means the provider omitted the category; absent is
// never reported as zero.
type CategoryScores struct {
	Performance   *float64 `json:"performance"`
	Accessibility *float64 `json:"accessibility"`
	SEO           *float64 `json:"seo"`
	BestPractices *float64 `json:"best_practices"`
}

// AllPresent reports whether every category returned a score.
func (s CategoryScores) AllPresent() bool {
	return s.Performance != nil && s.Accessibility != nil && s.SEO != nil && s.BestPractices != nil
}

// Lowest returns the name and value of the lowest present category.
// ok is false when no score is present at all.
func (s CategoryScores) Lowest() (name string, value float64, ok bool) {
	type entry struct {
		name  string
		score *float64
	}
	for _, e := range []entry{
		{"performance", s.Performance},
		{"accessibility", s.Accessibility},
		{"seo", s.SEO},
		{"best_practices", s.BestPractices},
	} {
		if e.score == nil {
			continue
		}
		if !ok || *e.score < value {
			name, value, ok = e.name, *e.score, true
		}
	}
	return name, value, ok
}

// CoreWebVitals holds lab metrics from the provider run.
type CoreWebVitals struct {
	LCP *float64 `json:"lcp"` // seconds
	CLS *float64 `json:"cls"` // unitless
	INP *float64 `json:"inp"` // milliseconds
}

// SiteAudit is one page-speed scan of a lead's website. Immutable after
// creation; exactly one audit per lead carries IsLatest, maintained by a
// single transaction in the store.
type SiteAudit struct {
	ID         string         `json:"id"`
	LeadID     string         `json:"leadId"`
	URL        string         `json:"url"`
	Scores     CategoryScores `json:"scores"`
	Vitals     CoreWebVitals  `json:"coreWebVitals"`
	RawPayload []byte         `json:"-"` // provider response, stored verbatim
	IsLatest   bool           `json:"isLatest"`
	CreatedAt  time.Time      `json:"createdAt"`
}

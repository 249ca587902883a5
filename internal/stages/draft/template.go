// internal/stages/draft/template.go
package draft

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"outreach-pipeline/internal/models"
)

// TemplateKind is the tagged-variant outcome of template dispatch.
type TemplateKind string

const (
	TemplateHighScore  TemplateKind = "high_score"
	TemplateSimplified TemplateKind = "simplified"
	TemplateGenerated  TemplateKind = "generated"
)

const highScoreThreshold = 80.0

// SelectTemplate is the pure dispatch function: all four scores present
// and at or above threshold wins the congratulatory template; without
// insights we fall back to the simplified one; otherwise generation.
func SelectTemplate(scores models.CategoryScores, insightsAvailable bool) TemplateKind {
	if scores.AllPresent() &&
		*scores.Performance >= highScoreThreshold &&
		*scores.Accessibility >= highScoreThreshold &&
		*scores.SEO >= highScoreThreshold &&
		*scores.BestPractices >= highScoreThreshold {
		return TemplateHighScore
	}
	if !insightsAvailable {
		return TemplateSimplified
	}
	return TemplateGenerated
}

const subjectLine = "A quick look at your website"

// categoryExplanations are deliberately non-technical; the simplified
// template shows exactly one of these for the lowest-scoring category.
var categoryExplanations = map[string]struct {
	display     string
	explanation string
}{
	"performance": {
		display:     "speed",
		explanation: "when a page takes too long to appear, many visitors leave before they ever see what you offer",
	},
	"accessibility": {
		display:     "ease of use",
		explanation: "some visitors, including those browsing on small screens or with assistive tools, may struggle to read or navigate the site",
	},
	"seo": {
		display:     "search visibility",
		explanation: "people searching for businesses like yours may not find you, because search engines have trouble understanding the site",
	},
	"best_practices": {
		display:     "reliability",
		explanation: "parts of the site rely on outdated building blocks, which can cause glitches for visitors over time",
	},
}

func greeting(lead *models.Lead) string {
	name := strings.TrimSpace(lead.Name)
	if name == "" {
		return "Hi there,"
	}
	return fmt.Sprintf("Hi %s,", strings.Fields(name)[0])
}

func buildHighScoreBody(lead *models.Lead, audit *models.SiteAudit, signature, footer string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s</p>", greeting(lead))
	fmt.Fprintf(&b, "<p>I took a look at <a href=\"%s\">your website</a> and wanted to say: it is in great shape. "+
		"It loads quickly, works well for visitors, and shows up properly in search. "+
		"That puts you ahead of most sites we review.</p>", audit.URL)
	b.WriteString("<p>There is nothing urgent to fix. If you ever want a second pair of eyes on the site, " +
		"or are thinking about a refresh down the road, we are around.</p>")
	b.WriteString(signature)
	b.WriteString(footer)
	return b.String()
}

func buildSimplifiedBody(lead *models.Lead, audit *models.SiteAudit, signature, footer string) string {
	lowest, _, ok := audit.Scores.Lowest()
	cat, known := categoryExplanations[lowest]
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s</p>", greeting(lead))
	if ok && known {
		fmt.Fprintf(&b, "<p>I took a look at <a href=\"%s\">your website</a>. "+
			"The area with the most room to improve is <b>%s</b>: %s.</p>",
			audit.URL, cat.display, cat.explanation)
	} else {
		fmt.Fprintf(&b, "<p>I took a look at <a href=\"%s\">your website</a> and "+
			"found a few areas where small changes could help visitors.</p>", audit.URL)
	}
	b.WriteString("<p>This is usually straightforward to improve. If you would like, " +
		"I can walk you through what we found in a short call.</p>")
	b.WriteString(signature)
	b.WriteString(footer)
	return b.String()
}

func buildSignature(name string) string {
	return fmt.Sprintf("<p>Best,<br>%s</p>", name)
}

func buildFooter(baseURL, email, token string) string {
	q := url.Values{"email": {email}, "token": {token}}
	return fmt.Sprintf(
		"<p><a href=\"%s?%s\">Unsubscribe</a> to stop hearing from us.</p>",
		baseURL, q.Encode())
}

var tagPattern = regexp.MustCompile(`(?i)</?([a-z0-9]+)[^>]*>`)

var allowedTags = map[string]bool{
	"p": true, "b": true, "a": true, "br": true, "i": true,
}

// validateHTML enforces the generated-body tag restriction.
func validateHTML(body string) error {
	for _, m := range tagPattern.FindAllStringSubmatch(body, -1) {
		tag := strings.ToLower(m[1])
		if !allowedTags[tag] {
			return fmt.Errorf("disallowed HTML tag <%s>", tag)
		}
	}
	return nil
}

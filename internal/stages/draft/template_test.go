package draft

import (
	"html"
	"net/url"
	"regexp"
	"testing"

	"outreach-pipeline/internal/mailer"
	"outreach-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func score(v float64) *float64 { return &v }

func allScores(p, a, s, b float64) models.CategoryScores {
	return models.CategoryScores{
		Performance:   score(p),
		Accessibility: score(a),
		SEO:           score(s),
		BestPractices: score(b),
	}
}

func TestSelectTemplate(t *testing.T) {
	tests := []struct {
		name              string
		scores            models.CategoryScores
		insightsAvailable bool
		want              TemplateKind
	}{
		{
			name:   "all scores at or above threshold",
			scores: allScores(95, 90, 88, 82),
			want:   TemplateHighScore,
		},
		{
			name:              "high scores win even with insights",
			scores:            allScores(80, 80, 80, 80),
			insightsAvailable: true,
			want:              TemplateHighScore,
		},
		{
			name:   "one low score, no insights",
			scores: allScores(95, 90, 88, 60),
			want:   TemplateSimplified,
		},
		{
			name:              "one low score, insights available",
			scores:            allScores(95, 90, 88, 60),
			insightsAvailable: true,
			want:              TemplateGenerated,
		},
		{
			name:   "absent score is not high, no insights",
			scores: models.CategoryScores{Performance: score(95), Accessibility: score(90), SEO: score(88)},
			want:   TemplateSimplified,
		},
		{
			name:              "absent score with insights",
			scores:            models.CategoryScores{Performance: score(95)},
			insightsAvailable: true,
			want:              TemplateGenerated,
		},
		{
			name:   "no scores at all, no insights",
			scores: models.CategoryScores{},
			want:   TemplateSimplified,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectTemplate(tt.scores, tt.insightsAvailable))
		})
	}
}

func TestSimplifiedBody_NamesExactlyTheLowestCategory(t *testing.T) {
	lead := &models.Lead{Name: "Dana Smith"}
	audit := &models.SiteAudit{
		URL:    "https://example.com",
		Scores: allScores(95, 42, 88, 70),
	}

	body := buildSimplifiedBody(lead, audit, buildSignature("Studio"), "")
	assert.Contains(t, body, "<b>ease of use</b>", "lowest category is accessibility")
	assert.NotContains(t, body, "<b>speed</b>")
	assert.NotContains(t, body, "<b>search visibility</b>")
	assert.NotContains(t, body, "<b>reliability</b>")
	assert.Contains(t, body, "Hi Dana,")
}

func TestHighScoreBody_NoProblemFraming(t *testing.T) {
	lead := &models.Lead{Name: "Dana"}
	audit := &models.SiteAudit{URL: "https://example.com", Scores: allScores(95, 90, 88, 82)}

	body := buildHighScoreBody(lead, audit, buildSignature("Studio"), "")
	assert.Contains(t, body, "great shape")
	assert.NotContains(t, body, "improve")
	assert.NotContains(t, body, "fix it")
}

func TestValidateHTML(t *testing.T) {
	assert.NoError(t, validateHTML(`<p>Hi <b>there</b>,<br>see <a href="x">this</a> <i>soon</i></p>`))
	assert.Error(t, validateHTML(`<p>Hi</p><script>alert(1)</script>`))
	assert.Error(t, validateHTML(`<div>block</div>`))
	assert.Error(t, validateHTML(`<P><IMG src="x"></P>`), "case-insensitive tag check")
	assert.NoError(t, validateHTML(`plain text without markup`))
}

func TestFooterUnsubscribeLink_RoundTrip(t *testing.T) {
	// Addresses with query-reserved characters must survive the link:
	// the handler reads the email back via r.URL.Query(), so a raw "+"
	// would come back as a space and the token would never verify.
	for _, email := range []string{
		"dana+news@example.com",
		"dana@example.com",
		"first.last+tag@sub.example.com",
	} {
		t.Run(email, func(t *testing.T) {
			token := mailer.UnsubscribeToken("unsub-secret", email)
			footer := buildFooter("https://agency.test/unsubscribe", email, token)

			m := regexp.MustCompile(`href="([^"]+)"`).FindStringSubmatch(footer)
			require.Len(t, m, 2)

			link, err := url.Parse(html.UnescapeString(m[1]))
			require.NoError(t, err)

			gotEmail := link.Query().Get("email")
			assert.Equal(t, email, gotEmail)
			assert.True(t, mailer.VerifyUnsubscribeToken("unsub-secret", gotEmail, link.Query().Get("token")))
		})
	}
}

// internal/stages/insights/handler.go
//
// Best-effort enrichment: the generator never returns an error to its
// caller. Any failure degrades to a skipped result with a reason, and
// the pipeline continues without insights.
package insights

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/common/metrics"
	"outreach-pipeline/internal/models"
	"outreach-pipeline/internal/store"
)

const StageName = "insights"

// Result is the explicit degraded-variant outcome: either Insights is
// populated, or Skipped is true and Reason says why.
type Result struct {
	Insights []string `json:"insights,omitempty"`
	Skipped  bool     `json:"skipped"`
	Reason   string   `json:"reason,omitempty"`
}

func skipped(reason string) *Result {
	return &Result{Skipped: true, Reason: reason}
}

type Store interface {
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	GetLatestAudit(ctx context.Context, leadID string) (*models.SiteAudit, error)
}

// Completer produces raw model output for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Handler struct {
	store  Store
	genai  Completer
	logger logger.Logger
}

func NewHandler(st Store, genai Completer, log logger.Logger) *Handler {
	return &Handler{
		store:  st,
		genai:  genai,
		logger: log.WithFields(map[string]interface{}{"stage": StageName}),
	}
}

// Execute derives qualitative observations from the lead's latest
// audit. The only error-shaped outcome is a skipped Result.
func (h *Handler) Execute(ctx context.Context, leadID string) *Result {
	started := time.Now()
	res := h.execute(ctx, leadID)
	metrics.StageRunDuration.WithLabelValues(StageName).Observe(time.Since(started).Seconds())
	if res.Skipped {
		metrics.StageRunsFailed.WithLabelValues(StageName, "skipped").Inc()
		h.logger.Warn("insight generation skipped", map[string]interface{}{
			"leadId": leadID,
			"reason": res.Reason,
		})
	} else {
		metrics.StageRunsCompleted.WithLabelValues(StageName).Inc()
	}
	return res
}

func (h *Handler) execute(ctx context.Context, leadID string) *Result {
	lead, err := h.store.GetLead(ctx, leadID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return skipped("lead not found")
		}
		return skipped(fmt.Sprintf("lead lookup failed: %v", err))
	}

	audit, err := h.store.GetLatestAudit(ctx, lead.ID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return skipped("no audit available")
		}
		return skipped(fmt.Sprintf("audit lookup failed: %v", err))
	}

	raw, err := h.genai.Complete(ctx, buildPrompt(lead, audit))
	if err != nil {
		return skipped(fmt.Sprintf("completion failed: %v", err))
	}

	insights, err := parseInsights(raw)
	if err != nil {
		return skipped(fmt.Sprintf("malformed completion: %v", err))
	}
	if len(insights) == 0 {
		return skipped("model produced no insights")
	}
	return &Result{Insights: insights}
}

func buildPrompt(lead *models.Lead, audit *models.SiteAudit) string {
	var b strings.Builder
	b.WriteString("You are reviewing a small-business website scan. ")
	b.WriteString("Produce a JSON array of short plain-language observations ")
	b.WriteString("a non-technical owner would understand. No jargon, no tool names.\n")
	fmt.Fprintf(&b, "Business: %s\nWebsite: %s\n", lead.Business, audit.URL)
	writeScore := func(name string, v *float64) {
		if v == nil {
			fmt.Fprintf(&b, "%s: not measured\n", name)
			return
		}
		fmt.Fprintf(&b, "%s: %.0f/100\n", name, *v)
	}
	writeScore("Performance", audit.Scores.Performance)
	writeScore("Accessibility", audit.Scores.Accessibility)
	writeScore("Search visibility", audit.Scores.SEO)
	writeScore("Best practices", audit.Scores.BestPractices)
	return b.String()
}

// parseInsights accepts either a bare JSON array or one wrapped in an
// {"insights": [...]} object, both observed in model output.
func parseInsights(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return compact(list), nil
	}

	var wrapped struct {
		Insights []string `json:"insights"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && wrapped.Insights != nil {
		return compact(wrapped.Insights), nil
	}
	return nil, fmt.Errorf("output is neither a JSON array nor an insights object")
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

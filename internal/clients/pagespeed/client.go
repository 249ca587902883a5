// internal/clients/pagespeed/client.go
package pagespeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"outreach-pipeline/internal/common/config"
	"outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

const providerName = "pagespeed"

// categories requested on every run.
var categories = []string{"performance", "accessibility", "seo", "best-practices"}

// responseSchema is the minimal shape we rely on for score extraction.
// Payloads that fail it degrade to null scores rather than aborting.
const responseSchema = `{
	"type": "object",
	"required": ["lighthouseResult"],
	"properties": {
		"lighthouseResult": {
			"type": "object",
			"required": ["categories"],
			"properties": {
				"categories": {"type": "object"},
				"audits": {"type": "object"}
			}
		}
	}
}`

// Result is one completed provider run. Absent category scores stay
// nil; RawPayload keeps the provider response verbatim for archival.
type Result struct {
	Scores     models.CategoryScores
	Vitals     models.CoreWebVitals
	RawPayload []byte
}

type Client struct {
	cfg    config.APIsConfig
	client *http.Client
	schema *gojsonschema.Schema
	logger logger.Logger
}

func New(cfg config.APIsConfig, log logger.Logger) (*Client, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(responseSchema))
	if err != nil {
		return nil, fmt.Errorf("compile pagespeed schema: %w", err)
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.PageSpeed.Timeout) * time.Millisecond},
		schema: schema,
		logger: log.WithFields(map[string]interface{}{"client": providerName}),
	}, nil
}

// Run executes one analysis of target with the configured strategy and
// all four categories. Provider HTTP failures carry the provider's own
// status code; malformed response bodies come back as null scores.
func (c *Client) Run(ctx context.Context, target string) (*Result, error) {
	if c.cfg.PageSpeed.APIKey == "" {
		return nil, errors.NewConfigMissingError("pagespeed api key")
	}

	q := url.Values{}
	q.Set("url", target)
	q.Set("strategy", c.cfg.PageSpeed.Strategy)
	q.Set("key", c.cfg.PageSpeed.APIKey)
	for _, cat := range categories {
		q.Add("category", cat)
	}

	endpoint := c.cfg.PageSpeed.BaseURL + "/runPagespeed?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewUpstreamProviderError(providerName, 0, err.Error())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewUpstreamProviderError(providerName, 0, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewUpstreamProviderError(providerName, resp.StatusCode, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewUpstreamProviderError(providerName, resp.StatusCode, string(body))
	}

	result := &Result{RawPayload: body}
	payload, ok := c.validate(body)
	if !ok {
		// Keep the raw payload, report every score as absent.
		return result, nil
	}

	lighthouse := payload["lighthouseResult"].(map[string]interface{})
	result.Scores = extractScores(lighthouse)
	result.Vitals = extractVitals(lighthouse)
	return result, nil
}

func (c *Client) validate(body []byte) (map[string]interface{}, bool) {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Warn("malformed provider response, degrading to null scores",
			map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	verdict, err := c.schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil || !verdict.Valid() {
		c.logger.Warn("provider response failed schema validation, degrading to null scores",
			map[string]interface{}{"valid": err == nil})
		return nil, false
	}
	return payload, true
}

func extractScores(lighthouse map[string]interface{}) models.CategoryScores {
	cats, _ := lighthouse["categories"].(map[string]interface{})
	return models.CategoryScores{
		Performance:   categoryScore(cats, "performance"),
		Accessibility: categoryScore(cats, "accessibility"),
		SEO:           categoryScore(cats, "seo"),
		BestPractices: categoryScore(cats, "best-practices"),
	}
}

// categoryScore converts the provider's 0-1 score to the 0-100 scale.
// A missing or non-numeric score stays nil, never zero.
func categoryScore(cats map[string]interface{}, id string) *float64 {
	cat, ok := cats[id].(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := cat["score"].(float64)
	if !ok {
		return nil
	}
	v := raw * 100
	return &v
}

func extractVitals(lighthouse map[string]interface{}) models.CoreWebVitals {
	audits, _ := lighthouse["audits"].(map[string]interface{})
	return models.CoreWebVitals{
		LCP: auditMetric(audits, "largest-contentful-paint", 0.001), // ms → seconds
		CLS: auditMetric(audits, "cumulative-layout-shift", 1),
		INP: auditMetric(audits, "interaction-to-next-paint", 1), // stays ms
	}
}

func auditMetric(audits map[string]interface{}, id string, scale float64) *float64 {
	audit, ok := audits[id].(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := audit["numericValue"].(float64)
	if !ok {
		return nil
	}
	v := raw * scale
	return &v
}

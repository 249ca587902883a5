// internal/clients/genai/client.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"outreach-pipeline/internal/common/config"
	"outreach-pipeline/internal/common/logger"
)

var (
	ErrTimeout          = errors.New("GENAI_TIMEOUT")
	ErrCompletionFailed = errors.New("GENAI_COMPLETION_FAILED")
)

// Client is a thin completion client over the language-model provider.
// Retries transient failures with exponential backoff up to the
// configured attempt count; the context deadline bounds the whole call.
type Client struct {
	cfg    config.APIsConfig
	client *http.Client
	logger logger.Logger
}

func New(cfg config.APIsConfig, log logger.Logger) *Client {
	return &Client{
		cfg: cfg,
		// No client timeout; the per-call context carries the deadline.
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{"client": "genai"}),
	}
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type completionResponse struct {
	Text string `json:"text"`
}

// Complete sends the prompt and returns the model's raw text output.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.cfg.GenAI.APIKey == "" {
		return "", fmt.Errorf("%w: api key not configured", ErrCompletionFailed)
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.cfg.GenAI.Model,
		Prompt:      prompt,
		MaxTokens:   c.cfg.GenAI.MaxTokens,
		Temperature: c.cfg.GenAI.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	timeout := time.Duration(c.cfg.GenAI.Timeout) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.cfg.GenAI.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrTimeout
			}
			c.logger.Info("retrying completion", map[string]interface{}{
				"attempt": attempt,
				"lastErr": fmt.Sprintf("%v", lastErr),
			})
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.GenAI.BaseURL+"/v1/completions", bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.GenAI.APIKey)

		resp, lastErr = c.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return "", ErrTimeout
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, lastErr)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: no successful response after retries", ErrCompletionFailed)
	}
	defer resp.Body.Close()

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrCompletionFailed, err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrCompletionFailed)
	}
	return out.Text, nil
}

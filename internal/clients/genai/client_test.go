package genai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"outreach-pipeline/internal/common/config"
	"outreach-pipeline/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string, maxRetries int) *Client {
	cfg := config.APIsConfig{}
	cfg.GenAI.BaseURL = baseURL
	cfg.GenAI.APIKey = "test-key"
	cfg.GenAI.Model = "test-model"
	cfg.GenAI.MaxTokens = 512
	cfg.GenAI.Temperature = 0.7
	cfg.GenAI.MaxRetries = maxRetries
	cfg.GenAI.Timeout = 5000
	return New(cfg, logger.NewNoOpLogger())
}

func TestComplete_ReturnsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"text": "hello from the model"}`))
	}))
	defer srv.Close()

	text, err := testClient(srv.URL, 0).Complete(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello from the model", text)
}

func TestComplete_RetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"text": "eventually fine"}`))
	}))
	defer srv.Close()

	text, err := testClient(srv.URL, 3).Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "eventually fine", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestComplete_ExhaustedRetriesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 1).Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrCompletionFailed)
}

func TestComplete_EmptyCompletionIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "   "}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 0).Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrCompletionFailed)
}

func TestComplete_MissingKeyFailsFast(t *testing.T) {
	cfg := config.APIsConfig{}
	cfg.GenAI.BaseURL = "http://localhost:0"
	cfg.GenAI.Timeout = 1000
	c := New(cfg, logger.NewNoOpLogger())

	_, err := c.Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrCompletionFailed)
}

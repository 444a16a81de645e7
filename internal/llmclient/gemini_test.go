package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/api/schemas"
	"github.com/halcyonsec/guardian-cli/internal/config"
)

func testConfig(endpoint string) config.LLMConfig {
	return config.LLMConfig{
		Provider:          config.ProviderGemini,
		Model:             "gemini-2.5-flash",
		APIKey:            "test-key",
		Endpoint:          endpoint,
		APITimeout:        5 * time.Second,
		MaxTokens:         1500,
		RequestsPerMinute: 6000,
		InputCostPer1M:    3.0,
		OutputCostPer1M:   15.0,
	}
}

func successBody(text string, promptTokens, completionTokens int) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]any{{"text": text}},
					"role":  "model",
				},
				"finishReason": "STOP",
			},
		},
		"usageMetadata": map[string]any{
			"promptTokenCount":     promptTokens,
			"candidatesTokenCount": completionTokens,
			"totalTokenCount":      promptTokens + completionTokens,
		},
	}
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	cfg := testConfig("")
	cfg.APIKey = ""

	_, err := NewGeminiClient(cfg, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestGenerateResponse_Success(t *testing.T) {
	var gotKey string
	var gotPayload geminiRequestPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		require.NoError(t, json.NewEncoder(w).Encode(successBody("LINE 3: [HIGH] issue", 1000, 200)))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	res, err := client.GenerateResponse(context.Background(), schemas.GenerationRequest{
		SystemPrompt: "You review code.",
		UserPrompt:   "Analyze this.",
		MaxTokens:    900,
	})
	require.NoError(t, err)

	assert.Equal(t, "LINE 3: [HIGH] issue", res.Text)
	assert.Equal(t, 1000, res.PromptTokens)
	assert.Equal(t, 200, res.CompletionTokens)
	// 1000 prompt tokens at $3/1M plus 200 completion tokens at $15/1M.
	assert.InDelta(t, 0.006, res.Cost, 1e-9)

	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotPayload.Contents, 1)
	assert.Equal(t, "Analyze this.", gotPayload.Contents[0].Parts[0].Text)
	require.NotNil(t, gotPayload.SystemInstruction)
	assert.Equal(t, "You review code.", gotPayload.SystemInstruction.Parts[0].Text)
	assert.Equal(t, 900, gotPayload.GenerationConfig.MaxOutputTokens)
}

func TestGenerateResponse_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(successBody("ok", 10, 5)))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	res, err := client.GenerateResponse(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestGenerateResponse_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewGeminiClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
}

func TestGenerateResponse_SafetyBlockIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{}}, "finishReason": "SAFETY"},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGenerateResponse_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}}))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
	assert.ErrorContains(t, err, "no candidates")
}

func TestGenerateResponse_ContextCancellation(t *testing.T) {
	client, err := NewGeminiClient(testConfig("http://127.0.0.1:1"), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.GenerateResponse(ctx, schemas.GenerationRequest{UserPrompt: "hi"})
	assert.Error(t, err)
}

func TestNew_Factory(t *testing.T) {
	cfg := testConfig("")
	client, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, client)

	cfg.Provider = "openai"
	_, err = New(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported provider")
}

func TestBuildRequestPayload_DefaultsMaxTokens(t *testing.T) {
	client, err := NewGeminiClient(testConfig(""), zap.NewNop())
	require.NoError(t, err)

	payload := client.buildRequestPayload(schemas.GenerationRequest{UserPrompt: "hi"})
	assert.Equal(t, 1500, payload.GenerationConfig.MaxOutputTokens)
	assert.Nil(t, payload.SystemInstruction)
}

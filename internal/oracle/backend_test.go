// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rentsense/internal/httputil"
	"github.com/pdiddy/rentsense/pkg/types"
)

func TestClaudeBackend(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, 1024, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "ping", req.Messages[0].Content)

		json.NewEncoder(w).Encode(claudeResponse{Content: []claudeContent{
			{Type: "text", Text: `{"decision": `},
			{Type: "text", Text: `"show_results"}`},
		}})
	}))
	defer ts.Close()

	orig := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = orig }()

	b := &ClaudeBackend{APIKey: "test-key", Model: "claude-test", Client: ts.Client()}
	got, err := b.Complete(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, `{"decision": "show_results"}`, got)
}

func TestClaudeBackend_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "bad key"}`))
	}))
	defer ts.Close()

	orig := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = orig }()

	b := &ClaudeBackend{APIKey: "wrong", Model: "m", Client: ts.Client()}
	_, err := b.Complete(context.Background(), "ping")
	require.Error(t, err)
	assert.True(t, httputil.IsStatus(err, http.StatusUnauthorized))
}

func TestClaudeBackend_EmptyContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"content": [{"type": "tool_use"}]}`))
	}))
	defer ts.Close()

	orig := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = orig }()

	_, err := (&ClaudeBackend{Client: ts.Client()}).Complete(context.Background(), "ping")
	assert.ErrorContains(t, err, "no text content")
}

func TestGeminiBackend(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		assert.Equal(t, "rentsense/test", r.Header.Get("User-Agent"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "ping", req.Contents[0].Parts[0].Text)
		assert.Equal(t, 256, req.GenerationConfig.MaxOutputTokens)
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMIMEType)

		w.Write([]byte(`{"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"a\": 1}"}]}}]}`))
	}))
	defer ts.Close()

	orig := geminiAPIBase
	geminiAPIBase = ts.URL
	defer func() { geminiAPIBase = orig }()

	b := &GeminiBackend{APIKey: "g-key", Model: "gemini-2.0-flash", MaxTokens: 256, UserAgent: "rentsense/test", Client: ts.Client()}
	got, err := b.Complete(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, got)
}

func TestGeminiBackend_NoCandidates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer ts.Close()

	orig := geminiAPIBase
	geminiAPIBase = ts.URL
	defer func() { geminiAPIBase = orig }()

	_, err := (&GeminiBackend{Model: "m", Client: ts.Client()}).Complete(context.Background(), "ping")
	assert.ErrorContains(t, err, "no text content")
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.OracleConfig
		want    any
		wantErr bool
	}{
		{"claude", types.OracleConfig{Provider: types.ProviderClaude, APIKey: "k"}, &ClaudeBackend{}, false},
		{"gemini", types.OracleConfig{Provider: types.ProviderGemini, APIKey: "k"}, &GeminiBackend{}, false},
		{"none", types.OracleConfig{Provider: types.ProviderNone}, disabledBackend{}, false},
		{"claude without key", types.OracleConfig{Provider: types.ProviderClaude}, nil, true},
		{"unknown", types.OracleConfig{Provider: "openai", APIKey: "k"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBackend(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
		})
	}
}

func TestClientOverClaude(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(claudeResponse{Content: []claudeContent{
			{Type: "text", Text: "```json\n{\"clear\": {\"Safety\": {\"weight_delta\": 1.2}}}\n```"},
		}})
	}))
	defer ts.Close()

	orig := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = orig }()

	c := New(&ClaudeBackend{APIKey: "k", Model: "m", Client: ts.Client()}, 0)
	got, err := c.ExtractDeltas(context.Background(), "I need to feel safe")
	require.NoError(t, err)
	assert.Equal(t, map[types.Dimension]float64{types.DimSafety: 1.2}, got)
}

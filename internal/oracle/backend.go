// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/rentsense/internal/httputil"
	"github.com/pdiddy/rentsense/pkg/types"
)

// Backend sends a single prompt to a language model and returns its text
// reply. Implementations make one attempt and honor ctx.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// geminiAPIBase is the Generative Language API root. Package-level var for
// test substitution.
var geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta"

// ClaudeBackend calls the Anthropic Messages API.
type ClaudeBackend struct {
	APIKey    string
	Model     string
	MaxTokens int
	UserAgent string
	Client    *http.Client
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends prompt as a single user message.
func (c *ClaudeBackend) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := claudeRequest{
		Model:     c.Model,
		MaxTokens: maxTokens(c.MaxTokens),
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.APIKey,
		"anthropic-version": "2023-06-01",
	}
	if c.UserAgent != "" {
		headers["User-Agent"] = c.UserAgent
	}

	var resp claudeResponse
	if err := httputil.PostJSON(ctx, c.Client, claudeAPIURL, headers, reqBody, &resp); err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in Claude API response")
	}
	return sb.String(), nil
}

// GeminiBackend calls the Generative Language generateContent method.
type GeminiBackend struct {
	APIKey    string
	Model     string
	MaxTokens int
	UserAgent string
	Client    *http.Client
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens  int    `json:"maxOutputTokens"`
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Complete sends prompt as a single user turn and asks for a JSON reply.
func (g *GeminiBackend) Complete(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", geminiAPIBase, url.PathEscape(g.Model))
	reqBody := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens:  maxTokens(g.MaxTokens),
			ResponseMIMEType: "application/json",
		},
	}
	headers := map[string]string{"x-goog-api-key": g.APIKey}
	if g.UserAgent != "" {
		headers["User-Agent"] = g.UserAgent
	}

	var resp geminiResponse
	if err := httputil.PostJSON(ctx, g.Client, endpoint, headers, reqBody, &resp); err != nil {
		return "", fmt.Errorf("calling Gemini API: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in Gemini API response")
	}
	return sb.String(), nil
}

// disabledBackend fails every call. It backs the "none" provider.
type disabledBackend struct{}

func (disabledBackend) Complete(context.Context, string) (string, error) {
	return "", fmt.Errorf("oracle disabled by configuration")
}

// NewBackend builds the backend named by cfg.Provider. A missing API key
// for a remote provider is an error.
func NewBackend(cfg types.OracleConfig, client *http.Client) (Backend, error) {
	if client == nil {
		client = &http.Client{}
	}
	switch cfg.Provider {
	case types.ProviderNone:
		return disabledBackend{}, nil
	case types.ProviderClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude provider requires an API key (.secrets/anthropic-api-key)")
		}
		return &ClaudeBackend{
			APIKey: cfg.APIKey, Model: cfg.Model, MaxTokens: cfg.MaxTokens,
			UserAgent: cfg.UserAgent, Client: client,
		}, nil
	case types.ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key (.secrets/gemini-api-key)")
		}
		return &GeminiBackend{
			APIKey: cfg.APIKey, Model: cfg.Model, MaxTokens: cfg.MaxTokens,
			UserAgent: cfg.UserAgent, Client: client,
		}, nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
}

func maxTokens(n int) int {
	if n <= 0 {
		return 1024
	}
	return n
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

type GeminiProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiChatReq struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int     `json:"maxOutputTokens"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiChatResp struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewGeminiProvider(baseURL, apiKey string) *GeminiProvider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// estimateTokens approximates a token count as one token per four
// characters, rounded up. The API does not report usage on this tier, so
// counts are estimates, not exact.
func estimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// flattenPrompt joins all message contents in order with newlines. There is
// no multi-turn structure on this call shape; the conversation becomes one
// prompt string.
func flattenPrompt(messages []Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

func (p *GeminiProvider) Chat(ctx context.Context, req Request) (*Result, error) {
	if p.Client == nil {
		return nil, &ProviderError{Provider: p.Name(), Err: errors.New("http client is nil")}
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, &ProviderError{Provider: p.Name(), Err: errors.New("api key is required")}
	}

	prompt := flattenPrompt(req.Messages)

	var reqBody geminiChatReq
	reqBody.Contents = []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}
	reqBody.GenerationConfig.MaxOutputTokens = req.MaxTokens
	reqBody.GenerationConfig.Temperature = req.Temperature

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(p.BaseURL, "/"), req.Model, p.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, &ProviderError{Provider: p.Name(), Err: errors.New(msg)}
	}

	var decoded geminiChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, &ProviderError{Provider: p.Name(), Err: errors.New(decoded.Error.Message)}
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: errors.New("empty response")}
	}

	text := decoded.Candidates[0].Content.Parts[0].Text

	return &Result{
		Content:      text,
		Model:        req.Model,
		InputTokens:  estimateTokens(prompt),
		OutputTokens: estimateTokens(text),
	}, nil
}

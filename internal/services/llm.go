package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

// GeminiPrefix marks chain entries served by the Gemini API directly
// instead of through OpenRouter.
const GeminiPrefix = "gemini:"

const appTitle = "Revi Flashcard App"

// OpenRouterCompleter talks to any OpenAI-compatible chat endpoint.
type OpenRouterCompleter struct {
	client *openai.Client
}

func NewOpenRouterCompleter(apiKey, baseURL, referer string, timeout time.Duration) *OpenRouterCompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &attributionTransport{
			base:    http.DefaultTransport,
			referer: referer,
		},
	}
	return &OpenRouterCompleter{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenRouterCompleter) Complete(ctx context.Context, model string, prompt Prompt) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature: prompt.Temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openrouter status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("openrouter: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// attributionTransport adds the app attribution headers OpenRouter uses
// for its rankings.
type attributionTransport struct {
	base    http.RoundTripper
	referer string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	req.Header.Set("X-Title", appTitle)
	return t.base.RoundTrip(req)
}

type GeminiCompleter struct {
	client *genai.Client
}

func NewGeminiCompleter(ctx context.Context, apiKey string) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiCompleter{client: client}, nil
}

func (c *GeminiCompleter) Close() error {
	return c.client.Close()
}

func (c *GeminiCompleter) Complete(ctx context.Context, model string, prompt Prompt) (string, error) {
	m := c.client.GenerativeModel(strings.TrimPrefix(model, GeminiPrefix))
	m.SetTemperature(prompt.Temperature)
	m.ResponseMIMEType = "application/json"
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.System)}}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt.User))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := extractGeminiText(resp)
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

func extractGeminiText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	return text.String()
}

// BuildModelChain maps configured model names onto available providers,
// keeping their order. Entries whose provider is not configured are
// dropped with a warning.
func BuildModelChain(names []string, openRouter, gemini Completer, logger *slog.Logger) []ModelTarget {
	if logger == nil {
		logger = slog.Default()
	}
	var chain []ModelTarget
	for _, name := range names {
		completer := openRouter
		if strings.HasPrefix(name, GeminiPrefix) {
			completer = gemini
		}
		if completer == nil {
			logger.Warn("skipping model without configured provider", slog.String("model", name))
			continue
		}
		chain = append(chain, ModelTarget{Model: name, Completer: completer})
	}
	return chain
}

package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coldreach/autoreply/pkg/types"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = "gpt-3.5-turbo"
	defaultMaxTokens = 100
)

// prompts maps a category to the instruction sent to the model
var prompts = map[types.Category]string{
	types.CategoryInterested: "Generate a polite response asking the recipient to schedule a demo call.",
	types.CategoryMoreInfo:   "Generate a polite response providing more details about the product.",
}

const fallbackPrompt = "Generate a polite response thanking the recipient for their time."

// OpenAIGenerator produces replies via an OpenAI-compatible
// chat-completions endpoint
type OpenAIGenerator struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
}

// NewOpenAIGenerator creates a generator from config
func NewOpenAIGenerator(cfg types.GeneratorConfig) *OpenAIGenerator {
	g := &OpenAIGenerator{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
	}
	if g.baseURL == "" {
		g.baseURL = defaultBaseURL
	}
	if g.model == "" {
		g.model = defaultModel
	}
	if g.maxTokens <= 0 {
		g.maxTokens = defaultMaxTokens
	}
	return g
}

// IsConfigured returns true if an API key is set
func (g *OpenAIGenerator) IsConfigured() bool {
	return g.apiKey != ""
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for reply text appropriate to the category
func (g *OpenAIGenerator) Generate(ctx context.Context, category types.Category) (string, error) {
	prompt, ok := prompts[category]
	if !ok {
		prompt = fallbackPrompt
	}

	payload := chatCompletionRequest{
		Model:     g.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: g.maxTokens,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", &types.GenerationError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", &types.GenerationError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &types.GenerationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &types.GenerationError{Err: fmt.Errorf("completion API error %d: %s", resp.StatusCode, string(body))}
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", &types.GenerationError{Err: err}
	}

	if len(completion.Choices) == 0 {
		return "", &types.GenerationError{Err: fmt.Errorf("completion returned no choices")}
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", &types.GenerationError{Err: fmt.Errorf("completion returned empty text")}
	}
	return text, nil
}

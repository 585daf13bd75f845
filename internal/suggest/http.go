package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for HTTPGenerator.
const (
	DefaultEndpoint  = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel     = "deepseek/deepseek-chat-v3.1:free"
	DefaultAPIKeyEnv = "OPENROUTER_API_KEY"
	DefaultMaxTokens = 512
)

const systemPrompt = `You are a sales coach listening to a live call. Given the recent
conversation and the event that triggered you, reply with one short, concrete
suggestion (at most two sentences) the salesperson can say or do next.`

// HTTPConfig configures an HTTPGenerator.
type HTTPConfig struct {
	Endpoint  string
	Model     string
	APIKeyEnv string
	MaxTokens int

	// EnvFile is loaded with godotenv before reading APIKeyEnv. Missing files are ignored.
	EnvFile string

	Client *http.Client
}

// HTTPGenerator calls an OpenAI-compatible chat-completions endpoint.
type HTTPGenerator struct {
	endpoint  string
	model     string
	apiKey    string
	maxTokens int
	client    *http.Client
	now       func() time.Time
}

// NewHTTPGenerator resolves configuration and the API key. It fails when the
// key variable is unset.
func NewHTTPGenerator(cfg HTTPConfig) (*HTTPGenerator, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}

	envFile := cfg.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables already present in the environment
	_ = godotenv.Load(envFile)

	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("%s not found in environment", cfg.APIKeyEnv)
	}

	return &HTTPGenerator{
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		apiKey:    key,
		maxTokens: cfg.MaxTokens,
		client:    cfg.Client,
		now:       time.Now,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends one chat-completions request. It does not retry.
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (Suggestion, error) {
	payload := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		MaxTokens: g.maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Suggestion{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return Suggestion{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Suggestion{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Suggestion{}, fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return Suggestion{}, fmt.Errorf("status %d", resp.StatusCode)
		}
		return Suggestion{}, fmt.Errorf("parse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return Suggestion{}, fmt.Errorf("status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return Suggestion{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return Suggestion{}, fmt.Errorf("no response choices received")
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return Suggestion{}, fmt.Errorf("empty suggestion")
	}

	model := parsed.Model
	if model == "" {
		model = g.model
	}
	return Suggestion{
		RequestID: req.ID,
		Text:      text,
		Model:     model,
		CreatedAt: g.now().UTC(),
	}, nil
}

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\n", req.Platform)
	fmt.Fprintf(&b, "Trigger: %s", req.Reason)
	if d := req.Detection; d != nil {
		fmt.Fprintf(&b, " (%s %s, confidence %.2f)", d.Kind, d.Subtype, d.Confidence)
	}
	fmt.Fprintf(&b, "\nClient sentiment average: %.2f (%s)\n", req.Summary.SentimentAverage, req.Summary.SentimentTrend)
	b.WriteString("\nRecent conversation:\n")
	b.WriteString(req.Context)
	return b.String()
}

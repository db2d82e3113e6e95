package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vtrpza/crawled/pkg/types"
)

// Practical ceiling for prompt content; keeps requests inside the model's
// context window.
const maxPromptContentBytes = 12 * 1024

// OllamaOptions configures the local-LLM extractor.
type OllamaOptions struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	Logger      *slog.Logger
}

// OllamaExtractor generates insights with a locally served model over the
// Ollama HTTP API.
type OllamaExtractor struct {
	baseURL     string
	model       string
	client      *http.Client
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// NewOllamaExtractor constructs the LLM extractor. Defaults: local daemon,
// llama3.2, 60s timeout.
func NewOllamaExtractor(opts OllamaOptions) *OllamaExtractor {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:11434"
	}
	if opts.Model == "" {
		opts.Model = "llama3.2"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.3
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 400
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaExtractor{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		model:       opts.Model,
		client:      &http.Client{Timeout: opts.Timeout},
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		logger:      logger,
	}
}

// Available reports whether the model server answers. Callers use this to
// decide up front whether to even attempt AI synthesis for a run.
func (o *OllamaExtractor) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Extract sends the page content plus instruction to the model and returns
// its answer.
func (o *OllamaExtractor) Extract(ctx context.Context, intent types.Intent, content, instruction string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	if len(content) > maxPromptContentBytes {
		content = content[:maxPromptContentBytes]
	}
	if instruction == "" {
		instruction = "Summarize the key points of this page."
	}

	prompt := fmt.Sprintf(
		"You are analyzing a web page classified as %q content.\nInstruction: %s\n\nPage content:\n%s",
		intent, instruction, content)

	body, err := json.Marshal(ollamaChatRequest{
		Model:    o.model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options: map[string]any{
			"temperature": o.temperature,
			"num_predict": o.maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var chat ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}

	answer := strings.TrimSpace(chat.Message.Content)
	o.logger.Debug("llm extraction complete",
		"model", o.model,
		"intent", string(intent),
		"latency_ms", time.Since(start).Milliseconds(),
		"answer_bytes", len(answer),
	)
	return answer, nil
}

package openrouter

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

	"github.com/forPelevin/viralcut/internal/ports/adapters/endpoint"
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
}

const (
	requestTimeout = 90 * time.Second
	defaultModel   = "openai/gpt-4o"
)

type Option func(*Adapter)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

func New(apiKey, model, baseURL string, opts ...Option) *Adapter {
	if model == "" {
		model = defaultModel
	}
	a := &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: endpoint.OpenRouter.Normalize(baseURL),
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Adapter) Model() string { return a.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			// Content is a string or, for some upstream providers, an array of
			// {type, text} parts.
			Content any `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message with zero temperature and
// returns the first choice's content.
func (a *Adapter) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:     a.model,
		MaxTokens: 16,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.baseURL+"/api/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return "", fmt.Errorf("openrouter request: %s", endpoint.Redact(err.Error(), a.key))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		rb, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if readErr != nil {
			return "", fmt.Errorf("openrouter status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return "", fmt.Errorf("openrouter status %d: %s", resp.StatusCode, truncate(endpoint.Redact(string(rb), a.key), 400))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("openrouter decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openrouter: no choices")
	}
	return contentText(out.Choices[0].Message.Content)
}

func contentText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		var b strings.Builder
		for _, it := range x {
			if part, ok := it.(map[string]any); ok {
				if t, ok := part["text"].(string); ok {
					b.WriteString(t)
				}
			}
		}
		if strings.TrimSpace(b.String()) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

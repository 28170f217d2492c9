package gemini

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/forPelevin/viralcut/internal/ports/adapters/endpoint"
)

const (
	requestTimeout = 90 * time.Second
	defaultModel   = "gemini-2.0-flash"
)

type Config struct {
	// APIKeys are tried in turn when a key is rate limited.
	APIKeys    []string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

type Adapter struct {
	model   string
	keys    []string
	clients []*genai.Client

	mu      sync.Mutex
	current int
}

func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if len(cfg.APIKeys) == 0 {
		return nil, errors.New("gemini: at least one API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	a := &Adapter{model: cfg.Model, keys: cfg.APIKeys}
	for i, key := range cfg.APIKeys {
		cc := &genai.ClientConfig{
			APIKey:     key,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: cfg.HTTPClient,
		}
		if cfg.BaseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
		}
		c, err := genai.NewClient(ctx, cc)
		if err != nil {
			return nil, errors.Wrapf(err, "gemini: create client for key %d", i+1)
		}
		a.clients = append(a.clients, c)
	}
	return a, nil
}

func (a *Adapter) Model() string { return a.model }

// Complete generates a deterministic answer for prompt. A rate-limited key
// rotates to the next one; the call fails once every key has been tried.
func (a *Adapter) Complete(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: 16,
	}

	var lastErr error
	for range a.clients {
		client := a.client()

		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		result, err := client.Models.GenerateContent(reqCtx, a.model, genai.Text(prompt), cfg)
		cancel()
		if err != nil {
			if isRateLimited(err) {
				a.rotate()
				lastErr = err
				continue
			}
			return "", errors.Errorf("gemini generate content: %s", endpoint.Redact(err.Error(), a.keys...))
		}
		return responseText(result)
	}
	return "", errors.Errorf("gemini: all API keys rate limited: %s", endpoint.Redact(lastErr.Error(), a.keys...))
}

func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("gemini: empty response")
	}
	return b.String(), nil
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func (a *Adapter) client() *genai.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clients[a.current]
}

func (a *Adapter) rotate() {
	a.mu.Lock()
	a.current = (a.current + 1) % len(a.clients)
	a.mu.Unlock()
}

package openai

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/forPelevin/viralcut/internal/types"
)

const requestTimeout = 90 * time.Second

type Config struct {
	APIKey    string
	BaseURL   string
	ChatModel string
	ASRModel  string
	// HTTPClient overrides the default client with a request timeout.
	HTTPClient *http.Client
}

// Adapter implements both speech-to-text and chat completion against the
// OpenAI API or any compatible endpoint.
type Adapter struct {
	client    *openai.Client
	chatModel string
	asrModel  string
}

func New(cfg Config) *Adapter {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	} else {
		oc.HTTPClient = &http.Client{Timeout: requestTimeout}
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4o
	}
	if cfg.ASRModel == "" {
		cfg.ASRModel = openai.Whisper1
	}
	return &Adapter{
		client:    openai.NewClientWithConfig(oc),
		chatModel: cfg.ChatModel,
		asrModel:  cfg.ASRModel,
	}
}

func (a *Adapter) Model() string { return a.chatModel }

func (a *Adapter) TranscribeText(ctx context.Context, wavPath string) (string, error) {
	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    a.asrModel,
		FilePath: wavPath,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", errors.Wrap(err, "openai transcription")
	}
	return strings.TrimSpace(resp.Text), nil
}

func (a *Adapter) TranscribeVerbose(ctx context.Context, wavPath string) (types.Transcript, error) {
	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    a.asrModel,
		FilePath: wavPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return types.Transcript{}, errors.Wrap(err, "openai verbose transcription")
	}

	tr := types.Transcript{
		Language: resp.Language,
		Duration: resp.Duration,
		Text:     strings.TrimSpace(resp.Text),
	}
	for _, s := range resp.Segments {
		tr.Segments = append(tr.Segments, types.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	words := make([]types.Word, 0, len(resp.Words))
	for _, w := range resp.Words {
		words = append(words, types.Word{Start: w.Start, End: w.End, Word: strings.TrimSpace(w.Word)})
	}
	attachWords(&tr, words)
	return tr, nil
}

// attachWords distributes the top-level word list into the segment whose
// range contains each word's midpoint. Words outside every segment go to the
// nearest preceding one. With no segments, one segment spans all words.
func attachWords(tr *types.Transcript, words []types.Word) {
	if len(words) == 0 {
		return
	}
	if len(tr.Segments) == 0 {
		texts := make([]string, 0, len(words))
		for _, w := range words {
			texts = append(texts, w.Word)
		}
		tr.Segments = []types.Segment{{
			Start: words[0].Start,
			End:   words[len(words)-1].End,
			Text:  strings.Join(texts, " "),
			Words: words,
		}}
		return
	}
	for _, w := range words {
		mid := (w.Start + w.End) / 2
		i := sort.Search(len(tr.Segments), func(i int) bool { return tr.Segments[i].Start > mid }) - 1
		if i < 0 {
			i = 0
		}
		tr.Segments[i].Words = append(tr.Segments[i].Words, w)
	}
}

// Complete asks the chat model for a single deterministic answer.
func (a *Adapter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		// Zero is dropped by omitempty, so ask for the smallest non-zero value.
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   16,
	})
	if err != nil {
		return "", errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

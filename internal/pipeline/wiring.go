package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/forPelevin/viralcut/internal/domain/virality"
	"github.com/forPelevin/viralcut/internal/logging"
	"github.com/forPelevin/viralcut/internal/ports"
	"github.com/forPelevin/viralcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/viralcut/internal/ports/adapters/gemini"
	"github.com/forPelevin/viralcut/internal/ports/adapters/openai"
	"github.com/forPelevin/viralcut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/viralcut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/viralcut/internal/usecase"
)

type adapters struct {
	video     ports.VideoTool
	stt       ports.SpeechToText
	scorer    usecase.Scorer
	retryBase time.Duration
}

func newAdapters(ctx context.Context, cfg Config) (adapters, error) {
	log := cfg.Log
	ad := adapters{
		video: ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath, cfg.Layout, log),
	}

	var oa *openai.Adapter
	openAI := func() *openai.Adapter {
		if oa == nil {
			oa = openai.New(openai.Config{
				APIKey:    cfg.OpenAIAPIKey,
				BaseURL:   cfg.OpenAIBaseURL,
				ChatModel: cfg.OpenAIChatModel,
				ASRModel:  cfg.OpenAIASRModel,
			})
		}
		return oa
	}

	switch cfg.ASR {
	case ASROpenAI:
		ad.stt = openAI()
	case ASRWhisperCPP:
		ad.stt = whispercpp.New(cfg.WhisperBin, cfg.WhisperModel)
	default:
		return adapters{}, fmt.Errorf("unknown asr backend %q", cfg.ASR)
	}

	scoreLog := logging.WithComponent(log, "score")
	switch cfg.Scorer {
	case ScorerOpenAI:
		ad.scorer = virality.NewScorer(openAI(), scoreLog)
	case ScorerOpenRouter:
		ad.scorer = virality.NewScorer(openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL), scoreLog)
	case ScorerGemini:
		g, err := gemini.New(ctx, gemini.Config{
			APIKeys: cfg.GeminiAPIKeys,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})
		if err != nil {
			return adapters{}, err
		}
		ad.scorer = virality.NewScorer(g, scoreLog)
	case ScorerHeuristic:
		ad.scorer = virality.Heuristic{}
	default:
		return adapters{}, fmt.Errorf("unknown scorer backend %q", cfg.Scorer)
	}
	return ad, nil
}

// ensure adapters implement ports
var (
	_ ports.VideoTool     = (*ffmpeg.Adapter)(nil)
	_ ports.SpeechToText  = (*openai.Adapter)(nil)
	_ ports.SpeechToText  = (*whispercpp.Adapter)(nil)
	_ ports.ChatCompleter = (*openai.Adapter)(nil)
	_ ports.ChatCompleter = (*openrouter.Adapter)(nil)
	_ ports.ChatCompleter = (*gemini.Adapter)(nil)
	_ usecase.Scorer      = (*virality.Scorer)(nil)
	_ usecase.Scorer      = virality.Heuristic{}
)

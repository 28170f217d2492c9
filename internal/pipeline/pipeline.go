package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/forPelevin/viralcut/internal/audio"
	"github.com/forPelevin/viralcut/internal/domain/subtitles"
	"github.com/forPelevin/viralcut/internal/errs"
	"github.com/forPelevin/viralcut/internal/logging"
	"github.com/forPelevin/viralcut/internal/ports/adapters/endpoint"
	"github.com/forPelevin/viralcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/viralcut/internal/transcribe"
	"github.com/forPelevin/viralcut/internal/types"
	"github.com/forPelevin/viralcut/internal/usecase"
)

const (
	ASROpenAI     = "openai"
	ASRWhisperCPP = "whispercpp"

	ScorerOpenAI     = "openai"
	ScorerOpenRouter = "openrouter"
	ScorerGemini     = "gemini"
	ScorerHeuristic  = "heuristic"
)

type Config struct {
	MainDir     string
	GameplayDir string
	OutDir      string
	// RunDir nests outputs under a per-run directory inside OutDir.
	RunDir    bool
	Discovery Discovery

	Window        time.Duration
	MaxClips      int
	Workers       int
	RPS           float64
	Retries       int
	OnWindowError usecase.WindowPolicy
	OnClipError   usecase.ClipPolicy
	Subtitles     bool

	ASR    string
	Scorer string

	// TempDir holds intermediate audio. Empty means the OS temp dir.
	TempDir     string
	FFmpegPath  string
	FFprobePath string
	Layout      ffmpeg.Layout

	WhisperBin   string
	WhisperModel string

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIChatModel string
	OpenAIASRModel  string
	// OpenAIAllowedHosts overrides the hosts OpenAIBaseURL may point at.
	OpenAIAllowedHosts []string

	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string

	GeminiAPIKeys      []string
	GeminiModel        string
	GeminiBaseURL      string
	GeminiAllowedHosts []string

	Log zerolog.Logger
}

func (c Config) Validate() error {
	var problems []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}

	check(c.MainDir != "", "main video dir is empty")
	check(c.GameplayDir != "", "gameplay dir is empty")
	check(c.OutDir != "", "output dir is empty")
	check(c.Window > 0, "window must be > 0, got %s", c.Window)
	check(c.MaxClips > 0, "clips must be > 0, got %d", c.MaxClips)
	check(c.Workers > 0, "workers must be > 0, got %d", c.Workers)
	check(c.RPS >= 0, "rps must be >= 0, got %v", c.RPS)
	check(c.Retries >= 0, "retries must be >= 0, got %d", c.Retries)
	check(c.Discovery == DiscoverFirst || c.Discovery == DiscoverStrict,
		"unknown discovery policy %q (want first|strict)", c.Discovery)
	check(c.OnWindowError == usecase.WindowAbort || c.OnWindowError == usecase.WindowSkip,
		"unknown window error policy %q (want abort|skip)", c.OnWindowError)
	check(c.OnClipError == usecase.ClipAbort || c.OnClipError == usecase.ClipContinue,
		"unknown clip error policy %q (want abort|continue)", c.OnClipError)

	switch c.ASR {
	case ASROpenAI:
		check(c.OpenAIAPIKey != "", "OPENAI_API_KEY is required for asr=openai")
	case ASRWhisperCPP:
		check(c.WhisperBin != "", "whisper.cpp binary path is required for asr=whispercpp")
		check(c.WhisperModel != "", "whisper.cpp model path is required for asr=whispercpp")
	default:
		check(false, "unknown asr backend %q (want openai|whispercpp)", c.ASR)
	}

	if (c.ASR == ASROpenAI || c.Scorer == ScorerOpenAI) && c.OpenAIBaseURL != "" {
		if err := endpoint.OpenAI.Validate(c.OpenAIBaseURL, c.OpenAIAllowedHosts); err != nil {
			problems = append(problems, err)
		}
	}

	switch c.Scorer {
	case ScorerOpenAI:
		check(c.OpenAIAPIKey != "", "OPENAI_API_KEY is required for scorer=openai")
	case ScorerOpenRouter:
		check(c.OpenRouterAPIKey != "", "OPENROUTER_API_KEY is required for scorer=openrouter")
		if err := endpoint.OpenRouter.Validate(c.OpenRouterBaseURL, c.OpenRouterAllowedHosts); err != nil {
			problems = append(problems, err)
		}
	case ScorerGemini:
		check(len(c.GeminiAPIKeys) > 0, "GEMINI_API_KEY is required for scorer=gemini")
		if c.GeminiBaseURL != "" {
			if err := endpoint.Gemini.Validate(c.GeminiBaseURL, c.GeminiAllowedHosts); err != nil {
				problems = append(problems, err)
			}
		}
	case ScorerHeuristic:
	default:
		check(false, "unknown scorer backend %q (want openai|openrouter|gemini|heuristic)", c.Scorer)
	}

	return errs.Mark(errs.ErrInvalidConfig, errors.Join(problems...))
}

type Result struct {
	OutDir   string
	Manifest types.Manifest
}

// Run discovers inputs, selects the best windows of the main video and
// composes one clip per selected window. The manifest is written whenever
// selection succeeds, including when some clips fail.
func Run(ctx context.Context, cfg Config) (Result, error) {
	ad, err := newAdapters(ctx, cfg)
	if err != nil {
		return Result{}, err
	}
	return run(ctx, cfg, ad)
}

func run(ctx context.Context, cfg Config, ad adapters) (Result, error) {
	log := cfg.Log
	started := time.Now().UTC()
	runID := uuid.NewString()

	mainVideo, err := discoverVideo(cfg.MainDir, cfg.Discovery)
	if err != nil {
		return Result{}, fmt.Errorf("discover main video: %w", err)
	}
	background, err := discoverVideo(cfg.GameplayDir, cfg.Discovery)
	if err != nil {
		return Result{}, fmt.Errorf("discover gameplay video: %w", err)
	}
	log.Info().Str("run_id", runID).Str("main", mainVideo).Str("gameplay", background).Msg("inputs")

	total, err := ad.video.ProbeDuration(ctx, mainVideo)
	if err != nil {
		return Result{}, errs.Mark(errs.ErrExtractionFailed, fmt.Errorf("probe %s: %w", mainVideo, err))
	}

	extractor := audio.NewExtractor(ad.video, cfg.TempDir, logging.WithComponent(log, "audio"))
	tr := transcribe.New(extractor, ad.stt, logging.WithComponent(log, "transcribe"))
	uc := usecase.New(usecase.Deps{
		Video:       ad.video,
		Transcriber: tr,
		Scorer:      ad.scorer,
		Log:         logging.WithComponent(log, "select"),
		RetryBase:   ad.retryBase,
	})

	sel, err := uc.Select(ctx, usecase.SelectInput{
		Source:        mainVideo,
		TotalDuration: total,
		WindowLength:  cfg.Window,
		MaxClips:      cfg.MaxClips,
		Workers:       cfg.Workers,
		OnWindowError: cfg.OnWindowError,
		Retries:       cfg.Retries,
		Limiter:       newLimiter(cfg.RPS),
	})
	if err != nil {
		return Result{}, fmt.Errorf("select: %w", err)
	}

	outDir := cfg.OutDir
	if cfg.RunDir {
		outDir = buildRunOutDir(cfg.OutDir, mainVideo, runID, started)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}

	m := types.Manifest{
		RunID:       runID,
		Source:      mainVideo,
		Background:  background,
		DurationSec: total.Seconds(),
		WindowSec:   cfg.Window.Seconds(),
		MaxClips:    cfg.MaxClips,
		ASR:         cfg.ASR,
		Scorer:      cfg.Scorer,
		Windows:     manifestWindows(sel.Windows),
		StartedAt:   started,
	}

	in := usecase.ComposeInput{
		Source:     mainVideo,
		Background: background,
		Selection:  sel.Selection,
		OutDir:     outDir,
		OnError:    cfg.OnClipError,
		Style:      paneStyle(cfg.Layout),
	}
	if cfg.Subtitles {
		whole, err := tr.TranscribeWhole(ctx, mainVideo)
		switch {
		case err == nil:
			in.Transcript = &whole
			if name, werr := writeJSON(outDir, "transcript.json", whole); werr != nil {
				log.Warn().Err(werr).Msg("failed to save transcript")
			} else {
				m.TranscriptFile = name
			}
		case errs.Retryable(err):
			log.Warn().Err(err).Msg("whole-file transcription failed, composing without subtitles")
		default:
			return Result{}, fmt.Errorf("subtitles: %w", err)
		}
	}

	composed, composeErr := uc.Compose(ctx, in)
	m.Clips = composed.Clips
	m.FinishedAt = time.Now().UTC()

	if _, err := writeJSON(outDir, "manifest.json", m); err != nil {
		return Result{OutDir: outDir, Manifest: m}, errors.Join(composeErr, fmt.Errorf("write manifest: %w", err))
	}
	log.Info().Str("dir", outDir).Int("clips", countWritten(m.Clips)).Msg("manifest written")

	if composeErr != nil {
		return Result{OutDir: outDir, Manifest: m}, fmt.Errorf("compose: %w", composeErr)
	}
	return Result{OutDir: outDir, Manifest: m}, nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
}

func paneStyle(l ffmpeg.Layout) subtitles.Style {
	st := subtitles.DefaultStyle()
	if l.Width > 0 && l.Height > 0 {
		st.PaneWidth = l.Width
		st.PaneHeight = l.Height / 2
	}
	return st
}

func manifestWindows(sws []types.ScoredWindow) []types.ManifestWindow {
	out := make([]types.ManifestWindow, 0, len(sws))
	for _, sw := range sws {
		mw := types.ManifestWindow{
			Index:      sw.Window.Index,
			StartSec:   sw.Window.Start.Seconds(),
			EndSec:     sw.Window.End.Seconds(),
			Score:      sw.Score,
			Transcript: sw.Transcript,
		}
		if sw.Err != nil {
			mw.Error = sw.Err.Error()
		}
		out = append(out, mw)
	}
	return out
}

func countWritten(clips []types.ManifestClip) int {
	n := 0
	for _, c := range clips {
		if c.File != "" {
			n++
		}
	}
	return n
}

func writeJSON(dir, name string, v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

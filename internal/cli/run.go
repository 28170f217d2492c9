package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/forPelevin/viralcut/internal/config"
	"github.com/forPelevin/viralcut/internal/logging"
	"github.com/forPelevin/viralcut/internal/pipeline"
	"github.com/forPelevin/viralcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/viralcut/internal/usecase"
)

const runTimeout = 3 * time.Hour

func run(cmd *cobra.Command) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	file, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	cfg := resolve(file, os.Getenv, cmd.Flags())
	verbose := file.Logging.Verbose
	if cmd.Flags().Changed("verbose") {
		verbose, _ = cmd.Flags().GetBool("verbose")
	}
	jsonLogs := file.Logging.JSON
	if cmd.Flags().Changed("log-json") {
		jsonLogs, _ = cmd.Flags().GetBool("log-json")
	}
	logging.Init(verbose, jsonLogs)
	cfg.Log = log.Logger

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	res, err := pipeline.Run(ctx, cfg)
	printSummary(cmd, res)
	return err
}

// resolve layers environment variables and explicitly set flags over the
// file settings.
func resolve(file config.File, getenv func(string) string, flags *pflag.FlagSet) pipeline.Config {
	env := func(key, cur string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return cur
	}

	p := file.Paths
	s := file.Selection
	c := file.Compose
	svc := file.Services
	bin := file.Binaries

	p.MainDir = env("VIRALCUT_MAIN_DIR", p.MainDir)
	p.GameplayDir = env("VIRALCUT_GAMEPLAY_DIR", p.GameplayDir)
	p.OutDir = env("VIRALCUT_OUT_DIR", p.OutDir)
	s.ASR = env("VIRALCUT_ASR", s.ASR)
	s.Scorer = env("VIRALCUT_SCORER", s.Scorer)
	svc.OpenAI.BaseURL = env("OPENAI_BASE_URL", svc.OpenAI.BaseURL)
	svc.OpenAI.ChatModel = env("OPENAI_CHAT_MODEL", svc.OpenAI.ChatModel)
	svc.OpenAI.ASRModel = env("OPENAI_ASR_MODEL", svc.OpenAI.ASRModel)
	if v := getenv("OPENAI_ALLOWED_HOSTS"); strings.TrimSpace(v) != "" {
		svc.OpenAI.AllowedHosts = splitList(v)
	}
	svc.OpenRouter.BaseURL = env("OPENROUTER_BASE_URL", svc.OpenRouter.BaseURL)
	svc.OpenRouter.Model = env("OPENROUTER_MODEL", svc.OpenRouter.Model)
	if v := getenv("OPENROUTER_ALLOWED_HOSTS"); strings.TrimSpace(v) != "" {
		svc.OpenRouter.AllowedHosts = splitList(v)
	}
	svc.Gemini.BaseURL = env("GEMINI_BASE_URL", svc.Gemini.BaseURL)
	if v := getenv("GEMINI_ALLOWED_HOSTS"); strings.TrimSpace(v) != "" {
		svc.Gemini.AllowedHosts = splitList(v)
	}
	svc.Gemini.Model = env("GEMINI_MODEL", svc.Gemini.Model)
	bin.FFmpeg = env("FFMPEG_PATH", bin.FFmpeg)
	bin.FFprobe = env("FFPROBE_PATH", bin.FFprobe)
	bin.WhisperBin = env("WHISPER_BIN", bin.WhisperBin)
	bin.WhisperModel = env("WHISPER_MODEL", bin.WhisperModel)

	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	integer := func(name string, dst *int) {
		if flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}
	float := func(name string, dst *float64) {
		if flags.Changed(name) {
			*dst, _ = flags.GetFloat64(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}
	str("main-dir", &p.MainDir)
	str("gameplay-dir", &p.GameplayDir)
	str("out", &p.OutDir)
	boolean("run-dir", &p.RunDir)
	str("discovery", &p.Discovery)
	float("window", &s.WindowSec)
	integer("clips", &s.MaxClips)
	str("on-window-error", &s.OnWindowError)
	str("on-clip-error", &c.OnClipError)
	str("asr", &s.ASR)
	str("scorer", &s.Scorer)
	boolean("subtitles", &c.Subtitles)
	integer("workers", &s.Workers)
	float("rps", &s.RPS)
	integer("retries", &s.Retries)
	str("ffmpeg", &bin.FFmpeg)
	str("ffprobe", &bin.FFprobe)
	integer("crf", &c.CRF)
	str("preset", &c.Preset)

	layout := ffmpeg.DefaultLayout()
	if c.Width > 0 && c.Height > 0 {
		layout.Width, layout.Height = c.Width, c.Height
	}
	if c.FPS > 0 {
		layout.FPS = c.FPS
	}
	if c.Preset != "" {
		layout.Preset = c.Preset
	}
	if c.CRF > 0 {
		layout.CRF = c.CRF
	}

	return pipeline.Config{
		MainDir:     p.MainDir,
		GameplayDir: p.GameplayDir,
		OutDir:      p.OutDir,
		RunDir:      p.RunDir,
		Discovery:   pipeline.Discovery(p.Discovery),

		Window:        time.Duration(s.WindowSec * float64(time.Second)),
		MaxClips:      s.MaxClips,
		Workers:       s.Workers,
		RPS:           s.RPS,
		Retries:       s.Retries,
		OnWindowError: usecase.WindowPolicy(s.OnWindowError),
		OnClipError:   usecase.ClipPolicy(c.OnClipError),
		Subtitles:     c.Subtitles,

		ASR:    s.ASR,
		Scorer: s.Scorer,

		FFmpegPath:  bin.FFmpeg,
		FFprobePath: bin.FFprobe,
		Layout:      layout,

		WhisperBin:   bin.WhisperBin,
		WhisperModel: bin.WhisperModel,

		OpenAIAPIKey:       getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      svc.OpenAI.BaseURL,
		OpenAIChatModel:    svc.OpenAI.ChatModel,
		OpenAIASRModel:     svc.OpenAI.ASRModel,
		OpenAIAllowedHosts: svc.OpenAI.AllowedHosts,

		OpenRouterAPIKey:       getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:        svc.OpenRouter.Model,
		OpenRouterBaseURL:      svc.OpenRouter.BaseURL,
		OpenRouterAllowedHosts: svc.OpenRouter.AllowedHosts,

		GeminiAPIKeys:      splitList(getenv("GEMINI_API_KEY")),
		GeminiModel:        svc.Gemini.Model,
		GeminiBaseURL:      svc.Gemini.BaseURL,
		GeminiAllowedHosts: svc.Gemini.AllowedHosts,
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printSummary(cmd *cobra.Command, res pipeline.Result) {
	if res.OutDir == "" {
		return
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "run %s: %d windows scored, output in %s\n", res.Manifest.RunID, len(res.Manifest.Windows), res.OutDir)
	for _, c := range res.Manifest.Clips {
		status := c.File
		if c.Error != "" {
			status = "FAILED: " + c.Error
		}
		fmt.Fprintf(w, "  #%d  window %-3s score %2d  %s\n", c.Rank, strconv.Itoa(c.Window), c.Score, status)
	}
}

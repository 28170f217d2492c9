package cli

import (
	"testing"
	"time"

	"github.com/forPelevin/viralcut/internal/config"
	"github.com/forPelevin/viralcut/internal/pipeline"
	"github.com/forPelevin/viralcut/internal/usecase"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestResolve_Defaults(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	cfg := resolve(config.Defaults(), envMap(nil), cmd.Flags())

	if cfg.MainDir != "main_video" || cfg.GameplayDir != "gameplay" || cfg.OutDir != "output" {
		t.Fatalf("dirs: %+v", cfg)
	}
	if cfg.Window != 45*time.Second || cfg.MaxClips != 5 || cfg.Workers != 1 {
		t.Fatalf("selection: window=%v clips=%d workers=%d", cfg.Window, cfg.MaxClips, cfg.Workers)
	}
	if cfg.Discovery != pipeline.DiscoverFirst || cfg.OnWindowError != usecase.WindowAbort || cfg.OnClipError != usecase.ClipContinue {
		t.Fatalf("policies: %q %q %q", cfg.Discovery, cfg.OnWindowError, cfg.OnClipError)
	}
	if cfg.ASR != pipeline.ASROpenAI || cfg.Scorer != pipeline.ScorerOpenAI {
		t.Fatalf("backends: %q %q", cfg.ASR, cfg.Scorer)
	}
	if cfg.Layout.Width != 1080 || cfg.Layout.Height != 1920 || cfg.Layout.FPS != 30 {
		t.Fatalf("layout: %+v", cfg.Layout)
	}
}

func TestResolve_Precedence(t *testing.T) {
	t.Parallel()

	file := config.Defaults()
	file.Paths.MainDir = "from-file"
	file.Paths.OutDir = "file-out"
	file.Selection.Scorer = "gemini"
	file.Selection.MaxClips = 7

	env := envMap(map[string]string{
		"VIRALCUT_MAIN_DIR":        "from-env",
		"VIRALCUT_SCORER":          "openrouter",
		"OPENAI_API_KEY":           "sk-env",
		"GEMINI_API_KEY":           "g1, g2,",
		"OPENROUTER_ALLOWED_HOSTS": "openrouter.ai,proxy.local",
	})

	cmd := newRootCmd()
	if err := cmd.Flags().Parse([]string{"--main-dir", "from-flag", "--window", "30.5", "--subtitles", "--on-window-error", "skip"}); err != nil {
		t.Fatal(err)
	}
	cfg := resolve(file, env, cmd.Flags())

	if cfg.MainDir != "from-flag" {
		t.Fatalf("flag must win: %q", cfg.MainDir)
	}
	if cfg.OutDir != "file-out" {
		t.Fatalf("file value must survive without env/flag: %q", cfg.OutDir)
	}
	if cfg.Scorer != "openrouter" {
		t.Fatalf("env must beat file: %q", cfg.Scorer)
	}
	if cfg.MaxClips != 7 {
		t.Fatalf("clips: %d", cfg.MaxClips)
	}
	if cfg.Window != 30500*time.Millisecond {
		t.Fatalf("window: %v", cfg.Window)
	}
	if !cfg.Subtitles || cfg.OnWindowError != usecase.WindowSkip {
		t.Fatalf("flags not applied: subtitles=%v policy=%q", cfg.Subtitles, cfg.OnWindowError)
	}
	if cfg.OpenAIAPIKey != "sk-env" {
		t.Fatalf("api key: %q", cfg.OpenAIAPIKey)
	}
	if len(cfg.GeminiAPIKeys) != 2 || cfg.GeminiAPIKeys[1] != "g2" {
		t.Fatalf("gemini keys: %v", cfg.GeminiAPIKeys)
	}
	if len(cfg.OpenRouterAllowedHosts) != 2 {
		t.Fatalf("allowed hosts: %v", cfg.OpenRouterAllowedHosts)
	}
}

func TestRootCmd_RejectsArgs(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	cmd.SetArgs([]string{"stray.mp4"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for positional args")
	}
}

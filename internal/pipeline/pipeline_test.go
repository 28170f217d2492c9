package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/viralcut/internal/errs"
	"github.com/forPelevin/viralcut/internal/types"
	"github.com/forPelevin/viralcut/internal/usecase"
)

func TestBuildRunOutDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := buildRunOutDir("out", "/tmp/My Cool.Video.mp4", "3f2a9c1e-0000-4000-8000-000000000000", now)
	base := filepath.Base(got)
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if base != "my-cool-video-20260212-103045Z-3f2a9c" {
		t.Fatalf("unexpected run dir: %s", base)
	}
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Video  ": "my-cool-video",
		"___":               "",
		"abc123":            "abc123",
		"Name (v2)!":        "name-v2",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizePathSegment(in); got != want {
				t.Fatalf("normalizePathSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

func validConfig() Config {
	return Config{
		MainDir:       "main_video",
		GameplayDir:   "gameplay",
		OutDir:        "output",
		Discovery:     DiscoverFirst,
		Window:        45 * time.Second,
		MaxClips:      5,
		Workers:       1,
		OnWindowError: usecase.WindowAbort,
		OnClipError:   usecase.ClipContinue,
		ASR:           ASROpenAI,
		Scorer:        ScorerOpenAI,
		OpenAIAPIKey:  "sk-test",
		Log:           zerolog.Nop(),
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mut     func(*Config)
		wantSub string
	}{
		{name: "valid"},
		{name: "zero window", mut: func(c *Config) { c.Window = 0 }, wantSub: "window"},
		{name: "zero clips", mut: func(c *Config) { c.MaxClips = 0 }, wantSub: "clips"},
		{name: "zero workers", mut: func(c *Config) { c.Workers = 0 }, wantSub: "workers"},
		{name: "bad discovery", mut: func(c *Config) { c.Discovery = "random" }, wantSub: "discovery"},
		{name: "bad window policy", mut: func(c *Config) { c.OnWindowError = "ignore" }, wantSub: "window error policy"},
		{name: "bad clip policy", mut: func(c *Config) { c.OnClipError = "retry" }, wantSub: "clip error policy"},
		{name: "missing openai key", mut: func(c *Config) { c.OpenAIAPIKey = "" }, wantSub: "OPENAI_API_KEY"},
		{name: "unknown asr", mut: func(c *Config) { c.ASR = "vosk" }, wantSub: "asr"},
		{name: "unknown scorer", mut: func(c *Config) { c.Scorer = "dice" }, wantSub: "scorer"},
		{name: "whispercpp needs model", mut: func(c *Config) { c.ASR = ASRWhisperCPP; c.WhisperBin = "w" }, wantSub: "model"},
		{name: "openrouter needs key", mut: func(c *Config) { c.Scorer = ScorerOpenRouter }, wantSub: "OPENROUTER_API_KEY"},
		{name: "openrouter host allow-list", mut: func(c *Config) {
			c.Scorer = ScorerOpenRouter
			c.OpenRouterAPIKey = "k"
			c.OpenRouterBaseURL = "https://evil.example"
		}, wantSub: "not in OPENROUTER_ALLOWED_HOSTS"},
		{name: "openai base url must be https", mut: func(c *Config) {
			c.OpenAIBaseURL = "http://api.openai.com/v1"
		}, wantSub: "https is required"},
		{name: "openai base url host allow-list", mut: func(c *Config) {
			c.OpenAIBaseURL = "https://evil.example/v1"
		}, wantSub: "not in OPENAI_ALLOWED_HOSTS"},
		{name: "openai default base url", mut: func(c *Config) {
			c.OpenAIBaseURL = "https://api.openai.com/v1"
		}},
		{name: "openai proxy allowed", mut: func(c *Config) {
			c.OpenAIBaseURL = "https://llm-proxy.local/v1"
			c.OpenAIAllowedHosts = []string{"llm-proxy.local"}
		}},
		{name: "openai base url unchecked when unused", mut: func(c *Config) {
			c.ASR = ASRWhisperCPP
			c.WhisperBin = "w"
			c.WhisperModel = "m"
			c.Scorer = ScorerHeuristic
			c.OpenAIBaseURL = "http://anything.local"
		}},
		{name: "gemini needs key", mut: func(c *Config) { c.Scorer = ScorerGemini }, wantSub: "GEMINI_API_KEY"},
		{name: "gemini base url must be https", mut: func(c *Config) {
			c.Scorer = ScorerGemini
			c.GeminiAPIKeys = []string{"k"}
			c.GeminiBaseURL = "http://generativelanguage.googleapis.com"
		}, wantSub: "invalid GEMINI_BASE_URL"},
		{name: "gemini proxy allowed", mut: func(c *Config) {
			c.Scorer = ScorerGemini
			c.GeminiAPIKeys = []string{"k"}
			c.GeminiBaseURL = "https://llm-proxy.local"
			c.GeminiAllowedHosts = []string{"llm-proxy.local"}
		}},
		{name: "heuristic needs nothing", mut: func(c *Config) {
			c.Scorer = ScorerHeuristic
			c.ASR = ASRWhisperCPP
			c.WhisperBin = "w"
			c.WhisperModel = "m"
			c.OpenAIAPIKey = ""
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			if tc.mut != nil {
				tc.mut(&cfg)
			}
			err := cfg.Validate()
			if tc.wantSub == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, errs.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("expected %q in %v", tc.wantSub, err)
			}
		})
	}
}

type fakeVideo struct {
	mu        sync.Mutex
	durations map[string]time.Duration
	composed  []types.ComposeSpec
}

func (f *fakeVideo) ExtractAudioMono16k(_ context.Context, _ string, _ *types.Span, outWav string) error {
	return os.WriteFile(outWav, []byte("RIFF"), 0o644)
}

func (f *fakeVideo) ProbeDuration(_ context.Context, in string) (time.Duration, error) {
	d, ok := f.durations[filepath.Base(in)]
	if !ok {
		return 0, errors.New("no such file")
	}
	return d, nil
}

func (f *fakeVideo) ComposeStacked(_ context.Context, spec types.ComposeSpec) error {
	f.mu.Lock()
	f.composed = append(f.composed, spec)
	f.mu.Unlock()
	return os.WriteFile(spec.Output, []byte("mp4"), 0o644)
}

type fakeSTT struct{}

func (fakeSTT) TranscribeText(context.Context, string) (string, error) { return "talk", nil }

func (fakeSTT) TranscribeVerbose(context.Context, string) (types.Transcript, error) {
	return types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 2, Text: "hey", Words: []types.Word{{Start: 0, End: 2, Word: "hey"}}},
	}}, nil
}

// seqScorer hands out scores in call order.
type seqScorer struct {
	mu     sync.Mutex
	scores []int
}

func (s *seqScorer) Score(context.Context, string, time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.scores[0]
	s.scores = s.scores[1:]
	return v, nil
}

func setupDirs(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	cfg := validConfig()
	cfg.MainDir = filepath.Join(root, "main_video")
	cfg.GameplayDir = filepath.Join(root, "gameplay")
	cfg.OutDir = filepath.Join(root, "output")
	cfg.TempDir = t.TempDir()
	for _, d := range []string{cfg.MainDir, cfg.GameplayDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	touch(t, cfg.MainDir, "podcast.mp4")
	touch(t, cfg.GameplayDir, "parkour.mkv")
	return cfg
}

func TestRun_EndToEndWithFakes(t *testing.T) {
	t.Parallel()

	cfg := setupDirs(t)
	cfg.MaxClips = 2
	cfg.Subtitles = true
	video := &fakeVideo{durations: map[string]time.Duration{
		"podcast.mp4": 130 * time.Second,
		"parkour.mkv": 20 * time.Second,
	}}
	ad := adapters{video: video, stt: fakeSTT{}, scorer: &seqScorer{scores: []int{3, 8, 8}}, retryBase: time.Millisecond}

	res, err := run(context.Background(), cfg, ad)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.OutDir != cfg.OutDir {
		t.Fatalf("out dir %s", res.OutDir)
	}

	if len(video.composed) != 2 {
		t.Fatalf("composed %d clips", len(video.composed))
	}
	// Windows 2 and 3 tie at 8; the earlier one ranks first.
	if video.composed[0].Span.Start != 45*time.Second || video.composed[1].Span.Start != 90*time.Second {
		t.Fatalf("unexpected order: %+v", video.composed)
	}
	if video.composed[1].Span.Duration() != 40*time.Second {
		t.Fatalf("last window should be 40s, got %v", video.composed[1].Span.Duration())
	}

	b, err := os.ReadFile(filepath.Join(cfg.OutDir, "manifest.json"))
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	var m types.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if m.RunID == "" || len(m.Windows) != 3 || len(m.Clips) != 2 {
		t.Fatalf("manifest %+v", m)
	}
	if m.Clips[0].File != "viral_clip_1.mp4" || m.Clips[0].Window != 2 {
		t.Fatalf("clip 1 %+v", m.Clips[0])
	}
	if m.TranscriptFile != "transcript.json" {
		t.Fatalf("transcript file %q", m.TranscriptFile)
	}

	leftovers, _ := filepath.Glob(filepath.Join(cfg.TempDir, "*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp audio left behind: %v", leftovers)
	}
}

func TestRun_NoVideoFoundStopsEarly(t *testing.T) {
	t.Parallel()

	cfg := setupDirs(t)
	if err := os.Remove(filepath.Join(cfg.GameplayDir, "parkour.mkv")); err != nil {
		t.Fatal(err)
	}
	video := &fakeVideo{durations: map[string]time.Duration{"podcast.mp4": time.Minute}}
	scorer := &seqScorer{}
	_, err := run(context.Background(), cfg, adapters{video: video, stt: fakeSTT{}, scorer: scorer})
	if !errors.Is(err, errs.ErrNoVideoFound) {
		t.Fatalf("expected ErrNoVideoFound, got %v", err)
	}
	if _, statErr := os.Stat(cfg.OutDir); !os.IsNotExist(statErr) {
		t.Fatalf("output dir must not be created, stat err=%v", statErr)
	}
}

func TestRun_RunDir(t *testing.T) {
	t.Parallel()

	cfg := setupDirs(t)
	cfg.RunDir = true
	cfg.MaxClips = 1
	video := &fakeVideo{durations: map[string]time.Duration{"podcast.mp4": 30 * time.Second, "parkour.mkv": time.Minute}}

	res, err := run(context.Background(), cfg, adapters{video: video, stt: fakeSTT{}, scorer: &seqScorer{scores: []int{5}}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if filepath.Dir(res.OutDir) != cfg.OutDir || !strings.HasPrefix(filepath.Base(res.OutDir), "podcast-") {
		t.Fatalf("unexpected run dir %s", res.OutDir)
	}
	if _, err := os.Stat(filepath.Join(res.OutDir, "viral_clip_1.mp4")); err != nil {
		t.Fatalf("clip missing: %v", err)
	}
}

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	if newLimiter(0) != nil {
		t.Fatalf("zero rps must disable limiting")
	}
	l := newLimiter(2.5)
	if l == nil || l.Burst() != 3 {
		t.Fatalf("unexpected limiter %+v", l)
	}
}

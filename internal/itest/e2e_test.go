//go:build integration

package itest

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/viralcut/internal/pipeline"
	"github.com/forPelevin/viralcut/internal/types"
	"github.com/forPelevin/viralcut/internal/usecase"
)

func TestE2E(t *testing.T) {
	requireTools(t, "ffmpeg", "ffprobe", "espeak-ng")
	whisperBin := filepath.Join(repoRoot, ".cache/bin/whisper.cpp")
	whisperModel := filepath.Join(repoRoot, ".cache/models/ggml-base.bin")
	for _, p := range []string{whisperBin, whisperModel} {
		if _, err := os.Stat(p); err != nil {
			t.Skipf("whisper.cpp not provisioned: %v", err)
		}
	}

	tmp := t.TempDir()
	mainDir := filepath.Join(tmp, "main_video")
	gameDir := filepath.Join(tmp, "gameplay")
	for _, d := range []string{mainDir, gameDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	wav := filepath.Join(tmp, "speech.wav")
	text := "This is insane. Nobody expected what happened next. Wait for it. " +
		"Here is the secret nobody tells you. Step one, stop scrolling. Step two, watch this."
	if b, err := exec.Command("espeak-ng", "-w", wav, text).CombinedOutput(); err != nil {
		t.Fatalf("espeak-ng failed: %v\n%s", err, string(b))
	}

	ffmpegFixture(t,
		"-f", "lavfi", "-i", "color=c=black:s=1280x720:d=12",
		"-i", wav,
		"-shortest",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-c:a", "aac",
		filepath.Join(mainDir, "talk.mp4"),
	)
	// Shorter than a window so the background has to loop.
	ffmpegFixture(t,
		"-f", "lavfi", "-i", "testsrc=s=640x360:d=3",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		filepath.Join(gameDir, "gameplay.mp4"),
	)

	cfg := pipeline.Config{
		MainDir:       mainDir,
		GameplayDir:   gameDir,
		OutDir:        filepath.Join(tmp, "output"),
		Discovery:     pipeline.DiscoverFirst,
		Window:        5 * time.Second,
		MaxClips:      2,
		Workers:       1,
		OnWindowError: usecase.WindowAbort,
		OnClipError:   usecase.ClipContinue,
		Subtitles:     true,
		ASR:           pipeline.ASRWhisperCPP,
		Scorer:        pipeline.ScorerHeuristic,
		TempDir:       tmp,
		FFmpegPath:    "ffmpeg",
		FFprobePath:   "ffprobe",
		WhisperBin:    whisperBin,
		WhisperModel:  whisperModel,
		Log:           zerolog.Nop(),
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Scorer = pipeline.ScorerOpenAI
		cfg.OpenAIAPIKey = key
		cfg.OpenAIChatModel = os.Getenv("OPENAI_CHAT_MODEL")
		if cfg.OpenAIChatModel == "" {
			cfg.OpenAIChatModel = "gpt-4o"
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(res.OutDir, "manifest.json"))
	if err != nil {
		t.Fatalf("missing manifest: %v", err)
	}
	var m types.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	// -shortest cuts the source to the speech length.
	wantWindows := int(math.Ceil(m.DurationSec / cfg.Window.Seconds()))
	if len(m.Windows) != wantWindows {
		t.Fatalf("expected %d windows for %.2fs, got %d", wantWindows, m.DurationSec, len(m.Windows))
	}
	if want := min(wantWindows, cfg.MaxClips); len(m.Clips) != want {
		t.Fatalf("expected %d clips, got %d", want, len(m.Clips))
	}
	if m.TranscriptFile == "" {
		t.Fatalf("expected transcript.json with subtitles on")
	}

	for _, c := range m.Clips {
		if c.Error != "" {
			t.Fatalf("clip %d failed: %s", c.Rank, c.Error)
		}
		got := probeSeconds(t, filepath.Join(res.OutDir, c.File))
		want := c.EndSec - c.StartSec
		if math.Abs(got-want) > 0.5 {
			t.Fatalf("%s: duration %.2fs, want about %.2fs", c.File, got, want)
		}
	}
}

func ffmpegFixture(t *testing.T, args ...string) {
	t.Helper()
	cmd := exec.Command("ffmpeg", append([]string{"-y"}, args...)...)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
}

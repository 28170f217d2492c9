package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "viralcut",
		Short: "Pick the most viral windows of a video and stack them over gameplay footage",
		Long: `viralcut slices the video in the main directory into fixed-length windows,
transcribes and scores each one with a language model, and renders the best
ones as portrait clips with the gameplay video looping underneath.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	f := root.Flags()
	f.String("config", "", "YAML config file (default ./viralcut.yaml if present)")
	f.String("main-dir", "", "Directory holding the source video")
	f.String("gameplay-dir", "", "Directory holding the background video")
	f.String("out", "", "Output directory")
	f.Bool("run-dir", false, "Write outputs into a fresh per-run subdirectory")
	f.String("discovery", "", "Input discovery: first|strict")

	f.Float64("window", 0, "Window length in seconds")
	f.Int("clips", 0, "Maximum number of clips")
	f.String("on-window-error", "", "Window failure policy: abort|skip")
	f.String("on-clip-error", "", "Clip failure policy: abort|continue")
	f.String("asr", "", "Speech-to-text backend: openai|whispercpp")
	f.String("scorer", "", "Scoring backend: openai|openrouter|gemini|heuristic")
	f.Bool("subtitles", false, "Burn karaoke captions into the top pane")

	f.Int("workers", 0, "Windows scored concurrently")
	f.Float64("rps", 0, "Max service requests per second (0 = unlimited)")
	f.Int("retries", 0, "Retries per failed service call")

	f.String("ffmpeg", "", "ffmpeg binary")
	f.String("ffprobe", "", "ffprobe binary")

	f.BoolP("verbose", "v", false, "Debug logging")
	f.Bool("log-json", false, "Log JSON lines instead of console output")

	// Hidden tuning flags
	f.Int("crf", 0, "x264 CRF")
	f.String("preset", "", "x264 preset")
	_ = f.MarkHidden("crf")
	_ = f.MarkHidden("preset")

	return root
}

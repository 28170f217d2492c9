package ports

import (
	"context"
	"time"

	"github.com/forPelevin/viralcut/internal/types"
)

type VideoTool interface {
	// ExtractAudioMono16k writes a 16 kHz mono WAV of inMP4 to outWav. A nil
	// span extracts the whole file.
	ExtractAudioMono16k(ctx context.Context, inMP4 string, span *types.Span, outWav string) error
	ProbeDuration(ctx context.Context, inMP4 string) (time.Duration, error)
	ComposeStacked(ctx context.Context, spec types.ComposeSpec) error
}

type SpeechToText interface {
	TranscribeText(ctx context.Context, wavPath string) (string, error)
	TranscribeVerbose(ctx context.Context, wavPath string) (types.Transcript, error)
}

// ChatCompleter sends a single user prompt and returns the raw completion
// text. Implementations request deterministic (zero temperature) output.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

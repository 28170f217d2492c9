package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/viralcut/internal/ports"
	"github.com/forPelevin/viralcut/internal/types"
)

type Transcriber interface {
	TranscribeSegment(ctx context.Context, src string, span types.Span) (string, error)
	TranscribeWhole(ctx context.Context, src string) (types.Transcript, error)
}

type Scorer interface {
	Score(ctx context.Context, transcript string, d time.Duration) (int, error)
}

type Deps struct {
	Video       ports.VideoTool
	Transcriber Transcriber
	Scorer      Scorer
	Log         zerolog.Logger
	// RetryBase is the first retry delay; it doubles per attempt. Zero means
	// one second.
	RetryBase time.Duration
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.RetryBase <= 0 {
		d.RetryBase = time.Second
	}
	return Usecase{d: d}
}

// WindowPolicy decides what a service failure on one window does to the run.
type WindowPolicy string

const (
	WindowAbort WindowPolicy = "abort"
	// WindowSkip keeps the window with score 0 and records the error.
	WindowSkip WindowPolicy = "skip"
)

// ClipPolicy decides what a failed composition does to the remaining clips.
type ClipPolicy string

const (
	ClipAbort    ClipPolicy = "abort"
	ClipContinue ClipPolicy = "continue"
)

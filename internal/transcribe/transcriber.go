package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/forPelevin/viralcut/internal/errs"
	"github.com/forPelevin/viralcut/internal/ports"
	"github.com/forPelevin/viralcut/internal/types"
)

// AudioExtractor is the part of audio.Extractor the transcriber needs.
type AudioExtractor interface {
	Extract(ctx context.Context, src string, span *types.Span) (string, error)
	Release(path string)
}

type Transcriber struct {
	audio AudioExtractor
	stt   ports.SpeechToText
	log   zerolog.Logger
}

func New(audio AudioExtractor, stt ports.SpeechToText, log zerolog.Logger) *Transcriber {
	return &Transcriber{audio: audio, stt: stt, log: log}
}

// TranscribeSegment returns the plain text spoken in span of src. Silence is
// an empty string, not an error. The intermediate audio file is removed
// before returning on every path.
func (t *Transcriber) TranscribeSegment(ctx context.Context, src string, span types.Span) (string, error) {
	wav, err := t.audio.Extract(ctx, src, &span)
	if err != nil {
		return "", err
	}
	defer t.audio.Release(wav)

	text, err := t.stt.TranscribeText(ctx, wav)
	if err != nil {
		return "", errs.Mark(errs.ErrTranscriptionService, fmt.Errorf("transcribe %s: %w", span, err))
	}
	return strings.TrimSpace(text), nil
}

// TranscribeWhole returns a timestamped transcript of all of src.
func (t *Transcriber) TranscribeWhole(ctx context.Context, src string) (types.Transcript, error) {
	wav, err := t.audio.Extract(ctx, src, nil)
	if err != nil {
		return types.Transcript{}, err
	}
	defer t.audio.Release(wav)

	tr, err := t.stt.TranscribeVerbose(ctx, wav)
	if err != nil {
		return types.Transcript{}, errs.Mark(errs.ErrTranscriptionService, fmt.Errorf("transcribe %s: %w", src, err))
	}
	t.log.Debug().Int("segments", len(tr.Segments)).Str("language", tr.Language).Msg("whole-file transcript")
	return tr, nil
}

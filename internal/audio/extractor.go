package audio

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/forPelevin/viralcut/internal/errs"
	"github.com/forPelevin/viralcut/internal/ports"
	"github.com/forPelevin/viralcut/internal/types"
)

// Extractor turns a video range into a temporary 16 kHz mono WAV. Callers own
// the returned file and hand it back through Release.
type Extractor struct {
	video   ports.VideoTool
	tempDir string
	log     zerolog.Logger
}

// NewExtractor writes temp files under tempDir, or the OS temp dir when empty.
func NewExtractor(video ports.VideoTool, tempDir string, log zerolog.Logger) *Extractor {
	return &Extractor{video: video, tempDir: tempDir, log: log}
}

// Extract writes the audio of src to a fresh temp file. A nil span extracts
// the whole file. On failure no file is left behind.
func (e *Extractor) Extract(ctx context.Context, src string, span *types.Span) (string, error) {
	if span != nil && (span.Start < 0 || span.End <= span.Start) {
		return "", errs.Mark(errs.ErrExtractionFailed, errors.Errorf("invalid range %s", span))
	}

	f, err := os.CreateTemp(e.tempDir, "viralcut-*.wav")
	if err != nil {
		return "", errs.Mark(errs.ErrExtractionFailed, errors.Wrap(err, "create temp wav"))
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		e.Release(path)
		return "", errs.Mark(errs.ErrExtractionFailed, errors.Wrap(err, "close temp wav"))
	}

	if err := e.video.ExtractAudioMono16k(ctx, src, span, path); err != nil {
		e.Release(path)
		return "", errs.Mark(errs.ErrExtractionFailed, errors.Wrapf(err, "extract audio from %s", src))
	}
	return path, nil
}

// Release removes a file returned by Extract. Failures are logged, not
// returned.
func (e *Extractor) Release(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		e.log.Warn().Err(err).Str("path", path).Msg("failed to remove temp audio")
	}
}

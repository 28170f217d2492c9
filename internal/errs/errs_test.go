package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestMark_MatchesKindAndCause(t *testing.T) {
	err := Mark(ErrExtractionFailed, fmt.Errorf("ffmpeg: %w", io.ErrUnexpectedEOF))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected kind to match: %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected cause to match: %v", err)
	}
	if got := err.Error(); got != "audio extraction failed: ffmpeg: unexpected EOF" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestMark_NilAndIdempotent(t *testing.T) {
	if Mark(ErrScoringService, nil) != nil {
		t.Fatalf("expected nil for nil cause")
	}
	first := Mark(ErrScoringService, io.EOF)
	if second := Mark(ErrScoringService, first); second != first {
		t.Fatalf("expected already-marked error to be returned unchanged")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{Mark(ErrTranscriptionService, io.EOF), true},
		{Mark(ErrScoringService, io.EOF), true},
		{Mark(ErrExtractionFailed, io.EOF), false},
		{io.EOF, false},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

// Package errs defines the error kinds a run can fail with.
package errs

import "errors"

var (
	ErrNoVideoFound         = errors.New("no video found")
	ErrExtractionFailed     = errors.New("audio extraction failed")
	ErrTranscriptionService = errors.New("transcription service error")
	ErrScoringService       = errors.New("scoring service error")
	ErrCompositionFailed    = errors.New("composition failed")
	ErrInvalidConfig        = errors.New("invalid config")
)

type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string { return e.kind.Error() + ": " + e.cause.Error() }

func (e *kindError) Unwrap() []error { return []error{e.kind, e.cause} }

// Mark tags err with kind so that errors.Is matches both the kind and the
// original cause. Already-marked errors are returned unchanged.
func Mark(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return &kindError{kind: kind, cause: err}
}

// Retryable reports whether err came from a remote service call.
func Retryable(err error) bool {
	return errors.Is(err, ErrTranscriptionService) || errors.Is(err, ErrScoringService)
}

package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/forPelevin/viralcut/internal/domain/highlights"
	"github.com/forPelevin/viralcut/internal/errs"
	"github.com/forPelevin/viralcut/internal/types"
)

type SelectInput struct {
	Source        string
	TotalDuration time.Duration
	WindowLength  time.Duration
	MaxClips      int
	// Workers above 1 score windows concurrently.
	Workers       int
	OnWindowError WindowPolicy
	Retries       int
	// Limiter, when set, gates every transcription and scoring request.
	Limiter *rate.Limiter
}

type SelectResult struct {
	// Windows holds every scored window in index order.
	Windows   []types.ScoredWindow
	Selection []types.ScoredWindow
}

// Select slices the source into windows, transcribes and scores each, and
// returns the best MaxClips of them, highest score first with earlier
// windows winning ties.
func (u Usecase) Select(ctx context.Context, in SelectInput) (SelectResult, error) {
	if in.WindowLength <= 0 {
		return SelectResult{}, errs.Mark(errs.ErrInvalidConfig, fmt.Errorf("window length must be positive, got %s", in.WindowLength))
	}
	if in.MaxClips <= 0 {
		return SelectResult{}, errs.Mark(errs.ErrInvalidConfig, fmt.Errorf("max clips must be positive, got %d", in.MaxClips))
	}
	windows := highlights.SliceWindows(in.TotalDuration, in.WindowLength)
	if len(windows) == 0 {
		return SelectResult{}, fmt.Errorf("source %s has no duration", in.Source)
	}
	u.d.Log.Info().
		Int("windows", len(windows)).
		Dur("window", in.WindowLength).
		Dur("total", in.TotalDuration).
		Msg("scoring windows")

	scored := make([]types.ScoredWindow, len(windows))
	var err error
	if in.Workers <= 1 {
		err = u.scoreSequential(ctx, in, windows, scored)
	} else {
		err = u.scoreConcurrent(ctx, in, windows, scored)
	}
	if err != nil {
		return SelectResult{}, err
	}
	return SelectResult{Windows: scored, Selection: highlights.Rank(scored, in.MaxClips)}, nil
}

func (u Usecase) scoreSequential(ctx context.Context, in SelectInput, windows []types.Window, out []types.ScoredWindow) error {
	for i, w := range windows {
		sw, err := u.scoreWindow(ctx, in, w)
		if err != nil {
			return err
		}
		out[i] = sw
	}
	return nil
}

// scoreConcurrent bounds in-flight windows with a semaphore and stops
// launching new work after the first fatal error.
func (u Usecase) scoreConcurrent(ctx context.Context, in SelectInput, windows []types.Window, out []types.ScoredWindow) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := newSemaphore(in.Workers)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i, w := range windows {
		if err := sem.acquire(runCtx); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.release()

			sw, err := u.scoreWindow(runCtx, in, w)
			if err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			out[i] = sw
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (u Usecase) scoreWindow(ctx context.Context, in SelectInput, w types.Window) (types.ScoredWindow, error) {
	sw := types.ScoredWindow{Window: w}

	text, err := callService(ctx, u, in.Limiter, in.Retries, w, "transcribe", func() (string, error) {
		return u.d.Transcriber.TranscribeSegment(ctx, in.Source, w.Span())
	})
	if err == nil {
		sw.Transcript = text
		sw.Score, err = callService(ctx, u, in.Limiter, in.Retries, w, "score", func() (int, error) {
			return u.d.Scorer.Score(ctx, text, w.Duration())
		})
	}
	if err != nil {
		if in.OnWindowError == WindowSkip && errs.Retryable(err) {
			sw.Score = 0
			sw.Err = err
			u.d.Log.Warn().Err(err).Int("window", w.Index).Msg("window failed, keeping score 0")
			return sw, nil
		}
		return types.ScoredWindow{}, fmt.Errorf("%s: %w", w, err)
	}

	u.d.Log.Info().
		Int("window", w.Index).
		Str("range", w.Span().String()).
		Int("score", sw.Score).
		Int("chars", len(text)).
		Msg("window scored")
	return sw, nil
}

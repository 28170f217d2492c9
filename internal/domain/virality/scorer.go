package virality

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/viralcut/internal/errs"
	"github.com/forPelevin/viralcut/internal/ports"
)

// Scorer rates window transcripts with a chat model.
type Scorer struct {
	llm ports.ChatCompleter
	log zerolog.Logger
}

func NewScorer(llm ports.ChatCompleter, log zerolog.Logger) *Scorer {
	return &Scorer{llm: llm, log: log}
}

// Score returns the model's rating for transcript. An unparseable completion
// scores 0 without error. A failed call also scores 0 and returns an error
// marked errs.ErrScoringService so the caller can decide whether to abort.
func (s *Scorer) Score(ctx context.Context, transcript string, d time.Duration) (int, error) {
	began := time.Now()
	out, err := s.llm.Complete(ctx, BuildPrompt(transcript, d))
	if err != nil {
		return 0, errs.Mark(errs.ErrScoringService, err)
	}
	score, ok := ParseScore(out)
	if !ok {
		s.log.Debug().Str("completion", truncate(out, 80)).Msg("non-numeric completion, scoring 0")
	}
	s.log.Debug().
		Str("model", s.llm.Model()).
		Dur("took", time.Since(began)).
		Int("score", score).
		Msg("scored")
	return score, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

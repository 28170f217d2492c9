package virality

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"
)

var (
	reNum     = regexp.MustCompile(`\b\d+(?:[\.,]\d+)?\b`)
	reHook    = regexp.MustCompile(`(?i)\b(insane|crazy|secret|never|always|wait|watch|actually|here\s+is\s+why|nobody)\b`)
	reHow     = regexp.MustCompile(`(?i)\b(how\s+to|step\s+\d+|first|second|third|do\s+this)\b`)
	reStepNum = regexp.MustCompile(`(?i)\bstep\s+\d+\b`)
)

// Heuristic scores transcripts offline with keyword and punctuation cues.
// It needs no credentials.
type Heuristic struct{}

func (Heuristic) Score(_ context.Context, transcript string, d time.Duration) (int, error) {
	return HeuristicScore(transcript, d), nil
}

// HeuristicScore maps cue density to [MinScore, MaxScore].
func HeuristicScore(transcript string, d time.Duration) int {
	t := strings.TrimSpace(transcript)
	if t == "" {
		return 0
	}
	lower := strings.ToLower(t)

	info := float64(len(reNum.FindAllStringIndex(t, -1))) * 0.4
	if reHow.MatchString(lower) {
		info += 1.2
	}

	hook := float64(len(reHook.FindAllStringIndex(lower, -1))) * 0.9
	hook += float64(len(reStepNum.FindAllStringIndex(lower, -1))) * 0.4
	hook += float64(strings.Count(t, "?")) * 0.7
	hook += float64(strings.Count(t, "!")) * 0.5

	// Sparse speech reads as dead air in short-form video.
	words := len(strings.Fields(t))
	if sec := d.Seconds(); sec > 0 {
		wps := float64(words) / sec
		switch {
		case wps >= 2.5:
			hook += 1.5
		case wps < 1:
			hook -= 1
		}
	}

	return clamp(int(math.Round(info+hook)), MinScore, MaxScore)
}

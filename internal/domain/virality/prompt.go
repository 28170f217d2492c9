package virality

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	MinScore = 0
	MaxScore = 10
)

// BuildPrompt embeds a window transcript and its duration in the rating
// template sent to the model.
func BuildPrompt(transcript string, d time.Duration) string {
	return fmt.Sprintf(
		"Transcript (%.0fs):\n%s\nRate this clip from 1 to 10 on its viral potential and return just the number.",
		d.Seconds(), transcript,
	)
}

// ParseScore reads the first whitespace-delimited token of a completion as an
// integer, clamped to [MinScore, MaxScore]. The token is unwrapped from
// markdown emphasis and quotes and loses trailing punctuation first, so "**9**"
// and "6." both parse. ok is false when there is no numeric leading token; the
// score is then 0.
func ParseScore(completion string) (score int, ok bool) {
	fields := strings.Fields(completion)
	if len(fields) == 0 {
		return 0, false
	}
	tok := strings.Trim(fields[0], "*_`\"'")
	tok = strings.TrimRight(tok, ".,;:!")
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return clamp(n, MinScore, MaxScore), true
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

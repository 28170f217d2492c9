package highlights

import (
	"sort"

	"github.com/forPelevin/viralcut/internal/types"
)

// Rank orders scored windows by score descending, earlier windows first on
// equal scores, and keeps at most maxClips of them. The input is not modified.
func Rank(scored []types.ScoredWindow, maxClips int) []types.ScoredWindow {
	if maxClips <= 0 || len(scored) == 0 {
		return nil
	}
	out := make([]types.ScoredWindow, len(scored))
	copy(out, scored)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Window.Index < out[j].Window.Index
	})
	if len(out) > maxClips {
		out = out[:maxClips]
	}
	return out
}

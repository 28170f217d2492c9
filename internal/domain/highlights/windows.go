package highlights

import (
	"time"

	"github.com/forPelevin/viralcut/internal/types"
)

// SliceWindows partitions [0, total) into consecutive windows of length
// seconds. The last window holds the remainder and may be shorter.
func SliceWindows(total, length time.Duration) []types.Window {
	if total <= 0 || length <= 0 {
		return nil
	}
	n := int((total + length - 1) / length)
	out := make([]types.Window, 0, n)
	for start := time.Duration(0); start < total; start += length {
		end := start + length
		if end > total {
			end = total
		}
		out = append(out, types.Window{Index: len(out) + 1, Start: start, End: end})
	}
	return out
}

// LoopCopies returns how many back-to-back copies of a clip lasting clip are
// needed to cover need. A clip that already covers need is used once.
func LoopCopies(clip, need time.Duration) int {
	if clip <= 0 || need <= 0 {
		return 0
	}
	if clip >= need {
		return 1
	}
	return int((need + clip - 1) / clip)
}

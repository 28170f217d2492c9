package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// buildRunOutDir names a per-run directory after the input file, the start
// time and the first characters of the run id.
func buildRunOutDir(outRoot, input, runID string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	suffix := strings.ReplaceAll(runID, "-", "")
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/viralcut/internal/errs"
)

// Discovery picks one video out of an input directory.
type Discovery string

const (
	// DiscoverFirst takes the lexicographically first match.
	DiscoverFirst Discovery = "first"
	// DiscoverStrict requires exactly one match.
	DiscoverStrict Discovery = "strict"
)

var videoExts = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mkv":  true,
}

// discoverVideo returns the single eligible video in dir. A missing directory
// and an empty one both fail with errs.ErrNoVideoFound.
func discoverVideo(dir string, mode Discovery) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errs.Mark(errs.ErrNoVideoFound, fmt.Errorf("read %s: %w", dir, err))
	}

	// os.ReadDir sorts by name.
	var matches []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if videoExts[strings.ToLower(filepath.Ext(e.Name()))] {
			matches = append(matches, filepath.Join(dir, e.Name()))
		}
	}

	switch {
	case len(matches) == 0:
		return "", errs.Mark(errs.ErrNoVideoFound, fmt.Errorf("no .mp4, .webm or .mkv file in %s", dir))
	case len(matches) > 1 && mode == DiscoverStrict:
		return "", errs.Mark(errs.ErrNoVideoFound, fmt.Errorf("ambiguous: %d videos in %s", len(matches), dir))
	}
	return matches[0], nil
}

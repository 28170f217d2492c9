package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/viralcut/internal/domain/subtitles"
	"github.com/forPelevin/viralcut/internal/errs"
	"github.com/forPelevin/viralcut/internal/types"
)

type ComposeInput struct {
	Source     string
	Background string
	Selection  []types.ScoredWindow
	OutDir     string
	OnError    ClipPolicy
	// Transcript enables burned-in captions when set.
	Transcript *types.Transcript
	Style      subtitles.Style
}

type ComposeResult struct {
	Clips []types.ManifestClip
}

// ClipName is the output file name for the clip at 1-based rank.
func ClipName(rank int) string {
	return fmt.Sprintf("viral_clip_%d.mp4", rank)
}

// Compose renders one composite per selected window, named by rank. With
// ClipContinue every clip is attempted and all failures are joined into the
// returned error; with ClipAbort the first failure stops the loop.
func (u Usecase) Compose(ctx context.Context, in ComposeInput) (ComposeResult, error) {
	var res ComposeResult
	if len(in.Selection) == 0 {
		return res, nil
	}
	if err := os.MkdirAll(in.OutDir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}

	bgDur, err := u.d.Video.ProbeDuration(ctx, in.Background)
	if err != nil {
		return res, errs.Mark(errs.ErrCompositionFailed, fmt.Errorf("probe background %s: %w", in.Background, err))
	}

	var failures []error
	for i, sw := range in.Selection {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rank := i + 1
		clip, err := u.composeOne(ctx, in, sw, rank, bgDur)
		res.Clips = append(res.Clips, clip)
		if err == nil {
			u.d.Log.Info().Int("rank", rank).Int("window", sw.Window.Index).Int("score", sw.Score).Str("file", clip.File).Msg("clip written")
			continue
		}

		u.d.Log.Error().Err(err).Int("rank", rank).Int("window", sw.Window.Index).Msg("clip failed")
		failures = append(failures, err)
		if in.OnError == ClipAbort {
			break
		}
	}
	return res, errors.Join(failures...)
}

func (u Usecase) composeOne(ctx context.Context, in ComposeInput, sw types.ScoredWindow, rank int, bgDur time.Duration) (types.ManifestClip, error) {
	name := ClipName(rank)
	out := filepath.Join(in.OutDir, name)
	clip := types.ManifestClip{
		Rank:     rank,
		Window:   sw.Window.Index,
		StartSec: sw.Window.Start.Seconds(),
		EndSec:   sw.Window.End.Seconds(),
		Score:    sw.Score,
	}

	spec := types.ComposeSpec{
		Source:             in.Source,
		Span:               sw.Window.Span(),
		Background:         in.Background,
		BackgroundDuration: bgDur,
		Output:             out,
	}
	if in.Transcript != nil {
		if doc, ok := subtitles.Render(*in.Transcript, sw.Window.Span(), in.Style); ok {
			assName := strings.TrimSuffix(name, ".mp4") + ".ass"
			assPath := filepath.Join(in.OutDir, assName)
			if err := os.WriteFile(assPath, []byte(doc), 0o644); err != nil {
				err = errs.Mark(errs.ErrCompositionFailed, fmt.Errorf("clip %d: write subtitles: %w", rank, err))
				clip.Error = err.Error()
				return clip, err
			}
			spec.SubtitlesASS = assPath
			clip.Subtitles = assName
		}
	}

	if err := u.d.Video.ComposeStacked(ctx, spec); err != nil {
		u.removePartial(out)
		if spec.SubtitlesASS != "" {
			u.removePartial(spec.SubtitlesASS)
			clip.Subtitles = ""
		}
		err = errs.Mark(errs.ErrCompositionFailed, fmt.Errorf("clip %d (%s): %w", rank, sw.Window, err))
		clip.Error = err.Error()
		return clip, err
	}
	clip.File = name
	return clip, nil
}

func (u Usecase) removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		u.d.Log.Warn().Err(err).Str("path", path).Msg("failed to remove partial output")
	}
}

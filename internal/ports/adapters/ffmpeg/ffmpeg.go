package ffmpeg

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/forPelevin/viralcut/internal/domain/highlights"
	"github.com/forPelevin/viralcut/internal/logging"
	"github.com/forPelevin/viralcut/internal/types"
)

// Layout is the portrait frame the composite is rendered into. Each pane is
// Width x Height/2.
type Layout struct {
	Width      int
	Height     int
	FPS        int
	VideoCodec string
	AudioCodec string
	Preset     string
	CRF        int
}

func DefaultLayout() Layout {
	return Layout{
		Width:      1080,
		Height:     1920,
		FPS:        30,
		VideoCodec: "libx264",
		AudioCodec: "aac",
		Preset:     "veryfast",
		CRF:        20,
	}
}

type Adapter struct {
	ffmpeg  string
	ffprobe string
	layout  Layout
	log     zerolog.Logger
}

func New(ffmpegPath, ffprobePath string, layout Layout, log zerolog.Logger) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if layout.Width <= 0 || layout.Height <= 0 {
		layout = DefaultLayout()
	}
	return &Adapter{
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		layout:  layout,
		log:     logging.WithComponent(log, "ffmpeg"),
	}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inMP4 string, span *types.Span, outWav string) error {
	if span != nil && span.End <= span.Start {
		return errors.Errorf("ffmpeg extract audio: empty range %s", span)
	}
	if err := a.run(ctx, extractArgs(inMP4, span, outWav)); err != nil {
		return errors.Wrap(err, "ffmpeg extract audio")
	}
	return nil
}

func extractArgs(inMP4 string, span *types.Span, outWav string) []string {
	in := ffmpeg.KwArgs{}
	if span != nil {
		in["ss"] = fmtSeconds(span.Start)
		in["to"] = fmtSeconds(span.End)
	}
	return ffmpeg.Input(inMP4, in).
		Audio().
		Output(outWav, ffmpeg.KwArgs{
			"ac":  "1",
			"ar":  "16000",
			"c:a": "pcm_s16le",
			"f":   "wav",
		}).
		OverWriteOutput().
		GetArgs()
}

func (a *Adapter) ComposeStacked(ctx context.Context, spec types.ComposeSpec) error {
	args, err := a.composeArgs(spec)
	if err != nil {
		return err
	}
	if err := a.run(ctx, args); err != nil {
		return errors.Wrap(err, "ffmpeg compose")
	}
	return nil
}

// composeArgs builds the stacked render: the source span scaled and cropped
// into the top pane with its audio, the background looped enough times to
// cover the span, trimmed to the same length, muted, in the bottom pane.
func (a *Adapter) composeArgs(spec types.ComposeSpec) ([]string, error) {
	d := spec.Span.Duration()
	if d <= 0 {
		return nil, errors.Errorf("empty source range %s", spec.Span)
	}
	copies := highlights.LoopCopies(spec.BackgroundDuration, d)
	if copies == 0 {
		return nil, errors.Errorf("background %q has no usable duration", spec.Background)
	}

	paneW, paneH := strconv.Itoa(a.layout.Width), strconv.Itoa(a.layout.Height/2)
	fill := ffmpeg.KwArgs{"w": paneW, "h": paneH, "force_original_aspect_ratio": "increase"}
	pane := ffmpeg.KwArgs{"w": paneW, "h": paneH}

	top := ffmpeg.Input(spec.Source, ffmpeg.KwArgs{
		"ss": fmtSeconds(spec.Span.Start),
		"to": fmtSeconds(spec.Span.End),
	})
	bgIn := ffmpeg.KwArgs{}
	if copies > 1 {
		bgIn["stream_loop"] = strconv.Itoa(copies - 1)
	}
	bg := ffmpeg.Input(spec.Background, bgIn)

	topV := top.Video().
		Filter("scale", ffmpeg.Args{}, fill).
		Filter("crop", ffmpeg.Args{}, pane).
		Filter("setsar", ffmpeg.Args{"1"})
	if spec.SubtitlesASS != "" {
		topV = topV.Filter("subtitles", ffmpeg.Args{spec.SubtitlesASS})
	}

	bgV := bg.Video().
		Filter("trim", ffmpeg.Args{}, ffmpeg.KwArgs{"duration": fmtSeconds(d)}).
		Filter("setpts", ffmpeg.Args{"PTS-STARTPTS"}).
		Filter("scale", ffmpeg.Args{}, fill).
		Filter("crop", ffmpeg.Args{}, pane).
		Filter("setsar", ffmpeg.Args{"1"})

	stacked := ffmpeg.Filter([]*ffmpeg.Stream{topV, bgV}, "vstack", ffmpeg.Args{}, ffmpeg.KwArgs{"inputs": "2"})

	out := ffmpeg.Output([]*ffmpeg.Stream{stacked, top.Audio()}, spec.Output, ffmpeg.KwArgs{
		"r":        strconv.Itoa(a.layout.FPS),
		"c:v":      a.layout.VideoCodec,
		"preset":   a.layout.Preset,
		"crf":      strconv.Itoa(a.layout.CRF),
		"pix_fmt":  "yuv420p",
		"c:a":      a.layout.AudioCodec,
		"b:a":      "192k",
		"t":        fmtSeconds(d),
		"movflags": "+faststart",
	}).OverWriteOutput()

	return out.GetArgs(), nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, inMP4 string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inMP4,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, errors.Wrapf(err, "ffprobe duration %s\n%s", inMP4, string(b))
	}
	return parseProbeDuration(string(b))
}

func parseProbeDuration(out string) (time.Duration, error) {
	s := strings.TrimSpace(out)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse duration %q", s)
	}
	if sec <= 0 {
		return 0, errors.Errorf("non-positive duration %q", s)
	}
	return time.Duration(sec * float64(time.Second)).Round(time.Millisecond), nil
}

func (a *Adapter) run(ctx context.Context, args []string) error {
	a.log.Debug().Strs("args", args).Msg("exec ffmpeg")
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Errorf("%v\n%s", err, tail(string(b), 2000))
	}
	return nil
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

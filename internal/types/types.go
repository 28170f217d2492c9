package types

import (
	"fmt"
	"strconv"
	"time"
)

// Span is a time range inside a source video.
type Span struct {
	Start time.Duration
	End   time.Duration
}

func (s Span) Duration() time.Duration { return s.End - s.Start }

func (s Span) String() string {
	return fmt.Sprintf("%s-%s", fmtSec(s.Start), fmtSec(s.End))
}

// Window is one fixed-length scoring candidate. Index is 1-based and follows
// temporal order.
type Window struct {
	Index int
	Start time.Duration
	End   time.Duration
}

func (w Window) Span() Span { return Span{Start: w.Start, End: w.End} }

func (w Window) Duration() time.Duration { return w.End - w.Start }

func (w Window) String() string {
	return fmt.Sprintf("window %d [%s]", w.Index, w.Span())
}

type ScoredWindow struct {
	Window     Window
	Score      int
	Transcript string
	// Err is set when the window could not be scored and the run was told
	// to continue with the default score.
	Err error
}

// Transcript is a timestamped transcription of a whole file.
type Transcript struct {
	Language string    `json:"language,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Text     string    `json:"text,omitempty"`
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// ComposeSpec describes one stacked composite: the source span on top, the
// muted background looped underneath.
type ComposeSpec struct {
	Source             string
	Span               Span
	Background         string
	BackgroundDuration time.Duration
	Output             string
	// SubtitlesASS is burned into the top pane when non-empty.
	SubtitlesASS string
}

type Manifest struct {
	RunID          string           `json:"run_id"`
	Source         string           `json:"source"`
	Background     string           `json:"background"`
	DurationSec    float64          `json:"duration_sec"`
	WindowSec      float64          `json:"window_sec"`
	MaxClips       int              `json:"max_clips"`
	ASR            string           `json:"asr"`
	Scorer         string           `json:"scorer"`
	TranscriptFile string           `json:"transcript_file,omitempty"`
	Windows        []ManifestWindow `json:"windows"`
	Clips          []ManifestClip   `json:"clips"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
}

type ManifestWindow struct {
	Index      int     `json:"index"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Score      int     `json:"score"`
	Transcript string  `json:"transcript"`
	Error      string  `json:"error,omitempty"`
}

type ManifestClip struct {
	Rank      int     `json:"rank"`
	Window    int     `json:"window"`
	StartSec  float64 `json:"start_sec"`
	EndSec    float64 `json:"end_sec"`
	Score     int     `json:"score"`
	File      string  `json:"file,omitempty"`
	Subtitles string  `json:"subtitles,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func fmtSec(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}

// Package subtitles renders word-timed karaoke captions for one clip.
package subtitles

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/forPelevin/viralcut/internal/types"
)

// Style sizes captions for the pane they are burned into.
type Style struct {
	PaneWidth  int
	PaneHeight int
	Font       string
	FontSize   int
	// MaxChars and MaxWords bound a single caption line.
	MaxChars int
	MaxWords int
}

// DefaultStyle fits the top half of a 1080x1920 portrait frame.
func DefaultStyle() Style {
	return Style{
		PaneWidth:  1080,
		PaneHeight: 960,
		Font:       "Inter",
		FontSize:   64,
		MaxChars:   26,
		MaxWords:   5,
	}
}

// Render returns an ASS document with the transcript's words inside span,
// timed relative to span.Start. Without per-word timestamps the overlapping
// segment text is shown as one plain event. ok is false when span contains no
// speech.
func Render(tr types.Transcript, span types.Span, st Style) (doc string, ok bool) {
	st = withDefaults(st)
	words := wordsIn(tr, span)
	if len(words) > 0 {
		return karaoke(packLines(words, st.MaxChars, st.MaxWords), st), true
	}
	text := segmentTextIn(tr, span)
	if text == "" {
		return "", false
	}
	return plain(text, span.Duration(), st), true
}

func withDefaults(st Style) Style {
	d := DefaultStyle()
	if st.PaneWidth <= 0 || st.PaneHeight <= 0 {
		st.PaneWidth, st.PaneHeight = d.PaneWidth, d.PaneHeight
	}
	if st.Font == "" {
		st.Font = d.Font
	}
	if st.FontSize <= 0 {
		st.FontSize = d.FontSize
	}
	if st.MaxChars <= 0 {
		st.MaxChars = d.MaxChars
	}
	if st.MaxWords <= 0 {
		st.MaxWords = d.MaxWords
	}
	return st
}

type word struct {
	start time.Duration
	end   time.Duration
	text  string
}

type line struct {
	start time.Duration
	end   time.Duration
	words []word
}

func wordsIn(tr types.Transcript, span types.Span) []word {
	var out []word
	for _, s := range tr.Segments {
		for _, w := range s.Words {
			ws, we := seconds(w.Start), seconds(w.End)
			if we <= span.Start || ws >= span.End {
				continue
			}
			text := sanitize(w.Word)
			if text == "" {
				continue
			}
			ws = max(ws, span.Start)
			we = min(we, span.End)
			out = append(out, word{start: ws - span.Start, end: we - span.Start, text: text})
		}
	}
	return out
}

func segmentTextIn(tr types.Transcript, span types.Span) string {
	var parts []string
	for _, s := range tr.Segments {
		if seconds(s.End) <= span.Start || seconds(s.Start) >= span.End {
			continue
		}
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// packLines greedily fills lines up to maxChars runes and maxWords words. A
// single word longer than maxChars gets a line of its own.
func packLines(words []word, maxChars, maxWords int) []line {
	var out []line
	var cur line
	curLen := 0
	flush := func() {
		if len(cur.words) == 0 {
			return
		}
		cur.end = cur.words[len(cur.words)-1].end
		out = append(out, cur)
		cur = line{}
		curLen = 0
	}
	for _, w := range words {
		wl := len([]rune(w.text))
		next := wl
		if curLen > 0 {
			next += curLen + 1
		}
		if len(cur.words) > 0 && (len(cur.words) >= maxWords || next > maxChars) {
			flush()
			next = wl
		}
		if len(cur.words) == 0 {
			cur.start = w.start
		}
		cur.words = append(cur.words, w)
		curLen = next
	}
	flush()
	return out
}

const eventsHeader = "\n[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n"

func karaoke(lines []line, st Style) string {
	var b strings.Builder
	b.WriteString(header(st))
	b.WriteString(eventsHeader)
	for _, ln := range lines {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Caption,,0,0,0,,", assTime(ln.start), assTime(ln.end))
		for i, w := range ln.words {
			cs := max(int((w.end-w.start)/(10*time.Millisecond)), 1)
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "{\\k%d}%s", cs, w.text)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func plain(text string, d time.Duration, st Style) string {
	var b strings.Builder
	b.WriteString(header(st))
	b.WriteString(eventsHeader)
	fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Caption,,0,0,0,,%s\n", assTime(0), assTime(d), sanitize(text))
	return b.String()
}

func header(st Style) string {
	margin := st.PaneWidth / 14
	marginV := st.PaneHeight / 12
	outline := max(st.FontSize/12, 2)
	return fmt.Sprintf(`[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes
WrapStyle: 0

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption, %s, %d, &H00FFFFFF, &H0000E5FF, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,%d,2,2, %d,%d,%d,1
`, st.PaneWidth, st.PaneHeight, st.Font, st.FontSize, outline, margin, margin, marginV)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	cs := int64(d / (10 * time.Millisecond))
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs / 100 % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// seconds converts transcript timestamps at millisecond precision.
func seconds(sec float64) time.Duration {
	return time.Duration(math.Round(sec*1000)) * time.Millisecond
}

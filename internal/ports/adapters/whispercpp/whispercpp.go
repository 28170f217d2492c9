package whispercpp

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/forPelevin/viralcut/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

func (a *Adapter) TranscribeText(ctx context.Context, wavPath string) (string, error) {
	tr, err := a.TranscribeVerbose(ctx, wavPath)
	if err != nil {
		return "", err
	}
	return tr.Text, nil
}

// TranscribeVerbose runs whisper.cpp with full JSON output. The JSON file is
// written next to wavPath and removed afterwards.
func (a *Adapter) TranscribeVerbose(ctx context.Context, wavPath string) (types.Transcript, error) {
	outPrefix := strings.TrimSuffix(wavPath, ".wav") + ".whisper"
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-ojf",
		"-of", outPrefix,
		"-np",
	}
	defer os.Remove(outPrefix + ".json")

	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, errors.Errorf("whisper.cpp failed: %v\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, errors.Wrap(err, "whisper.cpp output")
	}
	return parseOutput(jb)
}

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets offsets `json:"offsets"`
		Text    string  `json:"text"`
		Tokens  []struct {
			Text    string  `json:"text"`
			Offsets offsets `json:"offsets"`
		} `json:"tokens"`
	} `json:"transcription"`
}

// offsets are milliseconds.
type offsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

func parseOutput(jb []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(jb, &out); err != nil {
		return types.Transcript{}, errors.Wrap(err, "parse whisper.cpp json")
	}

	tr := types.Transcript{Language: out.Result.Language}
	var texts []string
	for _, s := range out.Transcription {
		text := strings.TrimSpace(s.Text)
		seg := types.Segment{
			Start: ms(s.Offsets.From),
			End:   ms(s.Offsets.To),
			Text:  text,
		}
		for _, tok := range s.Tokens {
			if isSpecialToken(tok.Text) {
				continue
			}
			// A leading space starts a new word; otherwise the piece continues
			// the previous one.
			if n := len(seg.Words); n > 0 && !strings.HasPrefix(tok.Text, " ") {
				seg.Words[n-1].Word += tok.Text
				seg.Words[n-1].End = ms(tok.Offsets.To)
				continue
			}
			w := strings.TrimSpace(tok.Text)
			if w == "" {
				continue
			}
			seg.Words = append(seg.Words, types.Word{Start: ms(tok.Offsets.From), End: ms(tok.Offsets.To), Word: w})
		}
		if text == "" {
			continue
		}
		texts = append(texts, text)
		tr.Segments = append(tr.Segments, seg)
	}
	tr.Text = strings.Join(texts, " ")
	if n := len(tr.Segments); n > 0 {
		tr.Duration = tr.Segments[n-1].End
	}
	return tr, nil
}

func isSpecialToken(s string) bool {
	return strings.HasPrefix(s, "[_") && strings.HasSuffix(s, "]")
}

func ms(v int64) float64 { return float64(v) / 1000 }

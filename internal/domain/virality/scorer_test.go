package virality

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/viralcut/internal/errs"
)

type fakeChat struct {
	out     string
	err     error
	prompts []string
}

func (f *fakeChat) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.out, f.err
}

func (f *fakeChat) Model() string { return "fake" }

func TestScorer_Score(t *testing.T) {
	tests := []struct {
		name      string
		chat      *fakeChat
		want      int
		wantKind  error
		wantCause error
	}{
		{name: "numeric", chat: &fakeChat{out: "7 out of 10, very engaging"}, want: 7},
		{name: "non numeric falls back", chat: &fakeChat{out: "N/A"}, want: 0},
		{name: "out of range clamps", chat: &fakeChat{out: "11"}, want: 10},
		{
			name:      "service error",
			chat:      &fakeChat{err: context.DeadlineExceeded},
			want:      0,
			wantKind:  errs.ErrScoringService,
			wantCause: context.DeadlineExceeded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScorer(tt.chat, zerolog.Nop())
			got, err := s.Score(context.Background(), "hello there", 45*time.Second)
			if got != tt.want {
				t.Fatalf("score = %d, want %d", got, tt.want)
			}
			if tt.wantKind == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			} else {
				if !errors.Is(err, tt.wantKind) || !errors.Is(err, tt.wantCause) {
					t.Fatalf("expected %v wrapping %v, got %v", tt.wantKind, tt.wantCause, err)
				}
			}
			if len(tt.chat.prompts) != 1 || !strings.Contains(tt.chat.prompts[0], "hello there") {
				t.Fatalf("expected one prompt embedding the transcript, got %q", tt.chat.prompts)
			}
		})
	}
}

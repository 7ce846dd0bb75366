package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/market"
)

type stubGenerator struct {
	response    string
	err         error
	lastSystem  string
	lastMessage string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.lastSystem = system
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestExplainerExplain(t *testing.T) {
	stub := &stubGenerator{response: "```json\n{\"note\": \"Your Go and SQL skills cover the stack.\"}\n```"}
	explainer := NewExplainer(stub, zap.NewNop(), 0)

	seeker := &market.Profile{ID: "u1", Headline: "Backend developer", Skills: []string{"Go", "SQL"}}
	job := &market.Job{ID: "j1", Title: "Go Developer", Skills: []string{"go", "sql", "k8s"}}

	note, err := explainer.Explain(context.Background(), seeker, job, 67)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note != "Your Go and SQL skills cover the stack." {
		t.Fatalf("unexpected note: %q", note)
	}

	if stub.lastSystem != systemPrompt || strings.TrimSpace(stub.lastSystem) == "" {
		t.Fatalf("expected embedded system prompt to be sent")
	}
	for _, want := range []string{`"headline": "Backend developer"`, `"title": "Go Developer"`, "Match score: 67"} {
		if !strings.Contains(stub.lastMessage, want) {
			t.Fatalf("expected message to contain %q, got:\n%s", want, stub.lastMessage)
		}
	}
}

func TestExplainerPropagatesGeneratorError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("quota")}
	explainer := NewExplainer(stub, nil, 10)

	_, err := explainer.Explain(context.Background(), &market.Profile{}, &market.Job{ID: "j1"}, 50)
	if err == nil || err.Error() != "quota" {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestExplainerRequiresInputs(t *testing.T) {
	explainer := NewExplainer(&stubGenerator{response: "x"}, nil, 0)

	if _, err := explainer.Explain(context.Background(), nil, &market.Job{}, 50); err == nil {
		t.Fatal("expected error without seeker")
	}
	if _, err := explainer.Explain(context.Background(), &market.Profile{}, nil, 50); err == nil {
		t.Fatal("expected error without job")
	}
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "json", raw: `{"note": " Strong overlap. "}`, want: "Strong overlap."},
		{name: "plain text", raw: "Strong overlap on Go.", want: "Strong overlap on Go."},
		{name: "code block", raw: "```\n{\"note\": \"ok\"}\n```", want: "ok"},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "missing note", raw: `{"reason": "x"}`, wantErr: true},
		{name: "broken json", raw: `{"note": `, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNote(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseNoteTruncatesLongNotes(t *testing.T) {
	got, err := parseNote(strings.Repeat("a", maxNoteLength+50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len([]rune(got)) != maxNoteLength+3 {
		t.Fatalf("expected truncated note, got %d runes", len([]rune(got)))
	}
}

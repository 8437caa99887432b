package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	replies []string
	errs    []error
	calls   int
	configs []*genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	f.configs = append(f.configs, config)

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(reply, genai.RoleModel)},
		},
	}, nil
}

func newTestTutor(t *testing.T, gen *fakeGenerator) *GeminiTutor {
	tutor := newGeminiTutor(gen, defaultModel, time.Second, zaptest.NewLogger(t))
	tutor.retryDelay = time.Millisecond
	return tutor
}

func TestNewGeminiTutor_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiTutor(context.Background(), GeminiConfig{}, zaptest.NewLogger(t))
	if err == nil {
		t.Error("Expected error when API key is not set")
	}
}

func TestGeminiTutor_Summarize(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"  • Photosynthesis makes sugar\n"}}
	tutor := newTestTutor(t, gen)

	summary, err := tutor.Summarize(context.Background(), "lecture text")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary != "• Photosynthesis makes sugar" {
		t.Errorf("Unexpected summary %q", summary)
	}

	config := gen.configs[0]
	if *config.Temperature != 0.3 || config.MaxOutputTokens != 500 {
		t.Errorf("Unexpected generation config %+v", config)
	}
}

func TestGeminiTutor_RetriesThenSucceeds(t *testing.T) {
	gen := &fakeGenerator{
		errs:    []error{errors.New("unavailable"), errors.New("unavailable")},
		replies: []string{"", "", "explained"},
	}
	tutor := newTestTutor(t, gen)

	got, err := tutor.Clarify(context.Background(), "osmosis", "")
	if err != nil {
		t.Fatalf("Clarify failed: %v", err)
	}
	if got != "explained" {
		t.Errorf("Expected 'explained', got %q", got)
	}
	if gen.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", gen.calls)
	}
}

func TestGeminiTutor_FallbackAfterRetries(t *testing.T) {
	down := errors.New("unavailable")

	t.Run("Summarize", func(t *testing.T) {
		gen := &fakeGenerator{errs: []error{down, down, down}}
		got, err := newTestTutor(t, gen).Summarize(context.Background(), "text")
		if err != nil || got != FallbackSummary {
			t.Errorf("Expected fallback summary, got %q, %v", got, err)
		}
		if gen.calls != maxAttempts {
			t.Errorf("Expected %d attempts, got %d", maxAttempts, gen.calls)
		}
	})

	t.Run("Clarify", func(t *testing.T) {
		gen := &fakeGenerator{errs: []error{down, down, down}}
		got, err := newTestTutor(t, gen).Clarify(context.Background(), "atom", "")
		if err != nil || got != FallbackClarification {
			t.Errorf("Expected fallback clarification, got %q, %v", got, err)
		}
	})

	t.Run("Quiz", func(t *testing.T) {
		gen := &fakeGenerator{errs: []error{down, down, down}}
		got, err := newTestTutor(t, gen).GenerateQuiz(context.Background(), "text", 3)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Expected empty quiz, got %+v", got)
		}
	})

	t.Run("EmptyReply", func(t *testing.T) {
		gen := &fakeGenerator{replies: []string{""}}
		got, _ := newTestTutor(t, gen).Summarize(context.Background(), "text")
		if got != FallbackSummary {
			t.Errorf("Expected fallback for empty reply, got %q", got)
		}
	})
}

func TestGeminiTutor_GenerateQuiz(t *testing.T) {
	reply := `[
		{"question": "What do plants make?", "options": ["Sugar", "Salt"], "correct_answer": "Sugar", "explanation": "Glucose"},
		{"question": "Where?", "options": ["Leaf", "Root"], "correct_answer": "Leaf", "explanation": "Chloroplasts"}
	]`
	gen := &fakeGenerator{replies: []string{reply}}

	questions, err := newTestTutor(t, gen).GenerateQuiz(context.Background(), "text", 1)
	if err != nil {
		t.Fatalf("GenerateQuiz failed: %v", err)
	}
	if len(questions) != 1 || questions[0].CorrectAnswer != "Sugar" {
		t.Errorf("Unexpected questions %+v", questions)
	}

	config := gen.configs[0]
	if config.ResponseMIMEType != "application/json" || config.MaxOutputTokens != 1000 || *config.Temperature != 0.5 {
		t.Errorf("Unexpected quiz config %+v", config)
	}
}

func TestGeminiTutor_GenerateQuizUnparseable(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"Here are some questions!"}}

	questions, err := newTestTutor(t, gen).GenerateQuiz(context.Background(), "text", 3)
	if err != nil {
		t.Fatalf("Expected degraded result, got %v", err)
	}
	if len(questions) != 0 {
		t.Errorf("Expected empty quiz, got %+v", questions)
	}
	if gen.calls != 1 {
		t.Errorf("Parse failures are not retried, got %d calls", gen.calls)
	}
}

func TestParseQuiz(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		n       int
		want    int
		wantErr bool
	}{
		{"plain", `[{"question":"Q","options":["A"],"correct_answer":"A"}]`, 3, 1, false},
		{"fenced", "```json\n[{\"question\":\"Q\",\"options\":[\"A\"],\"correct_answer\":\"A\"}]\n```", 3, 1, false},
		{"drops incomplete", `[{"question":"","options":["A"]},{"question":"Q","options":[]}]`, 3, 0, false},
		{"not json", "no", 3, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuiz(tt.raw, tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("got %d questions, want %d", len(got), tt.want)
			}
		})
	}
}

func TestMockTutor(t *testing.T) {
	tutor := NewMockTutor()
	ctx := context.Background()

	questions, _ := tutor.GenerateQuiz(ctx, "text", 4)
	if len(questions) != 4 {
		t.Errorf("Expected 4 questions, got %d", len(questions))
	}
	for _, q := range questions {
		found := false
		for _, o := range q.Options {
			if o == q.CorrectAnswer {
				found = true
			}
		}
		if !found {
			t.Errorf("Correct answer %q not among options %v", q.CorrectAnswer, q.Options)
		}
	}

	summary, _ := tutor.Summarize(ctx, "cells divide by mitosis")
	if !strings.Contains(summary, "mitosis") {
		t.Errorf("Unexpected summary %q", summary)
	}
}

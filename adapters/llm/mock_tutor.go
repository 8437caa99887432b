package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/echolearn/server/domain/repositories"
)

// MockTutor is a deterministic Tutor used when no API key is configured
type MockTutor struct{}

// NewMockTutor creates a new mock tutor
func NewMockTutor() repositories.Tutor {
	return &MockTutor{}
}

// Summarize implements repositories.Tutor
func (m *MockTutor) Summarize(ctx context.Context, text string) (string, error) {
	words := strings.Fields(text)
	if len(words) > 20 {
		words = words[:20]
	}
	return "• Key points: " + strings.Join(words, " "), nil
}

// GenerateQuiz implements repositories.Tutor
func (m *MockTutor) GenerateQuiz(ctx context.Context, text string, n int) ([]repositories.QuizQuestion, error) {
	questions := make([]repositories.QuizQuestion, 0, n)
	for i := 1; i <= n; i++ {
		questions = append(questions, repositories.QuizQuestion{
			Question:      fmt.Sprintf("Question %d: What is the main idea of the lecture?", i),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: "A",
			Explanation:   "The lecture focuses on option A.",
		})
	}
	return questions, nil
}

// Clarify implements repositories.Tutor
func (m *MockTutor) Clarify(ctx context.Context, concept, lectureContext string) (string, error) {
	if lectureContext == "" {
		return fmt.Sprintf("'%s' explained in simple terms.", concept), nil
	}
	return fmt.Sprintf("'%s' explained in simple terms, using the lecture as context.", concept), nil
}

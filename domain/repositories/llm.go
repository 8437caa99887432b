package repositories

import "context"

// Tutor abstracts the LLM provider used to produce learning material
type Tutor interface {
	// Summarize returns a simplified summary of lecture text
	Summarize(ctx context.Context, text string) (string, error)
	// GenerateQuiz returns up to n multiple-choice questions about the text
	GenerateQuiz(ctx context.Context, text string, n int) ([]QuizQuestion, error)
	// Clarify explains a concept, optionally using lecture text as context
	Clarify(ctx context.Context, concept, context string) (string, error)
}

// QuizQuestion is a question as produced by the tutor, before it is persisted
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/echolearn/server/domain/repositories"
)

const (
	summaryPrompt = "You are an AI tutor helping deaf and hard-of-hearing students. " +
		"Summarize the following lecture content in clear, simple language. " +
		"Focus on key concepts and main ideas. Use bullet points for better readability."

	quizPrompt = "You are creating accessible quiz questions for deaf and hard-of-hearing students. " +
		"Generate multiple choice questions based on the lecture content. " +
		"Each question should test understanding of key concepts. " +
		`Return your response as a JSON array with this format: ` +
		`[{"question": "Question text?", "options": ["A", "B", "C", "D"], "correct_answer": "A", "explanation": "Why this is correct"}]`

	clarifyPrompt = "You are an AI tutor helping students understand concepts. " +
		"Provide clear, visual explanations that would be helpful for deaf and hard-of-hearing learners. " +
		"Use examples and analogies when possible."

	// Returned instead of an error when the model is unavailable
	FallbackSummary       = "Unable to generate summary at this time."
	FallbackClarification = "Unable to provide clarification at this time."
)

// Summarize implements repositories.Tutor
func (g *GeminiTutor) Summarize(ctx context.Context, text string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(summaryPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.3),
		MaxOutputTokens:   500,
	}

	summary, err := g.generate(ctx, "summarize", "Please summarize this lecture content: "+text, config)
	recordOutcome("summarize", err)
	if err != nil {
		g.logger.Error("Failed to generate summary", zap.Error(err))
		return FallbackSummary, nil
	}
	return strings.TrimSpace(summary), nil
}

// GenerateQuiz implements repositories.Tutor. A reply that cannot be parsed
// yields an empty quiz.
func (g *GeminiTutor) GenerateQuiz(ctx context.Context, text string, n int) ([]repositories.QuizQuestion, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(quizPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.5),
		MaxOutputTokens:   1000,
		ResponseMIMEType:  "application/json",
	}

	prompt := fmt.Sprintf("Create %d quiz questions from this content: %s", n, text)
	raw, err := g.generate(ctx, "quiz", prompt, config)
	if err == nil {
		var questions []repositories.QuizQuestion
		questions, err = ParseQuiz(raw, n)
		if err == nil {
			recordOutcome("quiz", nil)
			return questions, nil
		}
	}

	recordOutcome("quiz", err)
	g.logger.Error("Failed to generate quiz", zap.Error(err))
	return []repositories.QuizQuestion{}, nil
}

// Clarify implements repositories.Tutor
func (g *GeminiTutor) Clarify(ctx context.Context, concept, lectureContext string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(clarifyPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.3),
		MaxOutputTokens:   300,
	}

	prompt := fmt.Sprintf("Please explain this concept in simple terms: '%s'. Context: %s", concept, lectureContext)
	explanation, err := g.generate(ctx, "clarify", prompt, config)
	recordOutcome("clarify", err)
	if err != nil {
		g.logger.Error("Failed to generate clarification", zap.String("concept", concept), zap.Error(err))
		return FallbackClarification, nil
	}
	return strings.TrimSpace(explanation), nil
}

// ParseQuiz decodes a model reply into at most n questions. Markdown code
// fences around the JSON are tolerated; questions without text or options
// are dropped.
func ParseQuiz(raw string, n int) ([]repositories.QuizQuestion, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var parsed []repositories.QuizQuestion
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse quiz JSON: %w", err)
	}

	questions := make([]repositories.QuizQuestion, 0, len(parsed))
	for _, q := range parsed {
		if strings.TrimSpace(q.Question) == "" || len(q.Options) == 0 {
			continue
		}
		questions = append(questions, q)
		if n > 0 && len(questions) == n {
			break
		}
	}
	return questions, nil
}

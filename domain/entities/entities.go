package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Quiz is a single multiple-choice question generated from a session
type Quiz struct {
	ID            string    `json:"id" bson:"_id" db:"id"`
	SessionID     string    `json:"session_id" bson:"session_id" db:"session_id"`
	Question      string    `json:"question" bson:"question" db:"question"`
	Options       []string  `json:"options" bson:"options" db:"-"`
	CorrectAnswer string    `json:"correct_answer" bson:"correct_answer" db:"correct_answer"`
	Explanation   string    `json:"explanation" bson:"explanation" db:"explanation"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

// UserProgress records one answer to a quiz question
type UserProgress struct {
	ID         string    `json:"id" bson:"_id" db:"id"`
	SessionID  string    `json:"session_id" bson:"session_id" db:"session_id"`
	QuizID     string    `json:"quiz_id" bson:"quiz_id" db:"quiz_id"`
	UserAnswer string    `json:"user_answer" bson:"user_answer" db:"user_answer"`
	IsCorrect  bool      `json:"is_correct" bson:"is_correct" db:"is_correct"`
	TimeTaken  float64   `json:"time_taken" bson:"time_taken" db:"time_taken"` // in seconds
	CreatedAt  time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

// ProgressReport aggregates answers for a session
type ProgressReport struct {
	SessionID       string         `json:"session_id"`
	TotalQuestions  int            `json:"total_questions"`
	CorrectAnswers  int            `json:"correct_answers"`
	Accuracy        float64        `json:"accuracy"` // percent
	AverageTime     float64        `json:"average_time"`
	ProgressDetails []UserProgress `json:"progress_details"`
}

// NewQuiz creates a quiz question bound to a session
func NewQuiz(sessionID, question string, options []string, correctAnswer, explanation string) *Quiz {
	return &Quiz{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Question:      question,
		Options:       options,
		CorrectAnswer: correctAnswer,
		Explanation:   explanation,
		CreatedAt:     time.Now().UTC(),
	}
}

// Answer grades an answer against the quiz and returns the progress record.
// Grading is an exact string comparison.
func (q *Quiz) Answer(userAnswer string, timeTaken float64) *UserProgress {
	return &UserProgress{
		ID:         uuid.NewString(),
		SessionID:  q.SessionID,
		QuizID:     q.ID,
		UserAnswer: userAnswer,
		IsCorrect:  userAnswer == q.CorrectAnswer,
		TimeTaken:  timeTaken,
		CreatedAt:  time.Now().UTC(),
	}
}

// NewProgressReport computes accuracy and average answer time
func NewProgressReport(sessionID string, progress []UserProgress) ProgressReport {
	report := ProgressReport{
		SessionID:       sessionID,
		TotalQuestions:  len(progress),
		ProgressDetails: progress,
	}
	if report.ProgressDetails == nil {
		report.ProgressDetails = []UserProgress{}
	}
	if len(progress) == 0 {
		return report
	}

	var totalTime float64
	for _, p := range progress {
		if p.IsCorrect {
			report.CorrectAnswers++
		}
		totalTime += p.TimeTaken
	}
	report.Accuracy = float64(report.CorrectAnswers) / float64(report.TotalQuestions) * 100
	report.AverageTime = totalTime / float64(report.TotalQuestions)
	return report
}

// Domain validation methods
func (q *Quiz) Validate() error {
	if q.SessionID == "" {
		return errors.New("session_id is required")
	}
	if q.Question == "" {
		return errors.New("question is required")
	}
	if len(q.Options) == 0 {
		return errors.New("options are required")
	}
	return nil
}

func (p *UserProgress) Validate() error {
	if p.QuizID == "" {
		return errors.New("quiz_id is required")
	}
	if p.TimeTaken < 0 {
		return errors.New("time_taken cannot be negative")
	}
	return nil
}

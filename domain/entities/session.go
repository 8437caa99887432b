package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTitle is used when a session is created without a title
const DefaultSessionTitle = "New Learning Session"

// LearningSession represents one recorded lecture and everything derived from it
type LearningSession struct {
	ID               string             `json:"id" bson:"_id" db:"id"`
	Title            string             `json:"title" bson:"title" db:"title"`
	Transcription    string             `json:"transcription" bson:"transcription" db:"transcription"`
	Summary          string             `json:"summary" bson:"summary" db:"summary"`
	SignLanguageData *TranslationResult `json:"sign_language_data,omitempty" bson:"sign_language_data,omitempty" db:"-"`
	Duration         float64            `json:"duration" bson:"duration" db:"duration"` // in seconds
	CreatedAt        time.Time          `json:"created_at" bson:"created_at" db:"created_at"`
}

// NewLearningSession creates a new session with a fresh ID
func NewLearningSession(title string) *LearningSession {
	if strings.TrimSpace(title) == "" {
		title = DefaultSessionTitle
	}
	return &LearningSession{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
}

// HasTranscription reports whether the session has any transcribed text
func (s *LearningSession) HasTranscription() bool {
	return strings.TrimSpace(s.Transcription) != ""
}

// ApplyTranscription stores a transcription and its sign translation
func (s *LearningSession) ApplyTranscription(transcription string, signs *TranslationResult) {
	s.Transcription = transcription
	s.SignLanguageData = signs
}

// Validate validates the session data
func (s *LearningSession) Validate() error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(s.Title) == "" {
		return errors.New("title is required")
	}
	if s.Duration < 0 {
		return errors.New("duration cannot be negative")
	}
	return nil
}

package repositories

import (
	"context"
	"errors"

	"github.com/echolearn/server/domain/entities"
)

// ErrNotFound is returned by every storage backend when a record does not exist
var ErrNotFound = errors.New("record not found")

// SessionRepository defines data access methods for learning sessions
type SessionRepository interface {
	Create(ctx context.Context, session *entities.LearningSession) error
	GetByID(ctx context.Context, id string) (*entities.LearningSession, error)
	// List returns all sessions, most recent first
	List(ctx context.Context) ([]*entities.LearningSession, error)
	Update(ctx context.Context, session *entities.LearningSession) error
}

// QuizRepository defines data access methods for quiz questions
type QuizRepository interface {
	Create(ctx context.Context, quiz *entities.Quiz) error
	GetByID(ctx context.Context, id string) (*entities.Quiz, error)
	ListBySession(ctx context.Context, sessionID string) ([]*entities.Quiz, error)
}

// ProgressRepository defines data access methods for quiz answers
type ProgressRepository interface {
	Create(ctx context.Context, progress *entities.UserProgress) error
	ListBySession(ctx context.Context, sessionID string) ([]*entities.UserProgress, error)
}

// Store bundles the repositories of one storage backend
type Store struct {
	Sessions SessionRepository
	Quizzes  QuizRepository
	Progress ProgressRepository
	Close    func(ctx context.Context) error
}

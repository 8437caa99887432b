// Package memory provides mutex-guarded in-memory repositories. Data lives
// only for the lifetime of the process.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/echolearn/server/domain/entities"
	"github.com/echolearn/server/domain/repositories"
)

// NewStore creates an empty in-memory store
func NewStore() repositories.Store {
	return repositories.Store{
		Sessions: NewSessionRepository(),
		Quizzes:  NewQuizRepository(),
		Progress: NewProgressRepository(),
		Close:    func(context.Context) error { return nil },
	}
}

// SessionRepository is an in-memory implementation of repositories.SessionRepository
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.LearningSession
}

// NewSessionRepository creates a new in-memory session repository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*entities.LearningSession)}
}

// Create implements repositories.SessionRepository
func (r *SessionRepository) Create(ctx context.Context, session *entities.LearningSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if err := session.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	r.sessions[session.ID] = copySession(session)
	return nil
}

// GetByID implements repositories.SessionRepository
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entities.LearningSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return copySession(session), nil
}

// List implements repositories.SessionRepository
func (r *SessionRepository) List(ctx context.Context) ([]*entities.LearningSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.LearningSession, 0, len(r.sessions))
	for _, session := range r.sessions {
		result = append(result, copySession(session))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Update implements repositories.SessionRepository
func (r *SessionRepository) Update(ctx context.Context, session *entities.LearningSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.sessions[session.ID]
	if !exists {
		return repositories.ErrNotFound
	}

	updated := copySession(session)
	updated.CreatedAt = existing.CreatedAt
	r.sessions[session.ID] = updated
	return nil
}

// copySession returns a copy that shares no mutable state with s
func copySession(s *entities.LearningSession) *entities.LearningSession {
	c := *s
	if s.SignLanguageData != nil {
		data := *s.SignLanguageData
		data.Signs = append([]entities.SignToken(nil), s.SignLanguageData.Signs...)
		data.AvatarInstructions = append([]entities.AvatarInstruction(nil), s.SignLanguageData.AvatarInstructions...)
		c.SignLanguageData = &data
	}
	return &c
}

// QuizRepository is an in-memory implementation of repositories.QuizRepository
type QuizRepository struct {
	mu        sync.RWMutex
	quizzes   map[string]*entities.Quiz
	bySession map[string][]string // session_id -> quiz ids in insertion order
}

// NewQuizRepository creates a new in-memory quiz repository
func NewQuizRepository() *QuizRepository {
	return &QuizRepository{
		quizzes:   make(map[string]*entities.Quiz),
		bySession: make(map[string][]string),
	}
}

// Create implements repositories.QuizRepository
func (r *QuizRepository) Create(ctx context.Context, quiz *entities.Quiz) error {
	if quiz == nil {
		return errors.New("quiz cannot be nil")
	}
	if err := quiz.Validate(); err != nil {
		return err
	}
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.quizzes[quiz.ID]; exists {
		return fmt.Errorf("quiz %s already exists", quiz.ID)
	}
	r.quizzes[quiz.ID] = copyQuiz(quiz)
	r.bySession[quiz.SessionID] = append(r.bySession[quiz.SessionID], quiz.ID)
	return nil
}

// GetByID implements repositories.QuizRepository
func (r *QuizRepository) GetByID(ctx context.Context, id string) (*entities.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	quiz, exists := r.quizzes[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return copyQuiz(quiz), nil
}

// ListBySession implements repositories.QuizRepository
func (r *QuizRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.bySession[sessionID]
	result := make([]*entities.Quiz, 0, len(ids))
	for _, id := range ids {
		result = append(result, copyQuiz(r.quizzes[id]))
	}
	return result, nil
}

func copyQuiz(q *entities.Quiz) *entities.Quiz {
	c := *q
	c.Options = append([]string(nil), q.Options...)
	return &c
}

// ProgressRepository is an in-memory implementation of repositories.ProgressRepository
type ProgressRepository struct {
	mu        sync.RWMutex
	bySession map[string][]entities.UserProgress
}

// NewProgressRepository creates a new in-memory progress repository
func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{bySession: make(map[string][]entities.UserProgress)}
}

// Create implements repositories.ProgressRepository
func (r *ProgressRepository) Create(ctx context.Context, progress *entities.UserProgress) error {
	if progress == nil {
		return errors.New("progress cannot be nil")
	}
	if err := progress.Validate(); err != nil {
		return err
	}
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	if progress.CreatedAt.IsZero() {
		progress.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.bySession[progress.SessionID] = append(r.bySession[progress.SessionID], *progress)
	return nil
}

// ListBySession implements repositories.ProgressRepository
func (r *ProgressRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.UserProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.bySession[sessionID]
	result := make([]*entities.UserProgress, 0, len(records))
	for i := range records {
		record := records[i]
		result = append(result, &record)
	}
	return result, nil
}

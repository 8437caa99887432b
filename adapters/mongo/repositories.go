package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/echolearn/server/domain/entities"
	"github.com/echolearn/server/domain/repositories"
)

// SessionRepository implements repositories.SessionRepository on MongoDB
type SessionRepository struct {
	collection *mongo.Collection
}

// NewSessionRepository creates a new MongoDB session repository
func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{collection: db.Collection(sessionsCollection)}
}

var _ repositories.SessionRepository = (*SessionRepository)(nil)

// Create implements repositories.SessionRepository
func (r *SessionRepository) Create(ctx context.Context, session *entities.LearningSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if err := session.Validate(); err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID implements repositories.SessionRepository
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entities.LearningSession, error) {
	var session entities.LearningSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return &session, nil
}

// List implements repositories.SessionRepository
func (r *SessionRepository) List(ctx context.Context) ([]*entities.LearningSession, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []*entities.LearningSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// Update implements repositories.SessionRepository
func (r *SessionRepository) Update(ctx context.Context, session *entities.LearningSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	update := bson.M{
		"$set": bson.M{
			"title":              session.Title,
			"transcription":      session.Transcription,
			"summary":            session.Summary,
			"sign_language_data": session.SignLanguageData,
			"duration":           session.Duration,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": session.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// QuizRepository implements repositories.QuizRepository on MongoDB
type QuizRepository struct {
	collection *mongo.Collection
}

// NewQuizRepository creates a new MongoDB quiz repository
func NewQuizRepository(db *mongo.Database) *QuizRepository {
	return &QuizRepository{collection: db.Collection(quizzesCollection)}
}

var _ repositories.QuizRepository = (*QuizRepository)(nil)

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

	if _, err := r.collection.InsertOne(ctx, quiz); err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}
	return nil
}

// GetByID implements repositories.QuizRepository
func (r *QuizRepository) GetByID(ctx context.Context, id string) (*entities.Quiz, error) {
	var quiz entities.Quiz
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&quiz)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz %s: %w", id, err)
	}
	return &quiz, nil
}

// ListBySession implements repositories.QuizRepository
func (r *QuizRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.Quiz, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	defer cursor.Close(ctx)

	quizzes := []*entities.Quiz{}
	if err := cursor.All(ctx, &quizzes); err != nil {
		return nil, fmt.Errorf("failed to decode quizzes: %w", err)
	}
	return quizzes, nil
}

// ProgressRepository implements repositories.ProgressRepository on MongoDB
type ProgressRepository struct {
	collection *mongo.Collection
}

// NewProgressRepository creates a new MongoDB progress repository
func NewProgressRepository(db *mongo.Database) *ProgressRepository {
	return &ProgressRepository{collection: db.Collection(progressCollection)}
}

var _ repositories.ProgressRepository = (*ProgressRepository)(nil)

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

	if _, err := r.collection.InsertOne(ctx, progress); err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}
	return nil
}

// ListBySession implements repositories.ProgressRepository
func (r *ProgressRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.UserProgress, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer cursor.Close(ctx)

	progress := []*entities.UserProgress{}
	if err := cursor.All(ctx, &progress); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return progress, nil
}

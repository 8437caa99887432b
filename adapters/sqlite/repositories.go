package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/echolearn/server/domain/entities"
	"github.com/echolearn/server/domain/repositories"
)

type sessionRow struct {
	ID               string         `db:"id"`
	Title            string         `db:"title"`
	Transcription    string         `db:"transcription"`
	Summary          string         `db:"summary"`
	SignLanguageData sql.NullString `db:"sign_language_data"`
	Duration         float64        `db:"duration"`
	CreatedAt        time.Time      `db:"created_at"`
}

func toSessionRow(s *entities.LearningSession) (sessionRow, error) {
	row := sessionRow{
		ID:            s.ID,
		Title:         s.Title,
		Transcription: s.Transcription,
		Summary:       s.Summary,
		Duration:      s.Duration,
		CreatedAt:     s.CreatedAt.UTC(),
	}
	if s.SignLanguageData != nil {
		data, err := json.Marshal(s.SignLanguageData)
		if err != nil {
			return row, fmt.Errorf("failed to encode sign language data: %w", err)
		}
		row.SignLanguageData = sql.NullString{String: string(data), Valid: true}
	}
	return row, nil
}

func (row sessionRow) entity() (*entities.LearningSession, error) {
	session := &entities.LearningSession{
		ID:            row.ID,
		Title:         row.Title,
		Transcription: row.Transcription,
		Summary:       row.Summary,
		Duration:      row.Duration,
		CreatedAt:     row.CreatedAt,
	}
	if row.SignLanguageData.Valid && row.SignLanguageData.String != "" {
		var data entities.TranslationResult
		if err := json.Unmarshal([]byte(row.SignLanguageData.String), &data); err != nil {
			return nil, fmt.Errorf("failed to decode sign language data for session %s: %w", row.ID, err)
		}
		session.SignLanguageData = &data
	}
	return session, nil
}

// SessionRepository implements repositories.SessionRepository on SQLite
type SessionRepository struct {
	db *sqlx.DB
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

	row, err := toSessionRow(session)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO learning_sessions (id, title, transcription, summary, sign_language_data, duration, created_at)
		VALUES (:id, :title, :transcription, :summary, :sign_language_data, :duration, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID implements repositories.SessionRepository
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entities.LearningSession, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM learning_sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return row.entity()
}

// List implements repositories.SessionRepository
func (r *SessionRepository) List(ctx context.Context) ([]*entities.LearningSession, error) {
	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM learning_sessions ORDER BY created_at DESC, rowid DESC`); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]*entities.LearningSession, 0, len(rows))
	for _, row := range rows {
		session, err := row.entity()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Update implements repositories.SessionRepository. created_at is never changed.
func (r *SessionRepository) Update(ctx context.Context, session *entities.LearningSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	row, err := toSessionRow(session)
	if err != nil {
		return err
	}
	result, err := r.db.NamedExecContext(ctx, `
		UPDATE learning_sessions
		SET title = :title, transcription = :transcription, summary = :summary,
			sign_language_data = :sign_language_data, duration = :duration
		WHERE id = :id`, row)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

type quizRow struct {
	ID            string    `db:"id"`
	SessionID     string    `db:"session_id"`
	Question      string    `db:"question"`
	Options       string    `db:"options"`
	CorrectAnswer string    `db:"correct_answer"`
	Explanation   string    `db:"explanation"`
	CreatedAt     time.Time `db:"created_at"`
}

func (row quizRow) entity() (*entities.Quiz, error) {
	quiz := &entities.Quiz{
		ID:            row.ID,
		SessionID:     row.SessionID,
		Question:      row.Question,
		CorrectAnswer: row.CorrectAnswer,
		Explanation:   row.Explanation,
		CreatedAt:     row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.Options), &quiz.Options); err != nil {
		return nil, fmt.Errorf("failed to decode options for quiz %s: %w", row.ID, err)
	}
	return quiz, nil
}

// QuizRepository implements repositories.QuizRepository on SQLite
type QuizRepository struct {
	db *sqlx.DB
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

	options, err := json.Marshal(quiz.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO quizzes (id, session_id, question, options, correct_answer, explanation, created_at)
		VALUES (:id, :session_id, :question, :options, :correct_answer, :explanation, :created_at)`,
		quizRow{
			ID:            quiz.ID,
			SessionID:     quiz.SessionID,
			Question:      quiz.Question,
			Options:       string(options),
			CorrectAnswer: quiz.CorrectAnswer,
			Explanation:   quiz.Explanation,
			CreatedAt:     quiz.CreatedAt.UTC(),
		})
	if err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}
	return nil
}

// GetByID implements repositories.QuizRepository
func (r *QuizRepository) GetByID(ctx context.Context, id string) (*entities.Quiz, error) {
	var row quizRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM quizzes WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz %s: %w", id, err)
	}
	return row.entity()
}

// ListBySession implements repositories.QuizRepository
func (r *QuizRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.Quiz, error) {
	var rows []quizRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM quizzes WHERE session_id = ? ORDER BY rowid`, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	quizzes := make([]*entities.Quiz, 0, len(rows))
	for _, row := range rows {
		quiz, err := row.entity()
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, nil
}

// ProgressRepository implements repositories.ProgressRepository on SQLite
type ProgressRepository struct {
	db *sqlx.DB
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

	record := *progress
	record.CreatedAt = progress.CreatedAt.UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO user_progress (id, session_id, quiz_id, user_answer, is_correct, time_taken, created_at)
		VALUES (:id, :session_id, :quiz_id, :user_answer, :is_correct, :time_taken, :created_at)`, record)
	if err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}
	return nil
}

// ListBySession implements repositories.ProgressRepository
func (r *ProgressRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.UserProgress, error) {
	progress := []*entities.UserProgress{}
	if err := r.db.SelectContext(ctx, &progress, `SELECT * FROM user_progress WHERE session_id = ? ORDER BY rowid`, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return progress, nil
}

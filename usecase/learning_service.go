package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/echolearn/server/domain/entities"
	"github.com/echolearn/server/domain/repositories"
	"github.com/echolearn/server/internal/observability"
)

const (
	DefaultQuizQuestions = 3
	MaxQuizQuestions     = 10
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrQuizNotFound    = errors.New("quiz question not found")
	ErrNoTranscription = errors.New("no transcription found for this session")
	ErrInvalidInput    = errors.New("invalid input")
)

// TranscriptionResult is returned by Transcribe
type TranscriptionResult struct {
	Transcription  string                     `json:"transcription"`
	ASLTranslation entities.TranslationResult `json:"asl_translation"`
	SessionID      *string                    `json:"session_id"`
}

// SummaryResult is returned by Summarize
type SummaryResult struct {
	Summary   string `json:"summary"`
	SessionID string `json:"session_id"`
}

// QuizResult is returned by GenerateQuiz
type QuizResult struct {
	QuizQuestions []repositories.QuizQuestion `json:"quiz_questions"`
	QuizIDs       []string                    `json:"quiz_ids"`
	SessionID     string                      `json:"session_id"`
}

// AnswerResult is returned by SubmitAnswer
type AnswerResult struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	QuizID        string `json:"quiz_id"`
}

// ClarificationResult is returned by Clarify
type ClarificationResult struct {
	Clarification string `json:"clarification"`
	Concept       string `json:"concept"`
}

// LearningService orchestrates transcription, tutoring and sign translation
// for learning sessions
type LearningService struct {
	store        repositories.Store
	tutor        repositories.Tutor
	speechToText repositories.SpeechToText
	signs        repositories.SignTranslator
	language     string
	logger       *zap.Logger
}

// NewLearningService creates a new learning service
func NewLearningService(
	store repositories.Store,
	tutor repositories.Tutor,
	stt repositories.SpeechToText,
	signs repositories.SignTranslator,
	language string,
	logger *zap.Logger,
) *LearningService {
	return &LearningService{
		store:        store,
		tutor:        tutor,
		speechToText: stt,
		signs:        signs,
		language:     language,
		logger:       logger,
	}
}

// CreateSession creates a session; an empty title uses the default title
func (s *LearningService) CreateSession(ctx context.Context, title string) (*entities.LearningSession, error) {
	session := entities.NewLearningSession(title)
	if err := s.store.Sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("Learning session created",
		zap.String("sessionID", session.ID),
		zap.String("title", session.Title))
	return session, nil
}

// ListSessions returns all sessions, most recent first
func (s *LearningService) ListSessions(ctx context.Context) ([]*entities.LearningSession, error) {
	sessions, err := s.store.Sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns one session
func (s *LearningService) GetSession(ctx context.Context, id string) (*entities.LearningSession, error) {
	session, err := s.store.Sessions.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// Transcribe converts uploaded audio to text and sign language. A failed
// transcription yields an empty transcript rather than an error. When
// sessionID names an existing session its transcription and sign data are
// replaced; an unknown session is ignored.
func (s *LearningService) Transcribe(ctx context.Context, audio []byte, config repositories.AudioConfig, sessionID string) (*TranscriptionResult, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("audio file is empty: %w", ErrInvalidInput)
	}
	if config.Language == "" {
		config.Language = s.language
	}

	transcription, err := s.speechToText.TranscribeAudio(ctx, audio, config)
	if err != nil {
		observability.RecordTranscription("error")
		s.logger.Error("Transcription failed", zap.Int("audioSize", len(audio)), zap.Error(err))
		transcription = ""
	} else {
		observability.RecordTranscription("success")
	}

	translation, err := s.TranslateToSign(ctx, transcription)
	if err != nil {
		return nil, err
	}

	result := &TranscriptionResult{
		Transcription:  transcription,
		ASLTranslation: translation,
	}
	if sessionID == "" {
		return result, nil
	}
	result.SessionID = &sessionID

	session, err := s.store.Sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repositories.ErrNotFound) {
		s.logger.Warn("Transcription for unknown session", zap.String("sessionID", sessionID))
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session.ApplyTranscription(transcription, &translation)
	if err := s.store.Sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return result, nil
}

// OpenTranscriptionStream starts a streaming recognition session for live audio
func (s *LearningService) OpenTranscriptionStream(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	if config.Language == "" {
		config.Language = s.language
	}
	stream, err := s.speechToText.InitTranscribeStreaming(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to start transcription stream: %w", err)
	}
	return stream, nil
}

// AppendLiveTranscript records a transcript segment produced by a live
// stream. The segment's translation is returned; the session, when it
// exists, accumulates the text and stores the translation of the whole.
func (s *LearningService) AppendLiveTranscript(ctx context.Context, sessionID, segment string) (entities.TranslationResult, error) {
	translation, err := s.TranslateToSign(ctx, segment)
	if err != nil {
		return translation, err
	}
	observability.RecordTranscription("success")

	if sessionID == "" || strings.TrimSpace(segment) == "" {
		return translation, nil
	}

	session, err := s.store.Sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repositories.ErrNotFound) {
		return translation, nil
	}
	if err != nil {
		return translation, fmt.Errorf("failed to load session: %w", err)
	}

	full := strings.TrimSpace(session.Transcription + " " + segment)
	fullTranslation := translation
	if full != segment {
		if fullTranslation, err = s.TranslateToSign(ctx, full); err != nil {
			return translation, err
		}
	}
	session.ApplyTranscription(full, &fullTranslation)
	if err := s.store.Sessions.Update(ctx, session); err != nil {
		return translation, fmt.Errorf("failed to update session: %w", err)
	}
	return translation, nil
}

// Summarize generates and stores a summary of the session transcription
func (s *LearningService) Summarize(ctx context.Context, sessionID string) (*SummaryResult, error) {
	session, err := s.sessionWithTranscription(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary, err := s.tutor.Summarize(ctx, session.Transcription)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize: %w", err)
	}

	session.Summary = summary
	if err := s.store.Sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	return &SummaryResult{Summary: summary, SessionID: sessionID}, nil
}

// GenerateQuiz generates n questions (default 3, at most 10) from the
// session transcription and persists each of them
func (s *LearningService) GenerateQuiz(ctx context.Context, sessionID string, n int) (*QuizResult, error) {
	if n == 0 {
		n = DefaultQuizQuestions
	}
	if n < 1 || n > MaxQuizQuestions {
		return nil, fmt.Errorf("num_questions must be between 1 and %d: %w", MaxQuizQuestions, ErrInvalidInput)
	}

	session, err := s.sessionWithTranscription(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	questions, err := s.tutor.GenerateQuiz(ctx, session.Transcription, n)
	if err != nil {
		return nil, fmt.Errorf("failed to generate quiz: %w", err)
	}

	result := &QuizResult{
		QuizQuestions: make([]repositories.QuizQuestion, 0, len(questions)),
		QuizIDs:       make([]string, 0, len(questions)),
		SessionID:     sessionID,
	}
	for _, q := range questions {
		quiz := entities.NewQuiz(sessionID, q.Question, q.Options, q.CorrectAnswer, q.Explanation)
		if err := s.store.Quizzes.Create(ctx, quiz); err != nil {
			return nil, fmt.Errorf("failed to save quiz question: %w", err)
		}
		result.QuizQuestions = append(result.QuizQuestions, q)
		result.QuizIDs = append(result.QuizIDs, quiz.ID)
	}

	s.logger.Info("Quiz generated",
		zap.String("sessionID", sessionID),
		zap.Int("requested", n),
		zap.Int("generated", len(result.QuizIDs)))
	return result, nil
}

// SubmitAnswer grades an answer by exact string comparison and records it
func (s *LearningService) SubmitAnswer(ctx context.Context, quizID, answer string, timeTaken float64) (*AnswerResult, error) {
	if timeTaken < 0 {
		return nil, fmt.Errorf("time_taken cannot be negative: %w", ErrInvalidInput)
	}

	quiz, err := s.store.Quizzes.GetByID(ctx, quizID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("quiz %s: %w", quizID, ErrQuizNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	progress := quiz.Answer(answer, timeTaken)
	if err := s.store.Progress.Create(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	return &AnswerResult{
		IsCorrect:     progress.IsCorrect,
		CorrectAnswer: quiz.CorrectAnswer,
		Explanation:   quiz.Explanation,
		QuizID:        quiz.ID,
	}, nil
}

// ListQuiz returns the stored questions of a session
func (s *LearningService) ListQuiz(ctx context.Context, sessionID string) ([]*entities.Quiz, error) {
	quizzes, err := s.store.Quizzes.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz questions: %w", err)
	}
	return quizzes, nil
}

// Progress aggregates the recorded answers of a session
func (s *LearningService) Progress(ctx context.Context, sessionID string) (entities.ProgressReport, error) {
	records, err := s.store.Progress.ListBySession(ctx, sessionID)
	if err != nil {
		return entities.ProgressReport{}, fmt.Errorf("failed to list progress: %w", err)
	}

	details := make([]entities.UserProgress, 0, len(records))
	for _, r := range records {
		details = append(details, *r)
	}
	return entities.NewProgressReport(sessionID, details), nil
}

// Clarify explains a concept, using the session transcription as context
// when the session exists
func (s *LearningService) Clarify(ctx context.Context, concept, sessionID string) (*ClarificationResult, error) {
	if strings.TrimSpace(concept) == "" {
		return nil, fmt.Errorf("concept is required: %w", ErrInvalidInput)
	}

	var lectureContext string
	if sessionID != "" {
		session, err := s.store.Sessions.GetByID(ctx, sessionID)
		switch {
		case err == nil:
			lectureContext = session.Transcription
		case !errors.Is(err, repositories.ErrNotFound):
			s.logger.Warn("Failed to load clarification context", zap.String("sessionID", sessionID), zap.Error(err))
		}
	}

	clarification, err := s.tutor.Clarify(ctx, concept, lectureContext)
	if err != nil {
		return nil, fmt.Errorf("failed to clarify: %w", err)
	}
	return &ClarificationResult{Clarification: clarification, Concept: concept}, nil
}

// TranslateToSign translates text through the configured provider chain
func (s *LearningService) TranslateToSign(ctx context.Context, text string) (entities.TranslationResult, error) {
	result, err := s.signs.Translate(ctx, text)
	if err != nil {
		return entities.TranslationResult{}, fmt.Errorf("sign translation failed: %w", err)
	}
	return result, nil
}

func (s *LearningService) sessionWithTranscription(ctx context.Context, sessionID string) (*entities.LearningSession, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasTranscription() {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNoTranscription)
	}
	return session, nil
}

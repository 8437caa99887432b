package api

import (
	"time"

	"github.com/echolearn/server/domain/entities"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WelcomeResponse is served at the root path
type WelcomeResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// HealthResponse is served by the health check
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateSessionRequest represents the request payload for creating a session
type CreateSessionRequest struct {
	Title string `query:"title" form:"title" json:"title"`
}

// CreateSessionResponse represents the response payload for creating a session
type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionListResponse lists sessions, newest first
type SessionListResponse struct {
	Sessions []*entities.LearningSession `json:"sessions"`
}

// SessionRequest carries only a session ID
type SessionRequest struct {
	SessionID string `query:"session_id" form:"session_id" json:"session_id"`
}

// GenerateQuizRequest represents the request payload for quiz generation
type GenerateQuizRequest struct {
	SessionID    string `query:"session_id" form:"session_id" json:"session_id"`
	NumQuestions int    `query:"num_questions" form:"num_questions" json:"num_questions"`
}

// AnswerRequest represents the request payload for submitting an answer
type AnswerRequest struct {
	QuizID     string  `query:"quiz_id" form:"quiz_id" json:"quiz_id"`
	UserAnswer string  `query:"user_answer" form:"user_answer" json:"user_answer"`
	TimeTaken  float64 `query:"time_taken" form:"time_taken" json:"time_taken"`
}

// QuizListResponse lists the stored questions of a session
type QuizListResponse struct {
	QuizQuestions []*entities.Quiz `json:"quiz_questions"`
	SessionID     string           `json:"session_id"`
}

// ClarifyRequest represents the request payload for a clarification
type ClarifyRequest struct {
	Concept   string `query:"concept" form:"concept" json:"concept"`
	SessionID string `query:"session_id" form:"session_id" json:"session_id"`
}

// TranslateRequest represents the request payload for a sign translation
type TranslateRequest struct {
	Text string `query:"text" form:"text" json:"text"`
}

// VideoResponse points at the demonstration video for a gesture
type VideoResponse struct {
	Gesture  string `json:"gesture"`
	VideoURL string `json:"video_url"`
}

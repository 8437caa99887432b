package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/echolearn/server/adapters/llm"
	"github.com/echolearn/server/adapters/memory"
	"github.com/echolearn/server/adapters/stt"
	"github.com/echolearn/server/internal/auth"
	"github.com/echolearn/server/internal/signlang"
	"github.com/echolearn/server/internal/websocket"
	"github.com/echolearn/server/usecase"
)

func newTestServer(t *testing.T, secret string) *echo.Echo {
	t.Helper()

	logger := zap.NewNop()
	service := usecase.NewLearningService(
		memory.NewStore(),
		llm.NewMockTutor(),
		stt.NewMockSpeechToText(logger),
		signlang.WithFallback(nil, nil, nil, logger),
		"en-US",
		logger,
	)
	hub := websocket.NewHub(service, nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	return NewServer(service, hub, auth.NewTokenManager(secret), Options{
		CORSOrigins:    []string{"http://localhost:3000"},
		MetricsEnabled: true,
	}, logger)
}

func do(t *testing.T, e *echo.Echo, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode %q: %v", rec.Body.String(), err)
	}
}

func audioUpload(t *testing.T, contentType string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="lecture.wav"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart failed: %v", err)
	}
	part.Write([]byte("RIFF fake wave data"))

	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func createSession(t *testing.T, e *echo.Echo, title string) string {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/sessions/?title="+url.QueryEscape(title), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("create session: status %d: %s", rec.Code, rec.Body.String())
	}
	var resp CreateSessionResponse
	decode(t, rec, &resp)
	return resp.SessionID
}

func transcribe(t *testing.T, e *echo.Echo, sessionID string) {
	t.Helper()
	body, ct := audioUpload(t, "audio/wav", map[string]string{"session_id": sessionID})
	if rec := do(t, e, http.MethodPost, "/transcribe/", body, ct); rec.Code != http.StatusOK {
		t.Fatalf("transcribe: status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRootAndHealth(t *testing.T) {
	e := newTestServer(t, "")

	rec := do(t, e, http.MethodGet, "/", nil, "")
	var welcome WelcomeResponse
	decode(t, rec, &welcome)
	if welcome.Message != "Welcome to EchoLearn API" || welcome.Status != "running" {
		t.Errorf("Unexpected welcome %+v", welcome)
	}

	rec = do(t, e, http.MethodGet, "/health", nil, "")
	var health HealthResponse
	decode(t, rec, &health)
	if rec.Code != http.StatusOK || health.Status != "healthy" || health.Timestamp.IsZero() {
		t.Errorf("Unexpected health %d %+v", rec.Code, health)
	}
}

func TestSessions(t *testing.T) {
	e := newTestServer(t, "")

	t.Run("DefaultTitle", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/sessions/", nil, "")
		var resp CreateSessionResponse
		decode(t, rec, &resp)
		if resp.Title != "New Learning Session" || resp.SessionID == "" {
			t.Errorf("Unexpected response %+v", resp)
		}
	})

	t.Run("FormTitle", func(t *testing.T) {
		form := url.Values{"title": {"Biology 101"}}
		rec := do(t, e, http.MethodPost, "/sessions/", bytes.NewBufferString(form.Encode()), echo.MIMEApplicationForm)
		var resp CreateSessionResponse
		decode(t, rec, &resp)
		if resp.Title != "Biology 101" {
			t.Errorf("Title = %q", resp.Title)
		}
	})

	t.Run("ListAndGet", func(t *testing.T) {
		id := createSession(t, e, "Chemistry")

		rec := do(t, e, http.MethodGet, "/sessions/", nil, "")
		var list SessionListResponse
		decode(t, rec, &list)
		if len(list.Sessions) != 3 {
			t.Fatalf("Expected 3 sessions, got %d", len(list.Sessions))
		}
		if list.Sessions[0].ID != id {
			t.Errorf("Expected newest session first")
		}

		rec = do(t, e, http.MethodGet, "/sessions/"+id, nil, "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Chemistry") {
			t.Errorf("get session: %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/sessions/missing", nil, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", rec.Code)
		}
		var resp ErrorResponse
		decode(t, rec, &resp)
		if resp.Error != "session_not_found" || resp.Message != "Session not found" {
			t.Errorf("Unexpected error body %+v", resp)
		}
	})
}

func TestTranscribe(t *testing.T) {
	e := newTestServer(t, "")
	id := createSession(t, e, "Lecture")

	t.Run("UpdatesSession", func(t *testing.T) {
		body, ct := audioUpload(t, "audio/wav", map[string]string{"session_id": id})
		rec := do(t, e, http.MethodPost, "/transcribe/", body, ct)
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		var resp usecase.TranscriptionResult
		decode(t, rec, &resp)
		if resp.Transcription != stt.MockTranscript {
			t.Errorf("Transcription = %q", resp.Transcription)
		}
		if resp.SessionID == nil || *resp.SessionID != id {
			t.Errorf("SessionID = %v", resp.SessionID)
		}
		if len(resp.ASLTranslation.Signs) == 0 {
			t.Error("Expected sign translation")
		}

		rec = do(t, e, http.MethodGet, "/sessions/"+id, nil, "")
		if !strings.Contains(rec.Body.String(), "photosynthesis") {
			t.Errorf("Session not updated: %s", rec.Body.String())
		}
	})

	t.Run("WithoutSession", func(t *testing.T) {
		body, ct := audioUpload(t, "audio/flac", nil)
		rec := do(t, e, http.MethodPost, "/transcribe/", body, ct)
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"session_id":null`) {
			t.Errorf("Expected null session_id, got %s", rec.Body.String())
		}
	})

	t.Run("RejectsNonAudio", func(t *testing.T) {
		body, ct := audioUpload(t, "text/plain", nil)
		rec := do(t, e, http.MethodPost, "/transcribe/", body, ct)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", rec.Code)
		}
		var resp ErrorResponse
		decode(t, rec, &resp)
		if resp.Message != "File must be an audio file" {
			t.Errorf("Message = %q", resp.Message)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/transcribe/", nil, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}

func TestSummarize(t *testing.T) {
	e := newTestServer(t, "")
	id := createSession(t, e, "Lecture")

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantError  string
	}{
		{"missing id", "/summarize/", http.StatusBadRequest, "invalid_request"},
		{"unknown session", "/summarize/?session_id=missing", http.StatusNotFound, "session_not_found"},
		{"no transcription", "/summarize/?session_id=" + id, http.StatusBadRequest, "no_transcription"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, http.MethodPost, tt.target, nil, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			decode(t, rec, &resp)
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
		})
	}

	transcribe(t, e, id)

	body := bytes.NewBufferString(`{"session_id": "` + id + `"}`)
	rec := do(t, e, http.MethodPost, "/summarize/", body, echo.MIMEApplicationJSON)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp usecase.SummaryResult
	decode(t, rec, &resp)
	if !strings.HasPrefix(resp.Summary, "• Key points:") || resp.SessionID != id {
		t.Errorf("Unexpected summary %+v", resp)
	}
}

func TestQuizFlow(t *testing.T) {
	e := newTestServer(t, "")
	id := createSession(t, e, "Lecture")
	transcribe(t, e, id)

	rec := do(t, e, http.MethodPost, "/quiz/generate/?session_id="+id+"&num_questions=11", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for 11 questions, got %d", rec.Code)
	}

	rec = do(t, e, http.MethodPost, "/quiz/generate/?session_id="+id, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: status %d: %s", rec.Code, rec.Body.String())
	}
	var quiz usecase.QuizResult
	decode(t, rec, &quiz)
	if len(quiz.QuizQuestions) != 3 || len(quiz.QuizIDs) != 3 {
		t.Fatalf("Expected 3 questions, got %+v", quiz)
	}

	form := url.Values{"quiz_id": {quiz.QuizIDs[0]}, "user_answer": {"A"}, "time_taken": {"4.5"}}
	rec = do(t, e, http.MethodPost, "/quiz/answer/", bytes.NewBufferString(form.Encode()), echo.MIMEApplicationForm)
	var answer usecase.AnswerResult
	decode(t, rec, &answer)
	if !answer.IsCorrect || answer.QuizID != quiz.QuizIDs[0] {
		t.Errorf("Unexpected answer %+v", answer)
	}

	rec = do(t, e, http.MethodPost, "/quiz/answer/?quiz_id="+quiz.QuizIDs[1]+"&user_answer=B&time_taken=1.5", nil, "")
	decode(t, rec, &answer)
	if answer.IsCorrect || answer.CorrectAnswer != "A" {
		t.Errorf("Unexpected answer %+v", answer)
	}

	rec = do(t, e, http.MethodPost, "/quiz/answer/?quiz_id=missing&user_answer=A&time_taken=1", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown quiz, got %d", rec.Code)
	}

	rec = do(t, e, http.MethodPost, "/quiz/answer/?quiz_id="+quiz.QuizIDs[0]+"&user_answer=A&time_taken=abc", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad time_taken, got %d", rec.Code)
	}

	rec = do(t, e, http.MethodGet, "/quiz/"+id, nil, "")
	var list QuizListResponse
	decode(t, rec, &list)
	if len(list.QuizQuestions) != 3 || list.SessionID != id {
		t.Errorf("Unexpected quiz list %+v", list)
	}

	rec = do(t, e, http.MethodGet, "/progress/"+id, nil, "")
	var report struct {
		TotalQuestions int     `json:"total_questions"`
		CorrectAnswers int     `json:"correct_answers"`
		Accuracy       float64 `json:"accuracy"`
		AverageTime    float64 `json:"average_time"`
	}
	decode(t, rec, &report)
	if report.TotalQuestions != 2 || report.CorrectAnswers != 1 || report.Accuracy != 50 || report.AverageTime != 3 {
		t.Errorf("Unexpected report %+v", report)
	}
}

func TestEmptyCollections(t *testing.T) {
	e := newTestServer(t, "")

	for _, target := range []string{"/sessions/", "/quiz/none"} {
		rec := do(t, e, http.MethodGet, target, nil, "")
		if strings.Contains(rec.Body.String(), "null") {
			t.Errorf("%s rendered null: %s", target, rec.Body.String())
		}
	}

	rec := do(t, e, http.MethodGet, "/progress/none", nil, "")
	if !strings.Contains(rec.Body.String(), `"progress_details":[]`) {
		t.Errorf("Unexpected progress %s", rec.Body.String())
	}
}

func TestClarify(t *testing.T) {
	e := newTestServer(t, "")
	id := createSession(t, e, "Lecture")
	transcribe(t, e, id)

	rec := do(t, e, http.MethodPost, "/clarify/?concept=osmosis&session_id="+id, nil, "")
	var resp usecase.ClarificationResult
	decode(t, rec, &resp)
	if resp.Concept != "osmosis" || !strings.Contains(resp.Clarification, "lecture as context") {
		t.Errorf("Unexpected clarification %+v", resp)
	}

	rec = do(t, e, http.MethodPost, "/clarify/?concept=osmosis&session_id=unknown", nil, "")
	decode(t, rec, &resp)
	if strings.Contains(resp.Clarification, "lecture as context") {
		t.Errorf("Unknown session should have no context: %+v", resp)
	}

	rec = do(t, e, http.MethodPost, "/clarify/", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without concept, got %d", rec.Code)
	}
}

func TestSignTranslation(t *testing.T) {
	e := newTestServer(t, "")

	tests := []struct {
		name        string
		target      string
		body        string
		contentType string
	}{
		{"query", "/asl/translate/?text=hello%20good", "", ""},
		{"form", "/asl/translate/", "text=hello+good", echo.MIMEApplicationForm},
		{"json", "/asl/translate/", `{"text": "hello good"}`, echo.MIMEApplicationJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, http.MethodPost, tt.target, bytes.NewBufferString(tt.body), tt.contentType)
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
			}
			var resp struct {
				OriginalText  string  `json:"original_text"`
				TotalDuration float64 `json:"total_duration"`
				Signs         []struct {
					Gesture string `json:"gesture"`
				} `json:"signs"`
			}
			decode(t, rec, &resp)
			if resp.OriginalText != "hello good" || resp.TotalDuration != 3 {
				t.Errorf("Unexpected result %+v", resp)
			}
			if len(resp.Signs) != 2 || resp.Signs[0].Gesture != "wave" || resp.Signs[1].Gesture != "thumbs_up" {
				t.Errorf("Unexpected signs %+v", resp.Signs)
			}
		})
	}

	rec := do(t, e, http.MethodGet, "/asl/video/nod", nil, "")
	var video VideoResponse
	decode(t, rec, &video)
	if video.Gesture != "nod" || video.VideoURL != "/videos/asl/nod.mp4" {
		t.Errorf("Unexpected video %+v", video)
	}

	rec = do(t, e, http.MethodGet, "/metrics", nil, "")
	if !strings.Contains(rec.Body.String(), "echolearn_sign_translations_total") {
		t.Error("Expected sign translation counter in metrics output")
	}
}

func TestAccessToken(t *testing.T) {
	const secret = "test-secret"
	e := newTestServer(t, secret)

	rec := do(t, e, http.MethodGet, "/sessions/", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without token, got %d", rec.Code)
	}
	var resp ErrorResponse
	decode(t, rec, &resp)
	if resp.Error != "unauthorized" {
		t.Errorf("Unexpected error %+v", resp)
	}

	if rec := do(t, e, http.MethodGet, "/health", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("Health should stay public, got %d", rec.Code)
	}

	token, err := auth.NewTokenManager(secret).GenerateClientToken("web", time.Hour)
	if err != nil {
		t.Fatalf("GenerateClientToken failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/sessions/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", rec.Code)
	}

	server := httptest.NewServer(e)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/s1"

	if _, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Error("Expected WebSocket without token to be rejected")
	}

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	if err != nil {
		t.Fatalf("Dial with token failed: %v", err)
	}
	defer conn.Close()
	conn.WriteJSON(map[string]string{"type": "ping"})
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var pong map[string]interface{}
	if err := conn.ReadJSON(&pong); err != nil || pong["type"] != "pong" {
		t.Errorf("Expected pong, got %v (%v)", pong, err)
	}
}

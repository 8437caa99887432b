package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/echolearn/server/adapters/stt"
	"github.com/echolearn/server/domain/entities"
	"github.com/echolearn/server/domain/repositories"
	"github.com/echolearn/server/internal/signlang"
	"github.com/echolearn/server/usecase"
)

type handler struct {
	service *usecase.LearningService
	logger  *zap.Logger
}

// bind fills req from the query string and then from the body, so scalar
// fields may arrive either way.
func bind(c echo.Context, req interface{}) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, req); err != nil {
		return err
	}
	return c.Bind(req)
}

func (h *handler) createSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := h.service.CreateSession(c.Request().Context(), req.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CreateSessionResponse{
		SessionID: session.ID,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
	})
}

func (h *handler) listSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context())
	if err != nil {
		return err
	}
	if sessions == nil {
		sessions = []*entities.LearningSession{}
	}
	return c.JSON(http.StatusOK, SessionListResponse{Sessions: sessions})
}

func (h *handler) getSession(c echo.Context) error {
	session, err := h.service.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (h *handler) transcribe(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest("An audio file is required in the 'file' field")
	}

	contentType := file.Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, "audio/") {
		return badRequest("File must be an audio file")
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	audio, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}

	config := repositories.AudioConfig{
		Encoding: stt.EncodingFromContentType(contentType),
		Language: c.FormValue("language"),
	}
	if raw := c.FormValue("sample_rate"); raw != "" {
		rate, err := strconv.Atoi(raw)
		if err != nil || rate <= 0 {
			return badRequest("sample_rate must be a positive integer")
		}
		config.SampleRate = rate
	}

	h.logger.Info("Transcribing upload",
		zap.String("filename", file.Filename),
		zap.String("contentType", contentType),
		zap.Int("size", len(audio)))

	result, err := h.service.Transcribe(c.Request().Context(), audio, config, c.FormValue("session_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *handler) summarize(c echo.Context) error {
	var req SessionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.SessionID == "" {
		return badRequest("session_id is required")
	}

	result, err := h.service.Summarize(c.Request().Context(), req.SessionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *handler) generateQuiz(c echo.Context) error {
	var req GenerateQuizRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.SessionID == "" {
		return badRequest("session_id is required")
	}

	result, err := h.service.GenerateQuiz(c.Request().Context(), req.SessionID, req.NumQuestions)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *handler) submitAnswer(c echo.Context) error {
	var req AnswerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.QuizID == "" || req.UserAnswer == "" {
		return badRequest("quiz_id and user_answer are required")
	}

	result, err := h.service.SubmitAnswer(c.Request().Context(), req.QuizID, req.UserAnswer, req.TimeTaken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *handler) listQuiz(c echo.Context) error {
	sessionID := c.Param("session_id")
	quizzes, err := h.service.ListQuiz(c.Request().Context(), sessionID)
	if err != nil {
		return err
	}
	if quizzes == nil {
		quizzes = []*entities.Quiz{}
	}
	return c.JSON(http.StatusOK, QuizListResponse{QuizQuestions: quizzes, SessionID: sessionID})
}

func (h *handler) progress(c echo.Context) error {
	report, err := h.service.Progress(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (h *handler) clarify(c echo.Context) error {
	var req ClarifyRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.service.Clarify(c.Request().Context(), req.Concept, req.SessionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *handler) translate(c echo.Context) error {
	var req TranslateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.service.TranslateToSign(c.Request().Context(), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *handler) video(c echo.Context) error {
	gesture := c.Param("gesture")
	return c.JSON(http.StatusOK, VideoResponse{
		Gesture:  gesture,
		VideoURL: signlang.VideoURL(gesture),
	})
}

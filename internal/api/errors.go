package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/echolearn/server/usecase"
)

// toErrorResponse maps handler errors onto a status and body
func toErrorResponse(err error) (int, ErrorResponse) {
	var he *echo.HTTPError
	switch {
	case errors.Is(err, usecase.ErrSessionNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "session_not_found", Message: "Session not found"}
	case errors.Is(err, usecase.ErrQuizNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "quiz_not_found", Message: "Quiz question not found"}
	case errors.Is(err, usecase.ErrNoTranscription):
		return http.StatusBadRequest, ErrorResponse{Error: "no_transcription", Message: "No transcription found for this session"}
	case errors.Is(err, usecase.ErrInvalidInput):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: err.Error()}
	case errors.As(err, &he):
		message := fmt.Sprint(he.Message)
		if he.Internal != nil {
			message = fmt.Sprintf("%s: %v", message, he.Internal)
		}
		return he.Code, ErrorResponse{Error: errorCode(he.Code), Message: message}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Internal server error"}
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	default:
		if status >= http.StatusInternalServerError {
			return "internal_error"
		}
		return "request_failed"
	}
}

// errorHandler renders every error as an ErrorResponse
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := toErrorResponse(err)
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
	}
}

func badRequest(message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, message)
}

package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/echolearn/server/internal/auth"
	"github.com/echolearn/server/internal/websocket"
	"github.com/echolearn/server/usecase"
)

// maxUploadSize bounds request bodies, audio uploads included
const maxUploadSize = "25M"

// Options controls the outer surface of the server
type Options struct {
	CORSOrigins    []string
	StaticDir      string
	MetricsEnabled bool
}

// NewServer builds the echo instance with middleware and every route
func NewServer(service *usecase.LearningService, hub *websocket.Hub, tokens *auth.TokenManager, opts Options, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	// Middleware
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     opts.CORSOrigins,
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(maxUploadSize))

	if opts.StaticDir != "" {
		e.Static("/static", opts.StaticDir)
	}

	InitRoutes(e, service, hub, tokens, opts.MetricsEnabled, logger)
	return e
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, service *usecase.LearningService, hub *websocket.Hub, tokens *auth.TokenManager, metrics bool, logger *zap.Logger) {
	h := &handler{service: service, logger: logger}

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, WelcomeResponse{
			Message: "Welcome to EchoLearn API",
			Status:  "running",
		})
	})

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
		})
	})

	if metrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	// Everything below requires an access token when one is configured
	g := e.Group("", auth.Middleware(tokens))

	// Sessions
	g.POST("/sessions/", h.createSession)
	g.GET("/sessions/", h.listSessions)
	g.GET("/sessions/:id", h.getSession)

	// Transcription and tutoring
	g.POST("/transcribe/", h.transcribe)
	g.POST("/summarize/", h.summarize)
	g.POST("/clarify/", h.clarify)

	// Quizzes and progress
	g.POST("/quiz/generate/", h.generateQuiz)
	g.POST("/quiz/answer/", h.submitAnswer)
	g.GET("/quiz/:session_id", h.listQuiz)
	g.GET("/progress/:session_id", h.progress)

	// Sign language
	g.POST("/asl/translate/", h.translate)
	g.GET("/asl/video/:gesture", h.video)

	// WebSocket endpoint; browsers pass the token as ?token=
	g.GET("/ws/:session_id", func(c echo.Context) error {
		return websocket.HandleWebSocket(hub, c, c.Param("session_id"))
	})
}

// requestLogger logs one structured line per request
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogMethod:   true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remoteIP", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Warn("Request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("Request", fields...)
			return nil
		},
	})
}

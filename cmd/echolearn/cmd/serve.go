package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/echolearn/server/adapters/llm"
	"github.com/echolearn/server/adapters/memory"
	"github.com/echolearn/server/adapters/mongo"
	"github.com/echolearn/server/adapters/sign"
	"github.com/echolearn/server/adapters/sqlite"
	"github.com/echolearn/server/adapters/stt"
	"github.com/echolearn/server/domain/repositories"
	"github.com/echolearn/server/internal/api"
	"github.com/echolearn/server/internal/auth"
	"github.com/echolearn/server/internal/config"
	"github.com/echolearn/server/internal/resilience"
	"github.com/echolearn/server/internal/signlang"
	"github.com/echolearn/server/internal/websocket"
	"github.com/echolearn/server/usecase"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize logger
	logger, err := cfg.NewLogger()
	if err != nil {
		printError("failed to create logger", err)
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", zap.Error(err))
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error("Failed to close storage", zap.Error(err))
		}
	}()

	tutor, err := newTutor(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize tutor", zap.Error(err))
		return err
	}

	signs, err := newSignTranslator(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize sign translator", zap.Error(err))
		return err
	}

	// Initialize usecase services
	service := usecase.NewLearningService(store, tutor, newSpeechToText(cfg, logger), signs, cfg.STTLanguage, logger)

	// Initialize WebSocket hub
	hub := websocket.NewHub(service, cfg.CORSOrigins, logger)
	go hub.Run(ctx)

	tokens := auth.NewTokenManager(cfg.JWTSecret)
	if !tokens.Enabled() {
		logger.Warn("JWT_SECRET is not set; API access is unauthenticated")
	}

	e := api.NewServer(service, hub, tokens, api.Options{
		CORSOrigins:    cfg.CORSOrigins,
		StaticDir:      cfg.StaticDir,
		MetricsEnabled: cfg.MetricsEnabled,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("EchoLearn server started",
		zap.String("port", cfg.Port),
		zap.String("storage", cfg.StorageDriver),
		zap.String("stt", cfg.STTProvider))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
		return err
	}

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited")
	return nil
}

func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.Store, error) {
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return repositories.Store{}, err
		}
		return db.Store(), nil

	case config.StorageMongo:
		client, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return repositories.Store{}, err
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			client.Close(ctx)
			return repositories.Store{}, err
		}
		return client.Store(), nil

	default:
		logger.Warn("Using in-memory storage; data is lost on restart")
		return memory.NewStore(), nil
	}
}

func newTutor(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.Tutor, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; using the mock tutor")
		return llm.NewMockTutor(), nil
	}
	return llm.NewGeminiTutor(ctx, llm.GeminiConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	}, logger)
}

func newSpeechToText(cfg *config.Config, logger *zap.Logger) repositories.SpeechToText {
	if cfg.STTProvider == config.STTGoogle {
		return stt.NewGoogleSpeechToText(cfg.STTLanguage, logger)
	}
	return stt.NewMockSpeechToText(logger)
}

// newSignTranslator builds the local dictionary translator and, when an API
// key is configured, puts the SignAll client in front of it.
func newSignTranslator(cfg *config.Config, logger *zap.Logger) (*signlang.Selector, error) {
	dict := signlang.DefaultDictionary()
	if cfg.SignDictionaryPath != "" {
		loaded, err := signlang.LoadDictionary(cfg.SignDictionaryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load sign dictionary: %w", err)
		}
		dict = loaded
		logger.Info("Loaded sign dictionary",
			zap.String("path", cfg.SignDictionaryPath),
			zap.Int("entries", dict.Len()))
	}
	fallback := signlang.NewFallback(signlang.NewTranslator(dict))

	if cfg.SignAllAPIKey == "" {
		return signlang.WithFallback(nil, fallback, nil, logger), nil
	}

	client, err := sign.NewSignAllClient(sign.SignAllConfig{
		APIKey:     cfg.SignAllAPIKey,
		APIBaseURL: cfg.SignAllBaseURL,
		Timeout:    cfg.SignAllTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	breaker := resilience.NewCircuitBreaker("signall", cfg.CircuitBreakerMaxFailures, cfg.CircuitBreakerReset())
	logger.Info("SignAll translation enabled with local fallback")
	return signlang.WithFallback(client, fallback, breaker, logger), nil
}

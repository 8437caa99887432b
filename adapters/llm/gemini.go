package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/echolearn/server/domain/repositories"
	"github.com/echolearn/server/internal/observability"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultTimeoutSeconds = 30
	maxAttempts           = 3

	statusSuccess  = "success"
	statusFallback = "fallback"
)

// contentGenerator is the subset of genai.Models the tutor calls
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig holds configuration for the GeminiTutor adapter
// Required fields:
// - APIKey: Google AI API key
// Optional fields with defaults:
// - Model: model name (default: "gemini-2.0-flash")
// - TimeoutSeconds: per-attempt timeout (default: 30)
type GeminiConfig struct {
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// GeminiTutor implements the Tutor interface using Google's Gemini API
type GeminiTutor struct {
	models     contentGenerator
	logger     *zap.Logger
	model      string
	timeout    time.Duration
	retryDelay time.Duration
}

// Ensure GeminiTutor implements the Tutor interface
var _ repositories.Tutor = (*GeminiTutor)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// NewGeminiTutor creates a new Gemini tutor
func NewGeminiTutor(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiTutor, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	return newGeminiTutor(client.Models, model, time.Duration(timeoutSeconds)*time.Second, logger), nil
}

func newGeminiTutor(models contentGenerator, model string, timeout time.Duration, logger *zap.Logger) *GeminiTutor {
	return &GeminiTutor{
		models:     models,
		logger:     logger,
		model:      model,
		timeout:    timeout,
		retryDelay: time.Second,
	}
}

// generate runs one prompt with up to maxAttempts tries and returns the
// concatenated text of the first candidate. An empty reply is an error.
func (g *GeminiTutor) generate(ctx context.Context, operation string, prompt string, config *genai.GenerateContentConfig) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
		response, err = g.models.GenerateContent(attemptCtx, g.model, contents, config)
		cancel()
		if err == nil {
			break
		}

		g.logger.Warn("Failed to generate content, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt+1) * g.retryDelay):
			}
		}
	}
	if err != nil {
		return "", fmt.Errorf("%s failed after %d attempts: %w", operation, maxAttempts, err)
	}

	text := responseText(response)
	if text == "" {
		return "", fmt.Errorf("%s: empty response", operation)
	}
	return text, nil
}

func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}

	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text += part.Text
		}
	}
	return text
}

func recordOutcome(operation string, err error) {
	if err != nil {
		observability.RecordTutorRequest(operation, statusFallback)
		return
	}
	observability.RecordTutorRequest(operation, statusSuccess)
}

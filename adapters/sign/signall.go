package sign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/echolearn/server/domain/entities"
	"github.com/echolearn/server/domain/repositories"
)

const (
	defaultAPIBaseURL = "https://api.signall.us"
	defaultTimeout    = 10 * time.Second
	outputFormatJSON  = "json"
)

// SignAllConfig holds configuration for the SignAllClient adapter
// Required fields:
// - APIKey: SignAll API key
// Optional fields with defaults:
// - APIBaseURL: base URL of the SignAll API (default: "https://api.signall.us")
// - Timeout: per-request timeout (default: 10s)
type SignAllConfig struct {
	APIKey     string
	APIBaseURL string
	Timeout    time.Duration
}

// SignAllClient implements SignTranslator using the SignAll translation API
type SignAllClient struct {
	apiKey     string
	apiBaseURL string
	httpClient *http.Client
	logger     *zap.Logger
}

// Ensure SignAllClient implements the SignTranslator interface
var _ repositories.SignTranslator = (*SignAllClient)(nil)

// SignAllRequest represents the request payload for the translate endpoint
type SignAllRequest struct {
	Text              string `json:"text"`
	OutputFormat      string `json:"output_format"`
	IncludeTimestamps bool   `json:"include_timestamps"`
}

// ValidateSignAllConfig validates the SignAllConfig
func ValidateSignAllConfig(config SignAllConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("signall API key is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// NewSignAllClient creates a new SignAll client
func NewSignAllClient(config SignAllConfig, logger *zap.Logger) (*SignAllClient, error) {
	if err := ValidateSignAllConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := strings.TrimRight(config.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default SignAll API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &SignAllClient{
		apiKey:     config.APIKey,
		apiBaseURL: apiBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Translate sends text to SignAll and decodes the returned gesture sequence.
// Any transport failure or non-200 status is returned as an error.
func (c *SignAllClient) Translate(ctx context.Context, text string) (entities.TranslationResult, error) {
	requestBody, err := json.Marshal(SignAllRequest{
		Text:              text,
		OutputFormat:      outputFormatJSON,
		IncludeTimestamps: true,
	})
	if err != nil {
		return entities.TranslationResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.apiBaseURL + "/translate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return entities.TranslationResult{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Sending request to SignAll API", zap.String("url", url), zap.Int("textLength", len(text)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return entities.TranslationResult{}, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return entities.TranslationResult{}, fmt.Errorf("signall API returned error %d: %s", resp.StatusCode, string(errorBody))
	}

	var result entities.TranslationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return entities.TranslationResult{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.OriginalText == "" {
		result.OriginalText = text
	}
	if result.Signs == nil {
		result.Signs = []entities.SignToken{}
	}
	if result.AvatarInstructions == nil {
		result.AvatarInstructions = []entities.AvatarInstruction{}
	}

	c.logger.Info("Received SignAll translation", zap.Int("signs", len(result.Signs)))
	return result, nil
}

package websocket

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/echolearn/server/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	// inbound
	MessageTypeTextInput  MessageType = "text_input"
	MessageTypeAudioChunk MessageType = "audio_chunk"
	MessageTypePing       MessageType = "ping"

	// outbound
	MessageTypePong           MessageType = "pong"
	MessageTypeProcessing     MessageType = "processing"
	MessageTypeTranscription  MessageType = "transcription"
	MessageTypeASLTranslation MessageType = "asl_translation"
	MessageTypeError          MessageType = "error"
)

// Error codes carried by ErrorMessage
const (
	ErrorCodeInvalidMessage      = "invalid_message"
	ErrorCodeUnsupportedType     = "unsupported_message_type"
	ErrorCodeInvalidAudio        = "invalid_audio"
	ErrorCodeTranscriptionFailed = "transcription_failed"
	ErrorCodeTranslationFailed   = "translation_failed"
)

const (
	defaultSampleRate = 16000
	defaultEncoding   = "LINEAR16"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// TextInputMessage asks for a sign translation of text
type TextInputMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// AudioChunkMessage carries one chunk of live lecture audio
type AudioChunkMessage struct {
	BaseMessage
	AudioData  string `json:"audio_data"` // base64 encoded
	SampleRate int    `json:"sample_rate,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Language   string `json:"language,omitempty"`
	IsFinal    bool   `json:"is_final"`

	audio []byte
}

// Audio returns the decoded audio bytes
func (m *AudioChunkMessage) Audio() []byte {
	return m.audio
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ProcessingMessage acknowledges an audio chunk
type ProcessingMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// TranscriptionMessage carries the transcript of a finished utterance
type TranscriptionMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// ASLTranslationMessage carries a sign translation
type ASLTranslationMessage struct {
	BaseMessage
	Data entities.TranslationResult `json:"data"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ValidationError is returned by ValidateMessage and maps onto an error code
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses an inbound message into its typed form
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, &ValidationError{Code: ErrorCodeInvalidMessage, Message: fmt.Sprintf("invalid JSON format: %v", err)}
	}

	switch base.Type {
	case MessageTypeTextInput:
		var msg TextInputMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, &ValidationError{Code: ErrorCodeInvalidMessage, Message: fmt.Sprintf("invalid text input message: %v", err)}
		}
		return &msg, nil

	case MessageTypeAudioChunk:
		var msg AudioChunkMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, &ValidationError{Code: ErrorCodeInvalidMessage, Message: fmt.Sprintf("invalid audio chunk message: %v", err)}
		}
		if err := v.validateAudioChunk(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, &ValidationError{Code: ErrorCodeInvalidMessage, Message: fmt.Sprintf("invalid ping message: %v", err)}
		}
		return &msg, nil

	case "":
		return nil, &ValidationError{Code: ErrorCodeInvalidMessage, Message: "message type is required"}

	default:
		return nil, &ValidationError{Code: ErrorCodeUnsupportedType, Message: fmt.Sprintf("unsupported message type: %s", base.Type)}
	}
}

// validateAudioChunk decodes the audio and fills defaults. An empty chunk is
// allowed only when it closes the utterance.
func (v *MessageValidator) validateAudioChunk(msg *AudioChunkMessage) error {
	audio, err := base64.StdEncoding.DecodeString(msg.AudioData)
	if err != nil {
		return &ValidationError{Code: ErrorCodeInvalidAudio, Message: "audio_data must be base64 encoded"}
	}
	if len(audio) == 0 && !msg.IsFinal {
		return &ValidationError{Code: ErrorCodeInvalidAudio, Message: "audio_data is required"}
	}
	if msg.SampleRate == 0 {
		msg.SampleRate = defaultSampleRate
	}
	if msg.SampleRate < 8000 || msg.SampleRate > 48000 {
		return &ValidationError{Code: ErrorCodeInvalidAudio, Message: "sample_rate must be between 8000 and 48000"}
	}
	if msg.Encoding == "" {
		msg.Encoding = defaultEncoding
	}
	msg.Encoding = strings.ToUpper(msg.Encoding)

	msg.audio = audio
	return nil
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{Type: MessageTypeError},
		Code:        code,
		Message:     message,
		Details:     details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: BaseMessage{Type: MessageTypePong},
		Data:        data,
	}
}

// CreateProcessingMessage acknowledges an audio chunk
func CreateProcessingMessage() *ProcessingMessage {
	return &ProcessingMessage{
		BaseMessage: BaseMessage{Type: MessageTypeProcessing},
		Message:     "Processing audio...",
	}
}

// CreateTranscriptionMessage wraps a finished transcript
func CreateTranscriptionMessage(text string) *TranscriptionMessage {
	return &TranscriptionMessage{
		BaseMessage: BaseMessage{Type: MessageTypeTranscription},
		Text:        text,
	}
}

// CreateASLTranslationMessage wraps a sign translation
func CreateASLTranslationMessage(result entities.TranslationResult) *ASLTranslationMessage {
	return &ASLTranslationMessage{
		BaseMessage: BaseMessage{Type: MessageTypeASLTranslation},
		Data:        result,
	}
}

package stt

import (
	"context"
	"fmt"
	"io"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/echolearn/server/domain/repositories"
)

// DefaultLanguage is used when neither the request nor the adapter names one
const DefaultLanguage = "en-US"

// maxFrameSize bounds the audio carried by one streaming request. The
// recognizer rejects request messages above 25KB.
const maxFrameSize = 16 * 1024

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	language string
	logger   *zap.Logger
}

// NewGoogleSpeechToText creates a Google Cloud speech adapter. Credentials are
// resolved by the client library (GOOGLE_APPLICATION_CREDENTIALS).
func NewGoogleSpeechToText(language string, logger *zap.Logger) *GoogleSpeechToText {
	if language == "" {
		language = DefaultLanguage
	}
	return &GoogleSpeechToText{language: language, logger: logger}
}

func (g *GoogleSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return nil, err
	}

	recognitionConfig := g.recognitionConfig(encoding, config)

	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         recognitionConfig,
				InterimResults: false,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	g.logger.Debug("Started streaming recognition",
		zap.String("encoding", encoding.String()),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("language", recognitionConfig.LanguageCode))

	return &GoogleSpeechToTextStream{
		client:     client,
		stream:     stream,
		ctx:        ctx,
		resultChan: make(chan string, 1),
		errorChan:  make(chan error, 1),
	}, nil
}

func (g *GoogleSpeechToText) recognitionConfig(encoding speechpb.RecognitionConfig_AudioEncoding, config repositories.AudioConfig) *speechpb.RecognitionConfig {
	return &speechpb.RecognitionConfig{
		Encoding:                   encoding,
		SampleRateHertz:            int32(config.SampleRate),
		LanguageCode:               g.languageFor(config),
		EnableAutomaticPunctuation: true,
	}
}

func (g *GoogleSpeechToText) languageFor(config repositories.AudioConfig) string {
	if config.Language != "" {
		return config.Language
	}
	return g.language
}

type GoogleSpeechToTextStream struct {
	client         *speech.Client
	stream         speechpb.Speech_StreamingRecognizeClient
	ctx            context.Context
	audioReceived  bool
	resultChan     chan string
	errorChan      chan error
	receiverActive bool
}

func (g *GoogleSpeechToTextStream) Stream(data []byte) error {
	if !g.receiverActive {
		g.receiverActive = true
		go g.receiveResults()
	}

	for len(data) > 0 {
		frame := data
		if len(frame) > maxFrameSize {
			frame = data[:maxFrameSize]
		}
		data = data[len(frame):]
		g.audioReceived = true

		if err := g.stream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
				AudioContent: frame,
			},
		}); err != nil {
			return fmt.Errorf("failed to send audio data: %w", err)
		}
	}

	return nil
}

func (g *GoogleSpeechToTextStream) End() (string, error) {
	defer g.cleanup()

	if !g.audioReceived {
		return "", fmt.Errorf("no audio data received")
	}

	if err := g.stream.CloseSend(); err != nil {
		return "", fmt.Errorf("failed to close send stream: %w", err)
	}

	select {
	case <-g.ctx.Done():
		return "", fmt.Errorf("context cancelled while waiting for result: %w", g.ctx.Err())
	case err := <-g.errorChan:
		return "", err
	case result := <-g.resultChan:
		if result == "" {
			return "", fmt.Errorf("no speech detected in audio")
		}
		return result, nil
	}
}

// receiveResults joins every final result; a lecture spans many utterances.
// Exactly one of resultChan and errorChan receives a value.
func (g *GoogleSpeechToTextStream) receiveResults() {
	var parts []string

	for {
		resp, err := g.stream.Recv()
		if err == io.EOF {
			g.resultChan <- strings.Join(parts, " ")
			return
		}
		if err != nil {
			g.errorChan <- fmt.Errorf("failed to receive response: %w", err)
			return
		}

		for _, result := range resp.GetResults() {
			if result.IsFinal && len(result.Alternatives) > 0 {
				parts = append(parts, strings.TrimSpace(result.Alternatives[0].Transcript))
			}
		}
	}
}

func (g *GoogleSpeechToTextStream) cleanup() {
	if g.client != nil {
		g.client.Close()
	}
}

// TranscribeAudio converts a whole recording to text. Uploads go through
// long-running recognition, which is not bound by the streaming limits on
// message size and duration.
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("no audio data received")
	}
	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return "", err
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create speech client: %w", err)
	}
	defer client.Close()

	op, err := client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: g.recognitionConfig(encoding, config),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to start recognition: %w", err)
	}

	resp, err := op.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("recognition failed: %w", err)
	}

	transcript := joinTranscripts(resp.GetResults())
	if transcript == "" {
		return "", fmt.Errorf("no speech detected in audio")
	}
	g.logger.Debug("Recognized recording",
		zap.Int("audioSize", len(audioData)),
		zap.Int("results", len(resp.GetResults())))
	return transcript, nil
}

// joinTranscripts joins the best alternative of each result
func joinTranscripts(results []*speechpb.SpeechRecognitionResult) string {
	var parts []string
	for _, result := range results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(result.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio encoding: %s", encoding)
	}
}

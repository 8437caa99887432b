package websocket

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/echolearn/server/adapters/llm"
	"github.com/echolearn/server/adapters/memory"
	"github.com/echolearn/server/adapters/stt"
	"github.com/echolearn/server/domain/repositories"
	"github.com/echolearn/server/internal/signlang"
	"github.com/echolearn/server/usecase"
)

type testEnv struct {
	hub     *Hub
	service *usecase.LearningService
	server  *httptest.Server
}

func newTestEnv(t *testing.T, origins []string) *testEnv {
	t.Helper()
	return newTestEnvWithSpeech(t, origins, stt.NewMockSpeechToText(zap.NewNop()))
}

func newTestEnvWithSpeech(t *testing.T, origins []string, speech repositories.SpeechToText) *testEnv {
	t.Helper()

	// goroutines outlive the test, so no zaptest logger here
	logger := zap.NewNop()
	service := usecase.NewLearningService(
		memory.NewStore(),
		llm.NewMockTutor(),
		speech,
		signlang.WithFallback(nil, nil, nil, logger),
		"en-US",
		logger,
	)

	hub := NewHub(service, origins, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws/:session_id", func(c echo.Context) error {
		return HandleWebSocket(hub, c, c.Param("session_id"))
	})
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return &testEnv{hub: hub, service: service, server: server}
}

func (env *testEnv) dial(t *testing.T, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg interface{}) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
}

func receive(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg map[string]interface{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHub_TextInput(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.dial(t, "session-1")

	send(t, conn, map[string]interface{}{"type": "text_input", "text": "hello students"})
	msg := receive(t, conn)

	if msg["type"] != "asl_translation" {
		t.Fatalf("Expected asl_translation, got %v", msg)
	}
	data := msg["data"].(map[string]interface{})
	if data["original_text"] != "hello students" {
		t.Errorf("original_text = %v", data["original_text"])
	}
	if data["total_duration"] != 3.0 {
		t.Errorf("total_duration = %v, want 3", data["total_duration"])
	}
	if signs := data["signs"].([]interface{}); len(signs) != 2 {
		t.Errorf("Expected 2 signs, got %d", len(signs))
	}
}

func TestHub_Ping(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.dial(t, "session-1")

	send(t, conn, map[string]interface{}{"type": "ping"})
	if msg := receive(t, conn); msg["type"] != "pong" {
		t.Errorf("Expected pong, got %v", msg)
	}
}

func TestHub_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.dial(t, "session-1")

	tests := []struct {
		name     string
		payload  string
		wantCode string
	}{
		{"invalid json", `not json`, ErrorCodeInvalidMessage},
		{"unknown type", `{"type": "wave"}`, ErrorCodeUnsupportedType},
		{"bad audio", `{"type": "audio_chunk", "audio_data": "***"}`, ErrorCodeInvalidAudio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.payload)); err != nil {
				t.Fatalf("WriteMessage failed: %v", err)
			}
			msg := receive(t, conn)
			if msg["type"] != "error" || msg["error_code"] != tt.wantCode {
				t.Errorf("Expected error %s, got %v", tt.wantCode, msg)
			}
			if msg["message"] == "" {
				t.Error("Expected a message")
			}
		})
	}

	// the connection stays usable after errors
	send(t, conn, map[string]interface{}{"type": "ping"})
	if msg := receive(t, conn); msg["type"] != "pong" {
		t.Errorf("Expected pong after errors, got %v", msg)
	}
}

func TestHub_AudioStreaming(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	session, err := env.service.CreateSession(ctx, "Biology")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	conn := env.dial(t, session.ID)

	chunk := base64.StdEncoding.EncodeToString([]byte("fake pcm audio"))
	send(t, conn, map[string]interface{}{"type": "audio_chunk", "audio_data": chunk, "sample_rate": 16000})
	if msg := receive(t, conn); msg["type"] != "processing" || msg["message"] != "Processing audio..." {
		t.Fatalf("Expected processing, got %v", msg)
	}

	send(t, conn, map[string]interface{}{"type": "audio_chunk", "audio_data": chunk, "is_final": true})
	if msg := receive(t, conn); msg["type"] != "processing" {
		t.Fatalf("Expected processing, got %v", msg)
	}

	msg := receive(t, conn)
	if msg["type"] != "transcription" || msg["text"] != stt.MockTranscript {
		t.Fatalf("Expected transcription, got %v", msg)
	}
	msg = receive(t, conn)
	if msg["type"] != "asl_translation" {
		t.Fatalf("Expected asl_translation, got %v", msg)
	}
	if data := msg["data"].(map[string]interface{}); data["original_text"] != stt.MockTranscript {
		t.Errorf("original_text = %v", data["original_text"])
	}

	stored, err := env.service.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if stored.Transcription != stt.MockTranscript {
		t.Errorf("Transcription = %q", stored.Transcription)
	}
	if stored.SignLanguageData == nil {
		t.Error("Expected sign language data to be stored")
	}
}

// contextSpeech fails like a gRPC stream once the context it was opened
// with is done.
type contextSpeech struct {
	mu   sync.Mutex
	ctxs []context.Context
}

func (s *contextSpeech) TranscribeAudio(ctx context.Context, audio []byte, _ repositories.AudioConfig) (string, error) {
	return "", fmt.Errorf("not used")
}

func (s *contextSpeech) InitTranscribeStreaming(ctx context.Context, _ repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	s.mu.Lock()
	s.ctxs = append(s.ctxs, ctx)
	s.mu.Unlock()
	return &contextStream{ctx: ctx}, nil
}

func (s *contextSpeech) opened() []context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]context.Context(nil), s.ctxs...)
}

type contextStream struct {
	ctx   context.Context
	bytes int
}

func (s *contextStream) Stream(data []byte) error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	s.bytes += len(data)
	return nil
}

func (s *contextStream) End() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled while waiting for result: %w", err)
	}
	return fmt.Sprintf("heard %d bytes", s.bytes), nil
}

func TestHub_StreamContextSpansUtterance(t *testing.T) {
	speech := &contextSpeech{}
	env := newTestEnvWithSpeech(t, nil, speech)
	conn := env.dial(t, "session-1")

	chunk := base64.StdEncoding.EncodeToString([]byte("0123456789"))
	send(t, conn, map[string]interface{}{"type": "audio_chunk", "audio_data": chunk})
	if msg := receive(t, conn); msg["type"] != "processing" {
		t.Fatalf("Expected processing, got %v", msg)
	}

	send(t, conn, map[string]interface{}{"type": "audio_chunk", "audio_data": chunk, "is_final": true})
	if msg := receive(t, conn); msg["type"] != "processing" {
		t.Fatalf("Expected processing, got %v", msg)
	}
	if msg := receive(t, conn); msg["type"] != "transcription" || msg["text"] != "heard 20 bytes" {
		t.Fatalf("Expected transcription, got %v", msg)
	}
	if msg := receive(t, conn); msg["type"] != "asl_translation" {
		t.Fatalf("Expected asl_translation, got %v", msg)
	}

	ctxs := speech.opened()
	if len(ctxs) != 1 {
		t.Fatalf("Expected one stream, got %d", len(ctxs))
	}
	if ctxs[0].Err() == nil {
		t.Error("Expected the stream context to be released after the final chunk")
	}
}

func TestHub_DisconnectReleasesStreamContext(t *testing.T) {
	speech := &contextSpeech{}
	env := newTestEnvWithSpeech(t, nil, speech)
	conn := env.dial(t, "session-1")

	chunk := base64.StdEncoding.EncodeToString([]byte("partial"))
	send(t, conn, map[string]interface{}{"type": "audio_chunk", "audio_data": chunk})
	if msg := receive(t, conn); msg["type"] != "processing" {
		t.Fatalf("Expected processing, got %v", msg)
	}
	waitFor(t, func() bool { return len(speech.opened()) == 1 })

	ctx := speech.opened()[0]
	if ctx.Err() != nil {
		t.Fatal("Stream context ended while the utterance was open")
	}

	conn.Close()
	waitFor(t, func() bool { return ctx.Err() != nil })
}

func TestHub_FinalChunkWithoutAudio(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.dial(t, "session-1")

	send(t, conn, map[string]interface{}{"type": "audio_chunk", "audio_data": "", "is_final": true})
	if msg := receive(t, conn); msg["type"] != "processing" {
		t.Fatalf("Expected processing, got %v", msg)
	}
	if msg := receive(t, conn); msg["type"] != "error" || msg["error_code"] != ErrorCodeTranscriptionFailed {
		t.Errorf("Expected transcription_failed, got %v", msg)
	}
}

func TestHub_SessionGrouping(t *testing.T) {
	env := newTestEnv(t, nil)

	a1 := env.dial(t, "a")
	a2 := env.dial(t, "a")
	b := env.dial(t, "b")

	waitFor(t, func() bool { return env.hub.ClientCount() == 3 })
	if got := env.hub.SessionClientCount("a"); got != 2 {
		t.Errorf("SessionClientCount(a) = %d, want 2", got)
	}

	if sent := env.hub.BroadcastToSession("a", CreateTranscriptionMessage("for a")); sent != 2 {
		t.Errorf("BroadcastToSession sent %d, want 2", sent)
	}
	for _, conn := range []*websocket.Conn{a1, a2} {
		if msg := receive(t, conn); msg["text"] != "for a" {
			t.Errorf("Unexpected message %v", msg)
		}
	}

	if sent := env.hub.Broadcast(CreatePongMessage("all")); sent != 3 {
		t.Errorf("Broadcast sent %d, want 3", sent)
	}
	for _, conn := range []*websocket.Conn{a1, a2, b} {
		if msg := receive(t, conn); msg["type"] != "pong" {
			t.Errorf("Unexpected message %v", msg)
		}
	}

	b.Close()
	waitFor(t, func() bool { return env.hub.ClientCount() == 2 })
	if got := env.hub.SessionClientCount("b"); got != 0 {
		t.Errorf("SessionClientCount(b) = %d, want 0", got)
	}
}

func TestHub_SendToClient(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.dial(t, "s")
	waitFor(t, func() bool { return env.hub.ClientCount() == 1 })

	var id string
	env.hub.mu.RLock()
	for clientID := range env.hub.clients {
		id = clientID
	}
	env.hub.mu.RUnlock()

	if !env.hub.SendToClient(id, CreateTranscriptionMessage("direct")) {
		t.Fatal("SendToClient returned false")
	}
	if msg := receive(t, conn); msg["text"] != "direct" {
		t.Errorf("Unexpected message %v", msg)
	}
	if env.hub.SendToClient("missing", CreatePongMessage("")) {
		t.Error("Expected false for unknown client")
	}
}

func TestHub_OriginCheck(t *testing.T) {
	env := newTestEnv(t, []string{"http://allowed.example"})
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/s"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("Expected disallowed origin to be rejected")
	}

	header = http.Header{"Origin": []string{"http://allowed.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Expected allowed origin to connect: %v", err)
	}
	conn.Close()
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	logger := zap.NewNop()
	hub := NewHub(nil, nil, logger)
	ctx, cancel := context.WithCancel(context.Background())

	e := echo.New()
	e.GET("/ws/:session_id", func(c echo.Context) error {
		return HandleWebSocket(hub, c, c.Param("session_id"))
	})
	server := httptest.NewServer(e)
	defer server.Close()

	go hub.Run(ctx)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/s"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	cancel()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure) {
		t.Errorf("Expected close frame, got %v", err)
	}
}

package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/echolearn/server/domain/entities"
	"github.com/echolearn/server/domain/repositories"
	"github.com/echolearn/server/internal/observability"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks

	// Time allowed for one translation or transcription round trip.
	processTimeout = 30 * time.Second

	// Lifetime of one live transcription stream.
	streamTimeout = 5 * time.Minute

	sendBufferSize = 256
)

// LearningService is the part of the learning use case the live channel needs
type LearningService interface {
	TranslateToSign(ctx context.Context, text string) (entities.TranslationResult, error)
	OpenTranscriptionStream(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error)
	AppendLiveTranscript(ctx context.Context, sessionID, segment string) (entities.TranslationResult, error)
}

// Hub maintains the set of active clients, grouped by learning session.
type Hub struct {
	// Registered clients by client ID.
	clients map[string]*Client

	// Client IDs by session ID.
	sessions map[string]map[string]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients and sessions
	mu sync.RWMutex

	service   LearningService
	validator *MessageValidator
	upgrader  websocket.Upgrader

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub. An empty allowedOrigins list, or one
// containing "*", accepts any origin.
func NewHub(service LearningService, allowedOrigins []string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients:    make(map[string]*Client),
		sessions:   make(map[string]map[string]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		service:    service,
		validator:  NewMessageValidator(),
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:     originChecker(allowedOrigins),
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Run starts the hub's main loop. It returns when ctx is done, closing every
// remaining client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			if h.sessions[client.sessionID] == nil {
				h.sessions[client.sessionID] = make(map[string]struct{})
			}
			h.sessions[client.sessionID][client.id] = struct{}{}
			h.mu.Unlock()
			observability.ConnectionOpened()
			h.logger.Info("Client registered",
				zap.String("clientID", client.id),
				zap.String("sessionID", client.sessionID))

		case client := <-h.unregister:
			h.remove(client)

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				client.shutdown()
				observability.ConnectionClosed()
			}
			h.sessions = make(map[string]map[string]struct{})
			h.mu.Unlock()
			h.logger.Info("WebSocket hub stopped")
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.id]; !ok {
		return
	}
	delete(h.clients, client.id)
	if members, ok := h.sessions[client.sessionID]; ok {
		delete(members, client.id)
		if len(members) == 0 {
			delete(h.sessions, client.sessionID)
		}
	}
	client.shutdown()
	observability.ConnectionClosed()
	h.logger.Info("Client unregistered",
		zap.String("clientID", client.id),
		zap.String("sessionID", client.sessionID))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionClientCount returns the number of clients attached to a session
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// SendToClient delivers msg to one client
func (h *Hub) SendToClient(clientID string, msg interface{}) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal message", zap.Error(err))
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[clientID]
	if !ok {
		return false
	}
	return client.enqueue(payload)
}

// BroadcastToSession delivers msg to every client attached to sessionID and
// returns how many received it.
func (h *Hub) BroadcastToSession(sessionID string, msg interface{}) int {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal message", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for id := range h.sessions[sessionID] {
		if h.clients[id].enqueue(payload) {
			sent++
		}
	}
	return sent
}

// Broadcast delivers msg to every connected client
func (h *Hub) Broadcast(msg interface{}) int {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal message", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, client := range h.clients {
		if client.enqueue(payload) {
			sent++
		}
	}
	return sent
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Closed once the hub drops the client.
	done      chan struct{}
	closeOnce sync.Once

	id        string
	sessionID string

	logger *zap.Logger

	// Live transcription stream for the utterance in progress. cancelStream
	// ends the context the stream was opened with.
	stream       repositories.SpeechToTextStreaming
	cancelStream context.CancelFunc
	chunkCount   int

	mutex sync.Mutex
}

// HandleWebSocket upgrades the request and attaches the connection to
// sessionID.
func HandleWebSocket(hub *Hub, c echo.Context, sessionID string) error {
	conn, err := hub.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	id := uuid.NewString()
	client := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan WriteData, sendBufferSize),
		done:      make(chan struct{}),
		id:        id,
		sessionID: sessionID,
		logger:    hub.logger.With(zap.String("clientID", id), zap.String("sessionID", sessionID)),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
// Messages are handled in order on this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.closeStream()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			// raw audio with default settings, never final
			c.handleAudio(message, repositories.AudioConfig{SampleRate: defaultSampleRate, Encoding: defaultEncoding}, false)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
		return true
	default:
		c.logger.Warn("Send buffer full, dropping message")
		return false
	}
}

// reply sends msg to this client only
func (c *Client) reply(msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	c.enqueue(payload)
}

func (c *Client) replyError(code, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.reply(CreateErrorMessage(code, message, details))
}

// processMessage processes incoming JSON messages from the client
func (c *Client) processMessage(message []byte) {
	parsed, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		code := ErrorCodeInvalidMessage
		if verr, ok := err.(*ValidationError); ok {
			code = verr.Code
		}
		c.logger.Debug("Rejected message", zap.Error(err))
		c.replyError(code, err.Error(), nil)
		return
	}

	switch msg := parsed.(type) {
	case *TextInputMessage:
		c.handleTextInput(msg)
	case *AudioChunkMessage:
		c.handleAudio(msg.Audio(), repositories.AudioConfig{
			SampleRate: msg.SampleRate,
			Encoding:   msg.Encoding,
			Language:   msg.Language,
		}, msg.IsFinal)
	case *PingMessage:
		c.reply(CreatePongMessage(msg.Data))
	}
}

func (c *Client) handleTextInput(msg *TextInputMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	result, err := c.hub.service.TranslateToSign(ctx, msg.Text)
	if err != nil {
		c.logger.Error("Sign translation failed", zap.Error(err))
		c.replyError(ErrorCodeTranslationFailed, "Failed to translate text", err)
		return
	}
	c.reply(CreateASLTranslationMessage(result))
}

// handleAudio feeds a chunk into the client's live stream, opening one when
// needed. A final chunk closes the stream and emits the transcript followed
// by its sign translation.
func (c *Client) handleAudio(audio []byte, config repositories.AudioConfig, final bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.reply(CreateProcessingMessage())

	if c.stream == nil {
		// the stream outlives this call, so it gets its own context
		ctx, cancel := context.WithTimeout(context.Background(), streamTimeout)
		stream, err := c.hub.service.OpenTranscriptionStream(ctx, config)
		if err != nil {
			cancel()
			c.logger.Error("Failed to open transcription stream", zap.Error(err))
			c.replyError(ErrorCodeTranscriptionFailed, "Failed to start transcription", err)
			return
		}
		c.stream = stream
		c.cancelStream = cancel
		c.chunkCount = 0
	}

	if len(audio) > 0 {
		if err := c.stream.Stream(audio); err != nil {
			c.logger.Error("Failed to stream audio data", zap.Error(err))
			c.endStream()
			c.replyError(ErrorCodeTranscriptionFailed, "Failed to process audio", err)
			return
		}
		c.chunkCount++
	}

	if !final {
		return
	}

	text, err := c.endStream()
	if err != nil {
		c.logger.Error("Transcription failed", zap.Int("chunks", c.chunkCount), zap.Error(err))
		c.replyError(ErrorCodeTranscriptionFailed, "Failed to transcribe audio", err)
		return
	}
	c.logger.Info("Utterance transcribed", zap.Int("chunks", c.chunkCount), zap.Int("length", len(text)))
	c.reply(CreateTranscriptionMessage(text))

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()
	result, err := c.hub.service.AppendLiveTranscript(ctx, c.sessionID, text)
	if err != nil {
		c.logger.Error("Failed to record live transcript", zap.Error(err))
		c.replyError(ErrorCodeTranslationFailed, "Failed to translate transcript", err)
		return
	}
	c.reply(CreateASLTranslationMessage(result))
}

// endStream finishes the open stream and releases its context. The caller
// holds c.mutex.
func (c *Client) endStream() (string, error) {
	stream, cancel := c.stream, c.cancelStream
	c.stream, c.cancelStream = nil, nil
	defer cancel()
	return stream.End()
}

// closeStream releases an utterance left open by a disconnect
func (c *Client) closeStream() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.stream == nil {
		return
	}
	if _, err := c.endStream(); err != nil {
		c.logger.Debug("Abandoned stream closed with error", zap.Error(err))
	}
}

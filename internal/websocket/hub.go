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

	"github.com/hanzigo/backend/domain/entities"
	"github.com/hanzigo/backend/domain/repositories"
	"github.com/hanzigo/backend/internal/audio"
	"github.com/hanzigo/backend/internal/observability"
	"github.com/hanzigo/backend/usecase"
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
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients and owns the shared provider
// adapters each per-client controller is wired to.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	chat        repositories.ChatModel
	speech      repositories.SpeechSynthesizer
	transcriber repositories.Transcriber
	sessionRepo repositories.SessionRepository
	metrics     *observability.Metrics

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(
	chat repositories.ChatModel,
	speech repositories.SpeechSynthesizer,
	transcriber repositories.Transcriber,
	sessionRepo repositories.SessionRepository,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		chat:        chat,
		speech:      speech,
		transcriber: transcriber,
		sessionRepo: sessionRepo,
		metrics:     metrics,
		logger:      logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.ActiveConnections.Inc()
			}
			h.logger.Info("Client registered", zap.String("clientId", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.ActiveConnections.Dec()
			}
			h.logger.Info("Client unregistered", zap.String("clientId", client.id))
		}
	}
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the tutor
// controller. It implements usecase.Events by translating controller
// callbacks into outbound frames.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	id    string
	tutor *usecase.TutorService

	logger *zap.Logger
}

// HandleWebSocket handles websocket requests from the peer.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan WriteData, 256),
		id:     uuid.NewString(),
		logger: logger,
	}

	queue := audio.NewPlaybackQueue(client.newSpeechSink, logger)
	client.tutor = usecase.NewTutorService(
		hub.chat,
		hub.speech,
		hub.transcriber,
		hub.sessionRepo,
		queue,
		client,
		hub.metrics,
		logger,
		c.QueryParam("lang"),
	)

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the controller.
func (c *Client) readPump() {
	defer func() {
		c.tutor.Close()
		c.hub.unregister <- c
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.tutor.AppendAudio(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the controller to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage dispatches one inbound control frame.
func (c *Client) processMessage(message []byte) {
	msg, err := ParseClientMessage(message)
	if err != nil {
		c.logger.Warn("Dropping malformed client message", zap.Error(err))
		c.TurnError("bad_message", err.Error())
		return
	}

	switch msg.Type {
	case ClientMessageSendMessage:
		c.tutor.SendMessage(msg.Text, msg.Voice)
	case ClientMessageStartRecording:
		c.tutor.StartRecording(msg.MIMEType)
	case ClientMessageStopRecording:
		c.tutor.StopRecording()
	case ClientMessageNewChat:
		c.tutor.NewChat()
	case ClientMessageOpenSession:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		c.tutor.OpenSession(ctx, msg.SessionID)
		cancel()
	case ClientMessageSetMode:
		c.tutor.SetMode(msg.Voice)
	case ClientMessageStopAudio:
		c.tutor.StopAudio()
	default:
		c.logger.Warn("Unknown message type", zap.String("type", string(msg.Type)))
	}
}

// enqueueFrame queues an outbound frame, dropping it if the client cannot
// keep up. Dropping a frame is always safer than blocking the pipeline.
func (c *Client) enqueueFrame(frameType int, payload []byte) {
	select {
	case c.send <- WriteData{Type: frameType, Payload: payload}:
	default:
		c.logger.Warn("Dropping frame for slow client", zap.String("clientId", c.id))
	}
}

func (c *Client) sendJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal outbound message", zap.Error(err))
		return
	}
	c.enqueueFrame(websocket.TextMessage, payload)
}

// TextDelta implements usecase.Events
func (c *Client) TextDelta(sessionID, text string) {
	c.sendJSON(TextDeltaMessage{Type: ServerMessageTextDelta, SessionID: sessionID, Text: text})
}

// MessageFinal implements usecase.Events
func (c *Client) MessageFinal(sessionID string, message entities.ChatMessage) {
	c.sendJSON(MessageFinalMessage{Type: ServerMessageMessageFinal, SessionID: sessionID, Message: message})
}

// Transcript implements usecase.Events
func (c *Client) Transcript(text string) {
	c.sendJSON(TranscriptMessage{Type: ServerMessageTranscript, Text: text})
}

// SessionChanged implements usecase.Events
func (c *Client) SessionChanged(session *entities.TutorSession) {
	c.sendJSON(SessionMessage{Type: ServerMessageSession, Session: session})
}

// TurnError implements usecase.Events
func (c *Client) TurnError(code, detail string) {
	c.sendJSON(ErrorMessage{Type: ServerMessageError, Code: code, Detail: detail})
}

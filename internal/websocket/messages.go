package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/hanzigo/backend/domain/entities"
)

// ClientMessageType is the type tag of an inbound control frame.
type ClientMessageType string

// Control frames the browser can send. Binary frames carry encoded audio
// while a recording is open and have no JSON envelope.
const (
	ClientMessageSendMessage    ClientMessageType = "send_message"
	ClientMessageStartRecording ClientMessageType = "start_recording"
	ClientMessageStopRecording  ClientMessageType = "stop_recording"
	ClientMessageNewChat        ClientMessageType = "new_chat"
	ClientMessageOpenSession    ClientMessageType = "open_session"
	ClientMessageSetMode        ClientMessageType = "set_mode"
	ClientMessageStopAudio      ClientMessageType = "stop_audio"
)

// ClientMessage is the envelope of every inbound control frame. Fields are a
// union; each message type reads the ones it needs.
type ClientMessage struct {
	Type      ClientMessageType `json:"type"`
	Text      string            `json:"text,omitempty"`
	Voice     bool              `json:"voice,omitempty"`
	MIMEType  string            `json:"mime_type,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
}

// ParseClientMessage decodes and minimally validates an inbound frame.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("message missing type field")
	}
	if msg.Type == ClientMessageOpenSession && msg.SessionID == "" {
		return nil, fmt.Errorf("open_session requires session_id")
	}
	return &msg, nil
}

// ServerMessageType is the type tag of an outbound text frame.
type ServerMessageType string

// Frames the server sends. Speech audio itself travels as binary PCM frames
// bracketed by speaking_start and speaking_end.
const (
	ServerMessageTextDelta     ServerMessageType = "text_delta"
	ServerMessageMessageFinal  ServerMessageType = "message_final"
	ServerMessageTranscript    ServerMessageType = "transcript"
	ServerMessageSpeakingStart ServerMessageType = "speaking_start"
	ServerMessageSpeakingEnd   ServerMessageType = "speaking_end"
	ServerMessageSession       ServerMessageType = "session"
	ServerMessageError         ServerMessageType = "error"
)

// TextDeltaMessage carries the full visible prose accumulated so far.
type TextDeltaMessage struct {
	Type      ServerMessageType `json:"type"`
	SessionID string            `json:"session_id"`
	Text      string            `json:"text"`
}

// MessageFinalMessage delivers the completed model turn.
type MessageFinalMessage struct {
	Type      ServerMessageType    `json:"type"`
	SessionID string               `json:"session_id"`
	Message   entities.ChatMessage `json:"message"`
}

// TranscriptMessage delivers the text recovered from a recording.
type TranscriptMessage struct {
	Type ServerMessageType `json:"type"`
	Text string            `json:"text"`
}

// SpeakingMessage brackets a run of binary PCM frames.
type SpeakingMessage struct {
	Type ServerMessageType `json:"type"`
}

// SessionMessage announces the active session; Session is null after a new
// chat.
type SessionMessage struct {
	Type    ServerMessageType      `json:"type"`
	Session *entities.TutorSession `json:"session"`
}

// ErrorMessage reports a soft failure. The connection stays up.
type ErrorMessage struct {
	Type   ServerMessageType `json:"type"`
	Code   string            `json:"code"`
	Detail string            `json:"detail"`
}

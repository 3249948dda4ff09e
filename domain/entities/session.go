package entities

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	MessageRoleUser  MessageRole = "user"
	MessageRoleModel MessageRole = "model"
)

const titleMaxRunes = 20

// VocabEntry is a vocabulary card extracted from a tutor reply.
type VocabEntry struct {
	Word    string `json:"word" bson:"word"`
	Pinyin  string `json:"pinyin" bson:"pinyin"`
	Meaning string `json:"meaning" bson:"meaning"`
}

// Analysis is the grammar correction block attached to a tutor reply when the
// user's sentence needed fixing.
type Analysis struct {
	Original    string `json:"original" bson:"original"`
	Correction  string `json:"correction" bson:"correction"`
	Explanation string `json:"explanation" bson:"explanation"`
}

// ChatMessage is a single turn in a tutor conversation. Model messages carry
// the optional vocabulary and analysis payloads parsed out of the stream.
type ChatMessage struct {
	Role      MessageRole  `json:"role" bson:"role"`
	Text      string       `json:"text" bson:"text"`
	Timestamp time.Time    `json:"timestamp" bson:"timestamp"`
	Vocab     []VocabEntry `json:"vocab,omitempty" bson:"vocab,omitempty"`
	Analysis  *Analysis    `json:"analysis,omitempty" bson:"analysis,omitempty"`
}

// TutorSession is one conversation with the tutor. Messages are replaced
// wholesale after each completed turn; an archived session is never mutated
// beyond that.
type TutorSession struct {
	ID       string        `json:"id" bson:"_id"`
	Title    string        `json:"title" bson:"title"`
	Date     time.Time     `json:"date" bson:"date"`
	Messages []ChatMessage `json:"messages" bson:"messages"`
}

// NewTutorSession creates a session titled after the opening user message.
func NewTutorSession(firstUserText string) *TutorSession {
	return &TutorSession{
		ID:       uuid.NewString(),
		Title:    deriveTitle(firstUserText),
		Date:     time.Now(),
		Messages: make([]ChatMessage, 0),
	}
}

// ReplaceMessages swaps the full message list after a completed turn.
func (s *TutorSession) ReplaceMessages(messages []ChatMessage) {
	s.Messages = messages
}

// History returns the conversation turns for LLM context.
func (s *TutorSession) History() []ChatMessage {
	return s.Messages
}

// Validate validates the session data.
func (s *TutorSession) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	if s.Title == "" {
		return errors.New("session title is required")
	}
	return nil
}

func deriveTitle(text string) string {
	if utf8.RuneCountInString(text) <= titleMaxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:titleMaxRunes]) + "..."
}

package gemini

import (
	"context"
	"strings"
	"sync"

	"github.com/hanzigo/backend/domain/entities"
	"github.com/hanzigo/backend/domain/repositories"
)

// MockChatModel is a scripted ChatModel for testing and offline development.
// Each call to StreamReply plays back the next script entry, fragment by
// fragment.
type MockChatModel struct {
	Scripts [][]string
	calls   int
}

// NewMockChatModel creates a mock chat model from pre-split fragment scripts.
func NewMockChatModel(scripts ...[]string) *MockChatModel {
	return &MockChatModel{Scripts: scripts}
}

// StreamReply implements repositories.ChatModel.
func (m *MockChatModel) StreamReply(ctx context.Context, history []entities.ChatMessage, locale string, onDelta func(string) error) error {
	var script []string
	if m.calls < len(m.Scripts) {
		script = m.Scripts[m.calls]
	} else {
		script = []string{"你好！很高兴见到你。"}
	}
	m.calls++

	for _, fragment := range script {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := onDelta(fragment); err != nil {
			return err
		}
	}
	return nil
}

var _ repositories.ChatModel = (*MockChatModel)(nil)

// MockSpeechSynthesizer returns a fixed PCM payload per request, recording
// the texts it was asked to speak.
type MockSpeechSynthesizer struct {
	mu       sync.Mutex
	requests []string
	Err      error
}

// Synthesize implements repositories.SpeechSynthesizer.
func (m *MockSpeechSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.mu.Lock()
	m.requests = append(m.requests, text)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	// Two silent samples per request; enough to be a valid buffer.
	return []byte{0x00, 0x00, 0x00, 0x00}, nil
}

// Requests returns the texts synthesized so far, in order.
func (m *MockSpeechSynthesizer) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.requests))
	copy(out, m.requests)
	return out
}

var _ repositories.SpeechSynthesizer = (*MockSpeechSynthesizer)(nil)

// MockTranscriber returns a canned transcript regardless of the audio.
type MockTranscriber struct {
	Transcript string
	Err        error
}

// Transcribe implements repositories.Transcriber.
func (m *MockTranscriber) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return strings.TrimSpace(m.Transcript), nil
}

var _ repositories.Transcriber = (*MockTranscriber)(nil)

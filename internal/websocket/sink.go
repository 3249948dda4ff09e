package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hanzigo/backend/internal/audio"
)

// speakingEndDebounce is how long the sink waits after the last buffer
// before declaring the speech run over. Gapless chaining means the next
// buffer normally arrives immediately.
const speakingEndDebounce = 250 * time.Millisecond

// speechSink ships decoded PCM to the browser as binary frames. Play blocks
// for the buffer's duration so the playback queue's one-at-a-time pacing
// carries over the wire. A run of buffers is bracketed by speaking_start and
// speaking_end frames.
type speechSink struct {
	client *Client

	mu       sync.Mutex
	speaking bool
	endTimer *time.Timer
}

var _ audio.Sink = (*speechSink)(nil)

// newSpeechSink is the SinkFactory for this client's playback queue.
func (c *Client) newSpeechSink() (audio.Sink, error) {
	return &speechSink{client: c}, nil
}

func (s *speechSink) Play(ctx context.Context, buffer *audio.Buffer) error {
	s.mu.Lock()
	if s.endTimer != nil {
		s.endTimer.Stop()
		s.endTimer = nil
	}
	if !s.speaking {
		s.speaking = true
		s.client.sendJSON(SpeakingMessage{Type: ServerMessageSpeakingStart})
	}
	s.mu.Unlock()

	s.client.enqueueFrame(websocket.BinaryMessage, buffer.PCM)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(buffer.Duration()):
	}

	s.mu.Lock()
	s.endTimer = time.AfterFunc(speakingEndDebounce, s.finishRun)
	s.mu.Unlock()
	return nil
}

func (s *speechSink) Close() error {
	s.mu.Lock()
	if s.endTimer != nil {
		s.endTimer.Stop()
		s.endTimer = nil
	}
	speaking := s.speaking
	s.speaking = false
	s.mu.Unlock()

	if speaking {
		s.client.sendJSON(SpeakingMessage{Type: ServerMessageSpeakingEnd})
	}
	return nil
}

// finishRun fires when no buffer followed within the debounce window.
func (s *speechSink) finishRun() {
	s.mu.Lock()
	if !s.speaking {
		s.mu.Unlock()
		return
	}
	s.speaking = false
	s.endTimer = nil
	s.mu.Unlock()

	s.client.sendJSON(SpeakingMessage{Type: ServerMessageSpeakingEnd})
}

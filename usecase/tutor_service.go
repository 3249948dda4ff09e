package usecase

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hanzigo/backend/domain/entities"
	"github.com/hanzigo/backend/domain/repositories"
	"github.com/hanzigo/backend/internal/audio"
	"github.com/hanzigo/backend/internal/observability"
	"github.com/hanzigo/backend/internal/stream"
)

// State is the controller's lifecycle position. Only one streaming turn or
// one recording can be in flight per controller.
type State string

const (
	StateIdle         State = "IDLE"
	StateStreaming    State = "STREAMING"
	StateRecording    State = "RECORDING"
	StateTranscribing State = "TRANSCRIBING"
)

// sentenceBacklog bounds how many unsynthesized sentences can pile up ahead
// of the single synthesis worker. A full backlog blocks the stream reader,
// which is the back-pressure we want.
const sentenceBacklog = 8

// Events is the outbound boundary to the connected client. Implementations
// must be safe to call from the controller's goroutines.
type Events interface {
	// TextDelta carries the full visible prose accumulated so far.
	TextDelta(sessionID, text string)
	// MessageFinal delivers the completed model turn.
	MessageFinal(sessionID string, message entities.ChatMessage)
	// Transcript delivers the text recovered from a voice capture.
	Transcript(text string)
	// SessionChanged announces the active session, nil after a new chat.
	SessionChanged(session *entities.TutorSession)
	// TurnError reports a soft failure. The connection stays up.
	TurnError(code, detail string)
}

// turn is the per-stream bookkeeping for one model reply.
type turn struct {
	cancel    context.CancelFunc
	sentences chan string
	done      chan struct{}
	mute      atomic.Bool
}

// TutorService drives one client's tutoring conversation: it owns the state
// machine, the in-flight stream, the sentence dispatch into speech synthesis
// and the playback queue. Every user action cancels whatever was running
// before it starts anything new.
type TutorService struct {
	chat        repositories.ChatModel
	speech      repositories.SpeechSynthesizer
	transcriber repositories.Transcriber
	sessions    repositories.SessionRepository
	queue       *audio.PlaybackQueue
	events      Events
	metrics     *observability.Metrics
	logger      *zap.Logger
	locale      string

	mu            sync.Mutex
	state         State
	session       *entities.TutorSession
	messages      []entities.ChatMessage
	voiceMode     bool
	recording     bytes.Buffer
	recordingMIME string
	activeTurn    *turn
}

// NewTutorService creates an idle controller for one client connection.
// metrics may be nil in tests.
func NewTutorService(
	chat repositories.ChatModel,
	speech repositories.SpeechSynthesizer,
	transcriber repositories.Transcriber,
	sessions repositories.SessionRepository,
	queue *audio.PlaybackQueue,
	events Events,
	metrics *observability.Metrics,
	logger *zap.Logger,
	locale string,
) *TutorService {
	if locale == "" {
		locale = "en"
	}
	return &TutorService{
		chat:        chat,
		speech:      speech,
		transcriber: transcriber,
		sessions:    sessions,
		queue:       queue,
		events:      events,
		metrics:     metrics,
		logger:      logger,
		locale:      locale,
		state:       StateIdle,
		voiceMode:   true,
	}
}

// State returns the current lifecycle state.
func (s *TutorService) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SendMessage starts a tutor turn for a typed or transcribed user message.
// Any running turn is cancelled first; blank input is ignored.
func (s *TutorService) SendMessage(text string, voice bool) {
	text = strings.TrimSpace(text)
	s.interrupt()
	if text == "" {
		return
	}

	s.mu.Lock()
	if s.session == nil {
		s.session = entities.NewTutorSession(text)
		s.events.SessionChanged(s.session)
	}
	userMessage := entities.ChatMessage{
		Role:      entities.MessageRoleUser,
		Text:      text,
		Timestamp: time.Now(),
	}
	s.messages = append(s.messages, userMessage)
	history := make([]entities.ChatMessage, len(s.messages))
	copy(history, s.messages)
	sessionID := s.session.ID

	ctx, cancel := context.WithCancel(context.Background())
	t := &turn{
		cancel:    cancel,
		sentences: make(chan string, sentenceBacklog),
		done:      make(chan struct{}),
	}
	if !voice || !s.voiceMode {
		t.mute.Store(true)
	}
	s.activeTurn = t
	s.state = StateStreaming
	s.mu.Unlock()

	s.countTurn("started")
	go s.runTurn(ctx, t, sessionID, history)
}

// StartRecording clears any running turn and begins buffering audio frames.
func (s *TutorService) StartRecording(mimeType string) {
	s.interrupt()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording.Reset()
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	s.recordingMIME = mimeType
	s.state = StateRecording
}

// AppendAudio buffers one encoded frame of the in-progress recording.
// Frames arriving outside a recording are dropped.
func (s *TutorService) AppendAudio(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return
	}
	s.recording.Write(data)
}

// StopRecording finishes the capture and hands it to the transcriber. An
// empty capture or an empty transcript returns silently to idle; a provider
// failure is reported as a soft error.
func (s *TutorService) StopRecording() {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	data := make([]byte, s.recording.Len())
	copy(data, s.recording.Bytes())
	s.recording.Reset()
	mimeType := s.recordingMIME
	if len(data) == 0 {
		s.state = StateIdle
		s.mu.Unlock()
		return
	}
	s.state = StateTranscribing
	s.mu.Unlock()

	go s.transcribe(data, mimeType)
}

// NewChat drops the active session. The next message starts a fresh one.
func (s *TutorService) NewChat() {
	s.interrupt()

	s.mu.Lock()
	s.session = nil
	s.messages = nil
	s.mu.Unlock()

	s.events.SessionChanged(nil)
}

// OpenSession loads an archived session and makes it current.
func (s *TutorService) OpenSession(ctx context.Context, id string) {
	s.interrupt()

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load session", zap.String("sessionId", id), zap.Error(err))
		s.events.TurnError("session_load_failed", "could not load the requested session")
		return
	}
	if session == nil {
		s.events.TurnError("session_not_found", fmt.Sprintf("no session with id %s", id))
		return
	}

	s.mu.Lock()
	s.session = session
	s.messages = append([]entities.ChatMessage(nil), session.History()...)
	s.mu.Unlock()

	s.events.SessionChanged(session)
}

// SetMode switches spoken replies on or off. Switching always silences
// whatever is currently playing.
func (s *TutorService) SetMode(voice bool) {
	s.queue.StopAll()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.voiceMode = voice
	if t := s.activeTurn; t != nil && !voice {
		t.mute.Store(true)
	}
}

// StopAudio silences playback for the current turn without touching the
// text stream.
func (s *TutorService) StopAudio() {
	s.mu.Lock()
	if t := s.activeTurn; t != nil {
		t.mute.Store(true)
	}
	s.mu.Unlock()

	s.queue.StopAll()
}

// Close tears the controller down when the client disconnects.
func (s *TutorService) Close() {
	s.interrupt()
}

// interrupt is the shared preamble of every user action: stop all audio
// immediately and abandon the in-flight turn, waiting for its goroutines to
// unwind so no stale fragment crosses into the new action.
func (s *TutorService) interrupt() {
	s.mu.Lock()
	t := s.activeTurn
	s.activeTurn = nil
	s.state = StateIdle
	s.mu.Unlock()

	s.queue.StopAll()

	if t != nil {
		t.cancel()
		<-t.done
	}
}

// runTurn owns one streaming reply from first fragment to persistence.
func (s *TutorService) runTurn(ctx context.Context, t *turn, sessionID string, history []entities.ChatMessage) {
	defer close(t.done)

	parser := stream.NewParser(s.logger)
	started := time.Now()

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		s.synthesizeSentences(ctx, t, started)
	}()

	committed := 0
	streamErr := s.chat.StreamReply(ctx, history, s.locale, func(fragment string) error {
		visible := parser.Ingest(fragment)
		s.events.TextDelta(sessionID, visible)

		// Closing a tag can shrink the visible prose below what was
		// already spoken. Clamp rather than re-speak.
		if committed > len(visible) {
			committed = len(visible)
		}

		for {
			boundary := stream.NextBoundary(visible[committed:])
			if boundary < 0 {
				break
			}
			sentence := strings.TrimSpace(visible[committed : committed+boundary])
			committed += boundary
			if sentence == "" {
				continue
			}
			select {
			case t.sentences <- sentence:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	if streamErr != nil {
		close(t.sentences)
		workers.Wait()
		if ctx.Err() != nil {
			// Cancelled by a newer user action; nothing to report.
			return
		}
		s.logger.Error("Tutor stream failed", zap.String("sessionId", sessionID), zap.Error(streamErr))
		s.countTurn("failed")
		s.countProviderError("gemini", "chat_stream")
		s.events.TurnError("stream_failed", "the tutor could not finish its reply")
		s.finishTurn(t)
		return
	}

	// Flush whatever trails the last sentence marker.
	visible := parser.Ingest("")
	if committed < len(visible) {
		if remainder := strings.TrimSpace(visible[committed:]); remainder != "" {
			select {
			case t.sentences <- remainder:
			case <-ctx.Done():
			}
		}
	}
	close(t.sentences)
	workers.Wait()

	if ctx.Err() != nil {
		return
	}

	reply := parser.Finalize()
	modelMessage := entities.ChatMessage{
		Role:      entities.MessageRoleModel,
		Text:      reply.Text,
		Timestamp: time.Now(),
		Vocab:     reply.Vocab,
		Analysis:  reply.Analysis,
	}

	s.mu.Lock()
	if s.activeTurn == t {
		s.messages = append(s.messages, modelMessage)
		if s.session != nil && s.session.ID == sessionID {
			s.session.ReplaceMessages(s.messages)
		}
	}
	session := s.session
	s.mu.Unlock()

	if session != nil && session.ID == sessionID {
		persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.sessions.Upsert(persistCtx, session); err != nil {
			s.logger.Error("Failed to persist session", zap.String("sessionId", sessionID), zap.Error(err))
		}
		cancel()
	}

	s.events.MessageFinal(sessionID, modelMessage)
	s.countTurn("completed")
	s.finishTurn(t)
}

// synthesizeSentences is the single synthesis worker of a turn. It preserves
// arrival order and drops individual failed chunks.
func (s *TutorService) synthesizeSentences(ctx context.Context, t *turn, started time.Time) {
	firstChunk := true
	for sentence := range t.sentences {
		if ctx.Err() != nil || t.mute.Load() {
			continue
		}

		pcm, err := s.speech.Synthesize(ctx, sentence)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.logger.Warn("Dropping speech chunk after synthesis failure", zap.Error(err))
			s.countSpeechChunk("dropped")
			s.countProviderError("gemini", "synthesize")
			continue
		}

		buffer, err := audio.NewBuffer(pcm)
		if err != nil {
			s.logger.Warn("Dropping undecodable speech chunk", zap.Error(err))
			s.countSpeechChunk("dropped")
			continue
		}

		if t.mute.Load() {
			continue
		}
		if firstChunk {
			firstChunk = false
			if s.metrics != nil {
				s.metrics.ObserveFirstAudioLatency(time.Since(started))
			}
		}
		s.queue.Enqueue(buffer)
		s.countSpeechChunk("synthesized")
	}
}

// transcribe finishes the voice capture branch.
func (s *TutorService) transcribe(data []byte, mimeType string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	transcript, err := s.transcriber.Transcribe(ctx, data, mimeType)

	s.mu.Lock()
	if s.state == StateTranscribing {
		s.state = StateIdle
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Transcription failed", zap.Error(err))
		s.countTranscription("failed")
		s.countProviderError("stt", "transcribe")
		s.events.TurnError("transcription_failed", "could not understand the recording")
		return
	}
	if transcript == "" {
		s.countTranscription("empty")
		return
	}

	s.countTranscription("completed")
	s.events.Transcript(transcript)
	s.SendMessage(transcript, true)
}

// finishTurn returns the controller to idle if this turn is still current.
func (s *TutorService) finishTurn(t *turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeTurn == t {
		s.activeTurn = nil
		s.state = StateIdle
	}
}

func (s *TutorService) countTurn(outcome string) {
	if s.metrics != nil {
		s.metrics.TutorTurns.WithLabelValues(outcome).Inc()
	}
}

func (s *TutorService) countSpeechChunk(result string) {
	if s.metrics != nil {
		s.metrics.SpeechChunks.WithLabelValues(result).Inc()
	}
}

func (s *TutorService) countTranscription(result string) {
	if s.metrics != nil {
		s.metrics.Transcriptions.WithLabelValues(result).Inc()
	}
}

func (s *TutorService) countProviderError(provider, operation string) {
	if s.metrics != nil {
		s.metrics.ProviderErrors.WithLabelValues(provider, operation).Inc()
	}
}

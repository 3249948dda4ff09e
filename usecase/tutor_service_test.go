package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hanzigo/backend/adapters/gemini"
	"github.com/hanzigo/backend/domain/entities"
	"github.com/hanzigo/backend/internal/audio"
)

// fakeEvents records every controller callback.
type fakeEvents struct {
	mu          sync.Mutex
	deltas      []string
	finals      []entities.ChatMessage
	transcripts []string
	sessions    []*entities.TutorSession
	errors      []string
}

func (f *fakeEvents) TextDelta(sessionID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deltas = append(f.deltas, text)
}

func (f *fakeEvents) MessageFinal(sessionID string, message entities.ChatMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finals = append(f.finals, message)
}

func (f *fakeEvents) Transcript(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts = append(f.transcripts, text)
}

func (f *fakeEvents) SessionChanged(session *entities.TutorSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, session)
}

func (f *fakeEvents) TurnError(code, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, code)
}

func (f *fakeEvents) finalCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.finals)
}

func (f *fakeEvents) lastFinal() entities.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finals[len(f.finals)-1]
}

func (f *fakeEvents) errorCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.errors)
}

func (f *fakeEvents) transcriptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transcripts)
}

// fakeSessionRepo is an in-memory session store.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*entities.TutorSession
	upserts  int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*entities.TutorSession)}
}

func (r *fakeSessionRepo) Upsert(ctx context.Context, session *entities.TutorSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	r.upserts++
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id string) (*entities.TutorSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id], nil
}

func (r *fakeSessionRepo) List(ctx context.Context) ([]*entities.TutorSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.TutorSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) upsertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upserts
}

// nullSink discards audio instantly.
type nullSink struct{}

func (nullSink) Play(ctx context.Context, buffer *audio.Buffer) error { return nil }
func (nullSink) Close() error                                         { return nil }

func newTestQueue() *audio.PlaybackQueue {
	return audio.NewPlaybackQueue(func() (audio.Sink, error) { return nullSink{}, nil }, zap.NewNop())
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestTypedTurnStreamsSentencesInOrder(t *testing.T) {
	chat := gemini.NewMockChatModel([]string{
		"我很好",
		"。你呢",
		"？[VOCAB]{\"word\":\"好\",\"pinyin\":\"hǎo\",\"meaning\":\"good\"}[/VOCAB]",
	})
	speech := &gemini.MockSpeechSynthesizer{}
	repo := newFakeSessionRepo()
	events := &fakeEvents{}

	s := NewTutorService(chat, speech, &gemini.MockTranscriber{}, repo, newTestQueue(), events, nil, zap.NewNop(), "en")

	s.SendMessage("你好", true)
	waitFor(t, func() bool { return events.finalCount() == 1 && s.State() == StateIdle })

	final := events.lastFinal()
	if final.Text != "我很好。你呢？" {
		t.Errorf("Expected final text 我很好。你呢？, got %q", final.Text)
	}
	if len(final.Vocab) != 1 || final.Vocab[0].Word != "好" {
		t.Errorf("Expected one vocab entry for 好, got %v", final.Vocab)
	}
	if final.Analysis != nil {
		t.Errorf("Expected no analysis, got %v", final.Analysis)
	}

	requests := speech.Requests()
	if len(requests) != 2 || requests[0] != "我很好。" || requests[1] != "你呢？" {
		t.Errorf("Expected speech chunks [我很好。 你呢？], got %v", requests)
	}

	if repo.upsertCount() != 1 {
		t.Errorf("Expected one persisted session, got %d", repo.upsertCount())
	}
	sessions, _ := repo.List(context.Background())
	if len(sessions) != 1 {
		t.Fatalf("Expected one stored session, got %d", len(sessions))
	}
	if len(sessions[0].Messages) != 2 {
		t.Errorf("Expected session to hold user and model turns, got %d messages", len(sessions[0].Messages))
	}
	if sessions[0].Title != "你好" {
		t.Errorf("Expected session titled after the opening message, got %q", sessions[0].Title)
	}
}

func TestVocabTagSplitAcrossFragmentsNeverReachesSpeech(t *testing.T) {
	// The tag opens in one fragment and closes in a later one, so the
	// visible prose temporarily contains raw tag text and shrinks when the
	// tag finally closes.
	chat := gemini.NewMockChatModel([]string{
		"我很好",
		"。你呢？\n[VOCAB]{\"word\":\"好\",",
		"\"pinyin\":\"hǎo\",\"meaning\":\"good\"}[/VOCAB]",
	})
	speech := &gemini.MockSpeechSynthesizer{}
	events := &fakeEvents{}

	s := NewTutorService(chat, speech, &gemini.MockTranscriber{}, newFakeSessionRepo(), newTestQueue(), events, nil, zap.NewNop(), "en")

	s.SendMessage("你好", true)
	waitFor(t, func() bool { return events.finalCount() == 1 && s.State() == StateIdle })

	final := events.lastFinal()
	if final.Text != "我很好。你呢？" {
		t.Errorf("Expected final text 我很好。你呢？, got %q", final.Text)
	}
	if len(final.Vocab) != 1 || final.Vocab[0].Word != "好" {
		t.Errorf("Expected one vocab entry for 好, got %v", final.Vocab)
	}

	requests := speech.Requests()
	if len(requests) != 2 || requests[0] != "我很好。" || requests[1] != "你呢？" {
		t.Errorf("Expected speech chunks [我很好。 你呢？], got %v", requests)
	}
	for _, request := range requests {
		if strings.Contains(request, "[") {
			t.Errorf("Tag text leaked into speech: %q", request)
		}
	}
}

func TestBlankMessageIsIgnored(t *testing.T) {
	chat := gemini.NewMockChatModel()
	events := &fakeEvents{}
	repo := newFakeSessionRepo()

	s := NewTutorService(chat, &gemini.MockSpeechSynthesizer{}, &gemini.MockTranscriber{}, repo, newTestQueue(), events, nil, zap.NewNop(), "en")

	s.SendMessage("   ", true)

	if s.State() != StateIdle {
		t.Errorf("Expected controller to stay idle, got %s", s.State())
	}
	if events.finalCount() != 0 || repo.upsertCount() != 0 {
		t.Error("Expected no turn from a blank message")
	}
}

// failingChatModel errors mid-stream after a few fragments.
type failingChatModel struct{}

func (failingChatModel) StreamReply(ctx context.Context, history []entities.ChatMessage, locale string, onDelta func(string) error) error {
	if err := onDelta("你好。这"); err != nil {
		return err
	}
	return errors.New("stream interrupted")
}

func TestStreamFailureAbandonsTurn(t *testing.T) {
	events := &fakeEvents{}
	repo := newFakeSessionRepo()

	s := NewTutorService(failingChatModel{}, &gemini.MockSpeechSynthesizer{}, &gemini.MockTranscriber{}, repo, newTestQueue(), events, nil, zap.NewNop(), "en")

	s.SendMessage("你好", true)
	waitFor(t, func() bool { return events.errorCount() == 1 && s.State() == StateIdle })

	if events.finalCount() != 0 {
		t.Error("Expected no final message from a failed stream")
	}
	if repo.upsertCount() != 0 {
		t.Error("Expected a failed turn not to be persisted")
	}
}

func TestTextModeSkipsSynthesis(t *testing.T) {
	chat := gemini.NewMockChatModel([]string{"你好。再见。"})
	speech := &gemini.MockSpeechSynthesizer{}
	events := &fakeEvents{}

	s := NewTutorService(chat, speech, &gemini.MockTranscriber{}, newFakeSessionRepo(), newTestQueue(), events, nil, zap.NewNop(), "en")

	s.SendMessage("你好", false)
	waitFor(t, func() bool { return events.finalCount() == 1 })

	if len(speech.Requests()) != 0 {
		t.Errorf("Expected no synthesis in text mode, got %v", speech.Requests())
	}
}

func TestSynthesisFailureDoesNotBreakTheTurn(t *testing.T) {
	chat := gemini.NewMockChatModel([]string{"你好。再见。"})
	speech := &gemini.MockSpeechSynthesizer{Err: errors.New("synthesis unavailable")}
	events := &fakeEvents{}
	repo := newFakeSessionRepo()

	s := NewTutorService(chat, speech, &gemini.MockTranscriber{}, repo, newTestQueue(), events, nil, zap.NewNop(), "en")

	s.SendMessage("你好", true)
	waitFor(t, func() bool { return events.finalCount() == 1 && s.State() == StateIdle })

	if repo.upsertCount() != 1 {
		t.Error("Expected the turn to complete despite synthesis failures")
	}
}

func TestVoiceCaptureRunsFullTurn(t *testing.T) {
	chat := gemini.NewMockChatModel([]string{"很好！"})
	events := &fakeEvents{}
	repo := newFakeSessionRepo()

	s := NewTutorService(chat, &gemini.MockSpeechSynthesizer{}, &gemini.MockTranscriber{Transcript: "我很好"}, repo, newTestQueue(), events, nil, zap.NewNop(), "en")

	s.StartRecording("audio/webm")
	if s.State() != StateRecording {
		t.Fatalf("Expected RECORDING, got %s", s.State())
	}
	s.AppendAudio([]byte{0x01, 0x02})
	s.AppendAudio([]byte{0x03})
	s.StopRecording()

	waitFor(t, func() bool { return events.finalCount() == 1 && s.State() == StateIdle })

	if events.transcriptCount() != 1 {
		t.Errorf("Expected one transcript event, got %d", events.transcriptCount())
	}
	sessions, _ := repo.List(context.Background())
	if len(sessions) != 1 || sessions[0].Messages[0].Text != "我很好" {
		t.Error("Expected the transcript to become the user turn")
	}
}

func TestEmptyCaptureReturnsSilentlyToIdle(t *testing.T) {
	events := &fakeEvents{}

	s := NewTutorService(gemini.NewMockChatModel(), &gemini.MockSpeechSynthesizer{}, &gemini.MockTranscriber{}, newFakeSessionRepo(), newTestQueue(), events, nil, zap.NewNop(), "en")

	s.StartRecording("")
	s.StopRecording()

	if s.State() != StateIdle {
		t.Errorf("Expected IDLE after empty capture, got %s", s.State())
	}
	if events.transcriptCount() != 0 || events.errorCount() != 0 {
		t.Error("Expected no events from an empty capture")
	}
}

func TestEmptyTranscriptReturnsSilentlyToIdle(t *testing.T) {
	events := &fakeEvents{}

	s := NewTutorService(gemini.NewMockChatModel(), &gemini.MockSpeechSynthesizer{}, &gemini.MockTranscriber{Transcript: "  "}, newFakeSessionRepo(), newTestQueue(), events, nil, zap.NewNop(), "en")

	s.StartRecording("audio/webm")
	s.AppendAudio([]byte{0x01})
	s.StopRecording()

	waitFor(t, func() bool { return s.State() == StateIdle })
	time.Sleep(10 * time.Millisecond)

	if events.transcriptCount() != 0 || events.finalCount() != 0 {
		t.Error("Expected no turn from an empty transcript")
	}
}

func TestNewChatDropsSession(t *testing.T) {
	chat := gemini.NewMockChatModel([]string{"你好。"}, []string{"再见。"})
	events := &fakeEvents{}
	repo := newFakeSessionRepo()

	s := NewTutorService(chat, &gemini.MockSpeechSynthesizer{}, &gemini.MockTranscriber{}, repo, newTestQueue(), events, nil, zap.NewNop(), "en")

	s.SendMessage("第一", true)
	waitFor(t, func() bool { return events.finalCount() == 1 })

	s.NewChat()
	s.SendMessage("第二", true)
	waitFor(t, func() bool { return events.finalCount() == 2 })

	sessions, _ := repo.List(context.Background())
	if len(sessions) != 2 {
		t.Errorf("Expected two distinct sessions, got %d", len(sessions))
	}
}

func TestOpenSessionRestoresHistory(t *testing.T) {
	repo := newFakeSessionRepo()
	archived := entities.NewTutorSession("早上好")
	archived.ReplaceMessages([]entities.ChatMessage{
		{Role: entities.MessageRoleUser, Text: "早上好", Timestamp: time.Now()},
		{Role: entities.MessageRoleModel, Text: "早上好！", Timestamp: time.Now()},
	})
	if err := repo.Upsert(context.Background(), archived); err != nil {
		t.Fatal(err)
	}

	chat := gemini.NewMockChatModel([]string{"我们继续。"})
	events := &fakeEvents{}

	s := NewTutorService(chat, &gemini.MockSpeechSynthesizer{}, &gemini.MockTranscriber{}, repo, newTestQueue(), events, nil, zap.NewNop(), "en")

	s.OpenSession(context.Background(), archived.ID)
	s.SendMessage("继续", true)
	waitFor(t, func() bool { return events.finalCount() == 1 })

	stored, _ := repo.GetByID(context.Background(), archived.ID)
	if len(stored.Messages) != 4 {
		t.Errorf("Expected restored history plus the new turn, got %d messages", len(stored.Messages))
	}
}

func TestOpenUnknownSessionReportsError(t *testing.T) {
	events := &fakeEvents{}

	s := NewTutorService(gemini.NewMockChatModel(), &gemini.MockSpeechSynthesizer{}, &gemini.MockTranscriber{}, newFakeSessionRepo(), newTestQueue(), events, nil, zap.NewNop(), "en")

	s.OpenSession(context.Background(), "missing")

	if events.errorCount() != 1 {
		t.Errorf("Expected a soft error for an unknown session, got %d", events.errorCount())
	}
}

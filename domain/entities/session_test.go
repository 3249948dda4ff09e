package entities

import (
	"strings"
	"testing"
	"time"
)

func TestNewTutorSession(t *testing.T) {
	session := NewTutorSession("你好吗")

	if session.ID == "" {
		t.Error("Expected session ID to be generated")
	}

	if session.Title != "你好吗" {
		t.Errorf("Expected title 你好吗, got %s", session.Title)
	}

	if len(session.Messages) != 0 {
		t.Errorf("Expected empty messages, got %d messages", len(session.Messages))
	}

	other := NewTutorSession("你好吗")
	if other.ID == session.ID {
		t.Error("Expected session IDs to be unique")
	}
}

func TestNewTutorSessionTruncatesTitle(t *testing.T) {
	long := strings.Repeat("学", 30)
	session := NewTutorSession(long)

	if !strings.HasSuffix(session.Title, "...") {
		t.Errorf("Expected truncated title to end with ellipsis, got %s", session.Title)
	}

	runes := []rune(session.Title)
	if len(runes) != 23 {
		t.Errorf("Expected 20 runes plus ellipsis, got %d runes", len(runes))
	}
}

func TestReplaceMessages(t *testing.T) {
	session := NewTutorSession("first")
	session.ReplaceMessages([]ChatMessage{
		{Role: MessageRoleUser, Text: "你好吗", Timestamp: time.Now()},
		{Role: MessageRoleModel, Text: "我很好。你呢？", Timestamp: time.Now()},
	})

	if len(session.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(session.Messages))
	}

	session.ReplaceMessages([]ChatMessage{
		{Role: MessageRoleUser, Text: "再见", Timestamp: time.Now()},
	})

	if len(session.Messages) != 1 {
		t.Errorf("Expected wholesale replacement to 1 message, got %d", len(session.Messages))
	}
	if session.Messages[0].Text != "再见" {
		t.Errorf("Expected replaced content, got %s", session.Messages[0].Text)
	}
}

func TestValidate(t *testing.T) {
	session := NewTutorSession("你好")
	if err := session.Validate(); err != nil {
		t.Errorf("Expected valid session, got error: %v", err)
	}

	session.ID = ""
	if err := session.Validate(); err == nil {
		t.Error("Expected error for missing session id")
	}
}
